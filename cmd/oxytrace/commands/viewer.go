package commands

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// viewer is a window with a renderer and an engine driving it.
type viewer struct {
	win    window.Window
	gpu    renderer.Renderer
	engine engine.Engine
	source *loader.Source
}

// openViewer opens the window, acquires the GPU, loads the scene and builds the engine. Anything
// acquired before a failure is released again.
//
// Parameters:
//   - ctx: the command context, for the viewer flags
//   - cfg: the effective configuration
//   - options: extra engine options
//
// Returns:
//   - *viewer: the running viewer, to be closed by the caller
//   - error: environment, load or build errors
func openViewer(ctx *cli.Context, cfg config.Config, options ...engine.EngineBuilderOption) (v *viewer, err error) {
	v = &viewer{}
	defer func() {
		if err != nil {
			v.Close()
			v = nil
		}
	}()

	v.source, err = loadSource(context.Background(), cfg)
	if err != nil {
		return v, err
	}

	v.win, err = window.NewWindow(
		window.WithTitle(fmt.Sprintf("%s - %s", cfg.Window.Title, sceneName(v.source))),
		window.WithSize(common.Extent{Width: cfg.Window.Width, Height: cfg.Window.Height}),
		window.WithSizeLimits(common.Extent{Width: common.WorkgroupSize, Height: common.WorkgroupSize}, common.Extent{}),
	)
	if err != nil {
		return v, err
	}

	mode := renderer.PresentModeVSync
	if ctx.Bool("uncapped") {
		mode = renderer.PresentModeUncapped
	}
	v.gpu, err = renderer.NewRenderer(renderer.BackendTypeWGPU, v.win,
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(ctx.Bool("software")),
	)
	if err != nil {
		return v, err
	}

	extent := v.win.Extent()
	if extent.Empty() {
		extent.Width, extent.Height = cfg.Window.Width, cfg.Window.Height
	}
	cam := newCamera(cfg, v.source, extent.Width, extent.Height)

	var cullDir *mgl32.Vec3
	if cfg.Render.Cull {
		dir := cam.Direction()
		cullDir = &dir
	}
	sc, err := buildScene(cfg, v.source, cullDir)
	if err != nil {
		return v, err
	}

	opts := append([]engine.EngineBuilderOption{
		engine.WithWindow(v.win),
		engine.WithCulling(cfg.Render.Cull),
		engine.WithProfiling(ctx.Bool("profile")),
	}, options...)
	v.engine, err = engine.NewEngine(v.gpu, cam, sc, opts...)
	if err != nil {
		return v, err
	}

	log.Noticef("tracing %s at %dx%d", sceneName(v.source), extent.Width, extent.Height)
	return v, nil
}

// Close releases the engine, the renderer and the window, in that order.
func (v *viewer) Close() {
	if v.engine != nil {
		v.engine.Release()
	}
	if v.gpu != nil {
		v.gpu.Release()
	}
	if v.win != nil {
		if err := v.win.Close(); err != nil {
			log.Warningf("closing window: %v", err)
		}
	}
}
