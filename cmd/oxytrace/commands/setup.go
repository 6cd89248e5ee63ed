package commands

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/loader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// loadConfig reads --config and applies the command line overrides on top.
//
// Parameters:
//   - ctx: the command context
//
// Returns:
//   - config.Config: the effective configuration
//   - error: read, decode or validation errors
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if ctx.IsSet("scene") {
		cfg.Scene.Path = ctx.String("scene")
	}
	if ctx.IsSet("cull") {
		cfg.Render.Cull = ctx.Bool("cull")
	}
	if ctx.IsSet("bvh") {
		cfg.Render.BVH = ctx.Bool("bvh")
	}
	if ctx.IsSet("watch") {
		cfg.Scene.Watch = ctx.Bool("watch")
	}
	if ctx.IsSet("width") {
		cfg.Window.Width = uint32(max(ctx.Int("width"), 0))
	}
	if ctx.IsSet("height") {
		cfg.Window.Height = uint32(max(ctx.Int("height"), 0))
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadSource(ctx context.Context, cfg config.Config) (*loader.Source, error) {
	src, err := loader.LoadDescription(ctx, cfg.Scene.Path, loader.NewLoader(loader.BackendTypeGLTF))
	if err != nil {
		return nil, fmt.Errorf("loading scene: %w", err)
	}
	return src, nil
}

// newCamera builds the camera from the configuration, lets the scene description override its
// placement, and sizes the viewport to width x height.
func newCamera(cfg config.Config, src *loader.Source, width, height uint32) camera.Camera {
	opts := cfg.CameraOptions()
	if override := src.Camera; override != nil {
		if p := override.Position; p != nil {
			opts = append(opts, camera.WithPosition(p[0], p[1], p[2]))
		}
		if t := override.Target; t != nil {
			opts = append(opts, camera.WithTarget(t[0], t[1], t[2]))
		}
		if override.FovY != nil {
			opts = append(opts, camera.WithFovY(*override.FovY))
		}
	}
	opts = append(opts, camera.WithViewport(width, height))
	return camera.NewCamera(opts...)
}

// buildScene flattens the source. A nil cullDir leaves every triangle visible.
func buildScene(cfg config.Config, src *loader.Source, cullDir *mgl32.Vec3) (*scene.Scene, error) {
	opts := cfg.BuildOptions()
	if cullDir != nil {
		opts = append(opts, scene.WithCulling(*cullDir))
	}
	sc, err := scene.Build(src.Registry, src.Graph, scene.NewExtractor(cfg.ExtractorOptions()...), opts...)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	return sc, nil
}

func sceneName(src *loader.Source) string {
	if src.Path == "" {
		return "sample scene"
	}
	return src.Path
}
