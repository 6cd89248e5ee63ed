package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/watcher"
	"github.com/urfave/cli"
)

// Render opens the interactive viewer and traces until the window closes or the process is
// interrupted.
func Render(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, cfg)

	v, err := openViewer(ctx, cfg, engine.WithRenderFrameLimit(ctx.Float64("fps")))
	if err != nil {
		return err
	}
	defer v.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scene.Watch {
		if cfg.Scene.Path == "" {
			log.Warning("--watch needs a scene description, ignoring it for the sample scene")
		} else {
			go watchScene(runCtx, cfg, v)
		}
	}

	return v.engine.Run(runCtx)
}

// watchScene reloads the description whenever it or one of its mesh files changes and queues the
// rebuilt scene. Culling is left to the engine, which reculls on the reset frame that follows.
func watchScene(ctx context.Context, cfg config.Config, v *viewer) {
	w, err := watcher.New(cfg.Scene.Path, watcher.WithPaths(v.source.MeshPaths...))
	if err != nil {
		log.Errorf("scene watcher not started: %v", err)
		return
	}

	reload := reloadScene(ctx, cfg, v.engine.QueueScene, w.SetPaths)
	if err := w.Run(ctx, reload); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("scene watcher stopped: %v", err)
	}
}

// reloadScene returns the watcher callback. A failed load keeps the current scene; a successful one
// is queued and the watched mesh set is replaced by the new description's meshes.
//
// Parameters:
//   - ctx: cancels mesh loads
//   - cfg: the effective configuration
//   - queue: receives the rebuilt scene
//   - watch: replaces the watched mesh files
//
// Returns:
//   - func(path string): the callback
func reloadScene(ctx context.Context, cfg config.Config, queue func(*scene.Scene), watch func(paths ...string) error) func(path string) {
	return func(path string) {
		log.Infof("%s changed, reloading", path)
		src, err := loadSource(ctx, cfg)
		if err != nil {
			log.Errorf("reload failed, keeping the current scene: %v", err)
			return
		}
		sc, err := buildScene(cfg, src, nil)
		if err != nil {
			log.Errorf("reload failed, keeping the current scene: %v", err)
			return
		}
		queue(sc)
		if err := watch(src.MeshPaths...); err != nil {
			log.Warningf("watching meshes of %s: %v", sceneName(src), err)
		}
	}
}
