package commands

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

// Inspect loads and builds the scene the way render would, then prints its resource table.
// No window or GPU is needed.
func Inspect(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, cfg)

	src, err := loadSource(context.Background(), cfg)
	if err != nil {
		return err
	}
	cam := newCamera(cfg, src, cfg.Window.Width, cfg.Window.Height)

	var cullDir *mgl32.Vec3
	if cfg.Render.Cull {
		dir := cam.Direction()
		cullDir = &dir
	}
	sc, err := buildScene(cfg, src, cullDir)
	if err != nil {
		return err
	}

	w := ctx.App.Writer
	pos := cam.Position()
	fmt.Fprintf(w, "Scene:  %s\n", sceneName(src))
	fmt.Fprintf(w, "Camera: (%.3g, %.3g, %.3g) fovY %.3g rad\n", pos.X(), pos.Y(), pos.Z(), cam.FovY())
	sc.WriteStats(w)
	return nil
}
