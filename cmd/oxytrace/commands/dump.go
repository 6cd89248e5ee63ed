package commands

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/urfave/cli"
)

// Dump accumulates --frames frames in a window, then writes the tone mapped image to --out and
// every --resource buffer to <out>.<resource>.bin.
func Dump(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, cfg)

	frames := ctx.Uint64("frames")
	if frames == 0 {
		return fmt.Errorf("--frames must be positive")
	}
	out := ctx.String("out")

	v, err := openViewer(ctx, cfg, engine.WithMaxFrames(frames))
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.engine.Run(context.Background()); err != nil {
		return err
	}
	if got := v.engine.Frames(); got < frames {
		log.Warningf("window closed after %d of %d frames", got, frames)
	}

	snap, err := v.engine.Snapshot()
	if err != nil {
		return err
	}
	if err := writePNG(out, snap); err != nil {
		return err
	}
	log.Noticef("wrote %s (%dx%d, %d samples)", out, snap.Extent.Width, snap.Extent.Height, v.engine.Camera().Timestep())

	base := strings.TrimSuffix(out, ".png")
	for _, name := range ctx.StringSlice("resource") {
		data, err := v.engine.ReadResource(name)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("%s.%s.bin", base, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Noticef("wrote %s (%d bytes)", path, len(data))
	}
	return nil
}

func writePNG(path string, snap engine.Snapshot) error {
	img, err := snap.Image()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
