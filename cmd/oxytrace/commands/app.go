// Package commands implements the oxytrace command line: an interactive viewer, a scene
// inspector and a headless-style image dump.
package commands

import (
	"github.com/urfave/cli"
)

// sceneFlags are shared by every command that loads a scene.
var sceneFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "TOML configuration file",
	},
	cli.StringFlag{
		Name:  "scene, s",
		Usage: "YAML scene description; the built-in sample scene when empty",
	},
	cli.BoolFlag{
		Name:  "cull",
		Usage: "drop back-facing triangles against the camera direction",
	},
	cli.BoolFlag{
		Name:  "bvh",
		Usage: "build a SAH hierarchy over the triangles",
	},
}

// viewerFlags are shared by the commands that open a window.
var viewerFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Usage: "framebuffer width, overrides the configuration",
	},
	cli.IntFlag{
		Name:  "height",
		Usage: "framebuffer height, overrides the configuration",
	},
	cli.BoolFlag{
		Name:  "uncapped",
		Usage: "present without waiting for vertical blank",
	},
	cli.BoolFlag{
		Name:  "software",
		Usage: "force the fallback (software) adapter",
	},
	cli.BoolFlag{
		Name:  "profile",
		Usage: "log frame rate, sample count and memory once a second",
	},
}

// NewApp builds the oxytrace application.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "oxytrace"
	app.Usage = "progressive path tracing on the GPU"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "open a window and trace the scene interactively",
			Description: `
Trace the scene progressively. While the camera is still, every frame is averaged
into the image; moving the camera, resizing the window or reloading the scene
starts over.

Keys: A/D or Left/Right orbit, W/S or Up/Down tilt, Q/E or PageUp/PageDown and the
scroll wheel zoom, Escape quits.`,
			Flags: append(append([]cli.Flag{
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "reload the scene when its description or meshes change",
				},
				cli.Float64Flag{
					Name:  "fps",
					Usage: "frame rate cap, 0 for none",
				},
			}, sceneFlags...), viewerFlags...),
			Action: Render,
		},
		{
			Name:   "inspect",
			Usage:  "print scene statistics without opening a window",
			Flags:  sceneFlags,
			Action: Inspect,
		},
		{
			Name:  "dump",
			Usage: "render a fixed number of frames and write the accumulated image",
			Flags: append(append([]cli.Flag{
				cli.Uint64Flag{
					Name:  "frames, n",
					Value: 64,
					Usage: "frames to accumulate",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "PNG file for the accumulated image",
				},
				cli.StringSliceFlag{
					Name:  "resource, r",
					Value: &cli.StringSlice{},
					Usage: "also write the raw GPU buffer of a kernel resource (camera, sphere, material, triangle, mesh_bound, bvh_node) next to the image",
				},
			}, sceneFlags...), viewerFlags...),
			Action: Dump,
		},
	}
	return app
}
