package commands

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const twoSpheres = `
spheres:
  - { position: [0, 0, 0], radius: 1, diffuse: [0.8, 0.2, 0.2] }
  - { position: [0, 5, 0], radius: 1, emissive: [6, 6, 6] }
camera:
  position: [0, 1, 12]
`

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"oxytrace"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInspectSampleScene(t *testing.T) {
	out, err := runApp(t, "inspect")
	require.NoError(t, err)

	assert.Contains(t, out, "Scene:  sample scene")
	assert.Contains(t, out, "Spheres")
	assert.Contains(t, out, "Triangles")
	assert.Contains(t, out, "Total")
}

func TestInspectDescriptionAppliesCameraOverride(t *testing.T) {
	path := writeFile(t, "scene.yaml", twoSpheres)

	out, err := runApp(t, "inspect", "--scene", path, "--bvh")
	require.NoError(t, err)

	assert.Contains(t, out, "Scene:  "+path)
	assert.Contains(t, out, "Camera: (0, 1, 12)")
	assert.Regexp(t, regexp.MustCompile(`Spheres\s*\|\s*2\s`), out)
}

func TestInspectErrors(t *testing.T) {
	_, err := runApp(t, "inspect", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = runApp(t, "inspect", "--scene", writeFile(t, "empty.yaml", "materials: []\n"))
	assert.Error(t, err)

	_, err = runApp(t, "inspect", "--config", writeFile(t, "bad.toml", "[window]\nwidth = 0\n"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

// flagContext parses args against the render command's flags.
func flagContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := NewApp()
	var cmd cli.Command
	for _, c := range app.Commands {
		if c.Name == "render" {
			cmd = c
		}
	}
	set := flag.NewFlagSet("render", flag.ContinueOnError)
	for _, f := range cmd.Flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfgPath := writeFile(t, "oxytrace.toml", "[window]\ntitle = \"t\"\nwidth = 320\nheight = 200\n\n[render]\ncull = true\n")

	cfg, err := loadConfig(flagContext(t, "--config", cfgPath))
	require.NoError(t, err)
	assert.Equal(t, uint32(320), cfg.Window.Width)
	assert.True(t, cfg.Render.Cull)
	assert.False(t, cfg.Render.BVH)

	cfg, err = loadConfig(flagContext(t, "--config", cfgPath, "--width", "64", "--cull=false", "--bvh", "--watch", "--scene", "s.yaml"))
	require.NoError(t, err)
	assert.Equal(t, uint32(64), cfg.Window.Width)
	assert.Equal(t, uint32(200), cfg.Window.Height)
	assert.False(t, cfg.Render.Cull)
	assert.True(t, cfg.Render.BVH)
	assert.True(t, cfg.Scene.Watch)
	assert.Equal(t, "s.yaml", cfg.Scene.Path)

	_, err = loadConfig(flagContext(t, "--height", "0"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestReloadSceneQueuesAndRewatches(t *testing.T) {
	path := writeFile(t, "scene.yaml", twoSpheres)
	cfg := config.Default()
	cfg.Scene.Path = path

	var queued []*scene.Scene
	var watched [][]string
	reload := reloadScene(context.Background(), cfg,
		func(sc *scene.Scene) { queued = append(queued, sc) },
		func(paths ...string) error {
			watched = append(watched, paths)
			return nil
		})

	reload(path)
	require.Len(t, queued, 1)
	assert.Len(t, queued[0].Spheres, 2)
	require.Len(t, watched, 1)
	assert.Empty(t, watched[0], "a description without meshes watches no meshes")

	require.NoError(t, os.WriteFile(path, []byte("spheres: [\n"), 0o644))
	reload(path)
	assert.Len(t, queued, 1, "a broken description keeps the current scene")
	assert.Len(t, watched, 1)
}
