// Package config reads the tracer's TOML configuration and translates it into the functional
// options of the engine components.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	Window WindowConfig `toml:"window"`
	Camera CameraConfig `toml:"camera"`
	Render RenderConfig `toml:"render"`
	Scene  SceneConfig  `toml:"scene"`
	Log    LogConfig    `toml:"log"`
}

// WindowConfig sizes the native window. The output image always matches the framebuffer.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// CameraConfig places the orbit camera.
type CameraConfig struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	Up       [3]float32 `toml:"up"`
	// FovY is the vertical field of view in radians.
	FovY       float32 `toml:"fov_y"`
	Near       float32 `toml:"near"`
	Far        float32 `toml:"far"`
	OrbitStep  float32 `toml:"orbit_step"`
	ZoomFactor float32 `toml:"zoom_factor"`
	MinRadius  float32 `toml:"min_radius"`
}

// RenderConfig controls scene preparation.
type RenderConfig struct {
	// Cull enables back-face culling against the camera direction.
	Cull bool `toml:"cull"`
	// BVH enables the SAH hierarchy over triangles.
	BVH         bool `toml:"bvh"`
	BVHLeafSize int  `toml:"bvh_leaf_size"`
	// MeshMaterial is the registry material for mesh nodes that name none.
	MeshMaterial uint32 `toml:"mesh_material"`
	// Workers is the extraction worker count, 0 for one per CPU.
	Workers int `toml:"workers"`
}

// SceneConfig names the scene description. An empty path is the built-in sample scene.
type SceneConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// LogConfig sets the log level by name: debug, info, notice, warning or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a configuration that renders the sample scene.
func Default() Config {
	return Config{
		Window: WindowConfig{Title: "oxy-trace", Width: 1280, Height: 720},
		Camera: CameraConfig{
			Position:   [3]float32{0, 0, 10},
			Up:         [3]float32{0, 1, 0},
			FovY:       2 * math32.Pi / 5,
			Near:       0.01,
			Far:        100,
			OrbitStep:  0.03,
			ZoomFactor: 0.05,
			MinRadius:  0.05,
		},
		Render: RenderConfig{BVHLeafSize: 4, MeshMaterial: 3},
		Log:    LogConfig{Level: "notice"},
	}
}

// Load reads the TOML file at path over Default. An empty path returns Default.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the merged configuration
//   - error: read, decode or validation errors
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over Default and validates the result. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks ranges that would otherwise produce a degenerate projection or an empty image.
func (c Config) Validate() error {
	switch {
	case c.Window.Width == 0 || c.Window.Height == 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Camera.FovY <= 0 || c.Camera.FovY >= math32.Pi:
		return fmt.Errorf("%w: fov_y %v outside (0, pi)", ErrInvalid, c.Camera.FovY)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: clip planes near=%v far=%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	case mgl32.Vec3(c.Camera.Position).Sub(mgl32.Vec3(c.Camera.Target)).Len() == 0:
		return fmt.Errorf("%w: camera position equals target", ErrInvalid)
	case c.Render.BVHLeafSize < 1:
		return fmt.Errorf("%w: bvh_leaf_size %d", ErrInvalid, c.Render.BVHLeafSize)
	case c.Render.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Render.Workers)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// CameraOptions translates the camera and window sections into camera builder options.
func (c Config) CameraOptions() []camera.CameraBuilderOption {
	p, t, u := c.Camera.Position, c.Camera.Target, c.Camera.Up
	return []camera.CameraBuilderOption{
		camera.WithPosition(p[0], p[1], p[2]),
		camera.WithTarget(t[0], t[1], t[2]),
		camera.WithUp(u[0], u[1], u[2]),
		camera.WithFovY(c.Camera.FovY),
		camera.WithViewport(c.Window.Width, c.Window.Height),
		camera.WithClipPlanes(c.Camera.Near, c.Camera.Far),
		camera.WithOrbitStep(c.Camera.OrbitStep),
		camera.WithZoomFactor(c.Camera.ZoomFactor),
		camera.WithMinRadius(c.Camera.MinRadius),
	}
}

// ExtractorOptions translates the render section into extractor options.
func (c Config) ExtractorOptions() []scene.ExtractorOption {
	var opts []scene.ExtractorOption
	if c.Render.Workers > 0 {
		opts = append(opts, scene.WithWorkers(c.Render.Workers))
	}
	return opts
}

// BuildOptions translates the render section into scene build options. Culling is not included:
// it needs the live camera direction.
func (c Config) BuildOptions() []scene.BuildOption {
	opts := []scene.BuildOption{scene.WithMeshMaterial(c.Render.MeshMaterial)}
	if c.Render.BVH {
		opts = append(opts, scene.WithBVH(c.Render.BVHLeafSize))
	}
	return opts
}
