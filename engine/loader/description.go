package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrNoScene is returned when a description declares neither spheres nor meshes.
var ErrNoScene = errors.New("scene description has no spheres and no meshes")

// Description is the YAML scene file: materials, spheres, glTF meshes and an optional camera.
type Description struct {
	Materials []MaterialSpec `yaml:"materials"`
	Spheres   []SphereSpec   `yaml:"spheres"`
	Meshes    []MeshSpec     `yaml:"meshes"`
	Camera    *CameraSpec    `yaml:"camera,omitempty"`
}

// MaterialSpec describes one material. Omitted fields are zero.
type MaterialSpec struct {
	Diffuse   [3]float32 `yaml:"diffuse"`
	Roughness float32    `yaml:"roughness"`
	Specular  [3]float32 `yaml:"specular"`
	Metalness float32    `yaml:"metalness"`
	Emissive  [3]float32 `yaml:"emissive"`
}

// SphereSpec describes one sphere. Material, when set, indexes the description's materials list;
// otherwise the sphere gets its own material from Diffuse, Emissive and Roughness.
type SphereSpec struct {
	Position  [3]float32 `yaml:"position"`
	Radius    float32    `yaml:"radius"`
	Material  *uint32    `yaml:"material,omitempty"`
	Diffuse   [3]float32 `yaml:"diffuse"`
	Emissive  [3]float32 `yaml:"emissive"`
	Roughness *float32   `yaml:"roughness,omitempty"`
}

// MeshSpec names a glTF file, relative to the description file.
type MeshSpec struct {
	Path string `yaml:"path"`
}

// CameraSpec overrides the configured camera placement.
type CameraSpec struct {
	Position *[3]float32 `yaml:"position,omitempty"`
	Target   *[3]float32 `yaml:"target,omitempty"`
	FovY     *float32    `yaml:"fovY,omitempty"`
}

// Source is a resolved scene description ready for scene.Build.
type Source struct {
	// Path is the description file, empty for the sample scene.
	Path     string
	Registry *primitive.Registry
	// Graph merges every listed mesh file in list order, nil when there are none.
	Graph *scene.Graph
	// MeshPaths are the resolved mesh file paths, in list order.
	MeshPaths []string
	Camera    *CameraSpec
}

// SampleSource returns the built-in demo scene.
func SampleSource() *Source {
	return &Source{Registry: primitive.DefaultRegistry()}
}

// ParseDescription decodes a YAML scene description. Unknown keys are rejected.
//
// Parameters:
//   - r: the YAML document
//
// Returns:
//   - *Description: the decoded description
//   - error: error if the document is not valid YAML for a description
func ParseDescription(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Description
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoScene
		}
		return nil, fmt.Errorf("decoding scene description: %w", err)
	}
	return &d, nil
}

// LoadDescription reads and resolves the scene description at path. An empty path yields the sample scene.
// Mesh files are loaded concurrently through l.
//
// Parameters:
//   - ctx: cancels outstanding mesh loads
//   - path: the description file
//   - l: the loader used for mesh files
//
// Returns:
//   - *Source: registry, merged graph and camera override
//   - error: read, decode, validation or mesh load errors
func LoadDescription(ctx context.Context, path string, l Loader) (*Source, error) {
	if path == "" {
		return SampleSource(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene description: %w", err)
	}
	defer f.Close()

	d, err := ParseDescription(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	src, err := d.Resolve(ctx, filepath.Dir(path), l)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.Path = path
	return src, nil
}

// Resolve validates the description and turns it into a Source. Explicit materials are registered
// first, then each sphere's inline material as the sphere is added.
//
// Parameters:
//   - ctx: cancels outstanding mesh loads
//   - baseDir: directory mesh paths are relative to
//   - l: the loader used for mesh files
//
// Returns:
//   - *Source: the resolved scene
//   - error: ErrNoScene, primitive.ErrUnknownMaterial, or a mesh load error
func (d *Description) Resolve(ctx context.Context, baseDir string, l Loader) (*Source, error) {
	if len(d.Spheres) == 0 && len(d.Meshes) == 0 {
		return nil, ErrNoScene
	}

	reg := primitive.NewRegistry()
	for _, m := range d.Materials {
		reg.AddMaterial(primitive.Material{
			Diffuse:   mgl32.Vec3(m.Diffuse),
			Roughness: m.Roughness,
			Specular:  mgl32.Vec3(m.Specular),
			Metalness: m.Metalness,
			Emissive:  mgl32.Vec3(m.Emissive),
		})
	}

	for i, s := range d.Spheres {
		sphere := primitive.NewSphere(
			primitive.WithPosition(s.Position[0], s.Position[1], s.Position[2]),
			primitive.WithRadius(s.Radius),
		)
		if s.Material != nil {
			if int(*s.Material) >= len(d.Materials) {
				return nil, fmt.Errorf("sphere %d: %w: %d (have %d)", i, primitive.ErrUnknownMaterial, *s.Material, len(d.Materials))
			}
			sphere.Material = *s.Material
		} else {
			sphere.Material = reg.AddMaterial(primitive.InlineSphereMaterial(mgl32.Vec3(s.Diffuse), mgl32.Vec3(s.Emissive), s.Roughness))
		}
		if _, err := reg.AddSphere(sphere); err != nil {
			return nil, err
		}
	}

	graph, err := d.loadMeshes(ctx, baseDir, l)
	if err != nil {
		return nil, err
	}

	return &Source{
		Registry:  reg,
		Graph:     graph,
		MeshPaths: d.meshPaths(baseDir),
		Camera:    d.Camera,
	}, nil
}

// loadMeshes imports every mesh file concurrently and merges the graphs in list order.
func (d *Description) loadMeshes(ctx context.Context, baseDir string, l Loader) (*scene.Graph, error) {
	if len(d.Meshes) == 0 {
		return nil, nil
	}

	graphs := make([]*scene.Graph, len(d.Meshes))
	eg, ctx := errgroup.WithContext(ctx)
	for i, path := range d.meshPaths(baseDir) {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g, err := l.Reload(path)
			if err != nil {
				return fmt.Errorf("mesh %d: %w", i, err)
			}
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scene.Merge(graphs...), nil
}

func (d *Description) meshPaths(baseDir string) []string {
	paths := make([]string, len(d.Meshes))
	for i, m := range d.Meshes {
		paths[i] = m.Path
		if !filepath.IsAbs(m.Path) {
			paths[i] = filepath.Join(baseDir, m.Path)
		}
	}
	return paths
}
