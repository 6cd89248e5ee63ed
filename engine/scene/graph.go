package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrGraphCycle is returned when a node is reachable from itself or from two parents.
var ErrGraphCycle = errors.New("scene graph node visited twice")

// Graph is a read-only scene source: a forest of nodes whose local transforms compose from parent to child.
// A node's index is its position in Nodes; triangles and mesh bounds refer to nodes by that index.
type Graph struct {
	// Nodes holds every node of the graph.
	Nodes []Node
	// Roots lists the nodes that start a tree walk. When empty, every node without a parent is a root.
	Roots []int
	// Materials holds materials local to the graph, referenced by Primitive.Material.
	Materials []primitive.Material
}

// Node is one element of the scene graph.
type Node struct {
	Name     string
	Local    mgl32.Mat4
	Children []int
	Mesh     *Mesh
}

// Mesh groups the primitives drawn by one node.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive is an indexed triangle list. Primitives missing either Indices or Positions contribute nothing.
type Primitive struct {
	Indices   []uint32
	Positions []mgl32.Vec3
	// Material indexes Graph.Materials, nil when the primitive names none.
	Material *int
}

// WorldTransforms resolves every node's world matrix by walking the trees from the roots,
// carrying the parent matrix as an accumulator. Nodes that are not reachable from a root keep
// their local matrix.
//
// Returns:
//   - []mgl32.Mat4: one world matrix per node, in node order
//   - error: ErrGraphCycle when the graph is not a forest, or an out of range child index
func (g *Graph) WorldTransforms() ([]mgl32.Mat4, error) {
	world := make([]mgl32.Mat4, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))

	var walk func(idx int, parent mgl32.Mat4) error
	walk = func(idx int, parent mgl32.Mat4) error {
		if idx < 0 || idx >= len(g.Nodes) {
			return fmt.Errorf("node index %d out of range (have %d nodes)", idx, len(g.Nodes))
		}
		if visited[idx] {
			return fmt.Errorf("node %d: %w", idx, ErrGraphCycle)
		}
		visited[idx] = true
		world[idx] = parent.Mul4(g.Nodes[idx].Local)
		for _, child := range g.Nodes[idx].Children {
			if err := walk(child, world[idx]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range g.roots() {
		if err := walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	for i := range g.Nodes {
		if !visited[i] {
			world[i] = g.Nodes[i].Local
		}
	}
	return world, nil
}

func (g *Graph) roots() []int {
	if len(g.Roots) > 0 {
		return g.Roots
	}
	hasParent := make([]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	roots := make([]int, 0, len(g.Nodes))
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

// MeshNodeCount returns the number of nodes that carry a mesh.
func (g *Graph) MeshNodeCount() int {
	n := 0
	for _, node := range g.Nodes {
		if node.Mesh != nil {
			n++
		}
	}
	return n
}

// Merge concatenates graphs in order into one graph. Node, child, root and material indices of
// later graphs are offset so that every reference stays valid.
//
// Parameters:
//   - graphs: the graphs to merge; nil entries are ignored
//
// Returns:
//   - *Graph: the merged graph
func Merge(graphs ...*Graph) *Graph {
	out := &Graph{}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		nodeBase := len(out.Nodes)
		matBase := len(out.Materials)

		for _, r := range g.roots() {
			out.Roots = append(out.Roots, r+nodeBase)
		}
		for _, n := range g.Nodes {
			cp := Node{Name: n.Name, Local: n.Local}
			for _, c := range n.Children {
				cp.Children = append(cp.Children, c+nodeBase)
			}
			if n.Mesh != nil {
				mesh := &Mesh{Name: n.Mesh.Name, Primitives: make([]Primitive, len(n.Mesh.Primitives))}
				for i, p := range n.Mesh.Primitives {
					mesh.Primitives[i] = p
					if p.Material != nil {
						m := *p.Material + matBase
						mesh.Primitives[i].Material = &m
					}
				}
				cp.Mesh = mesh
			}
			out.Nodes = append(out.Nodes, cp)
		}
		out.Materials = append(out.Materials, g.Materials...)
	}
	return out
}
