package scene

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
)

const (
	// The builder will not evaluate split candidates along an axis whose extent is below this threshold.
	minSideLength float32 = 1e-4

	// Number of evenly spaced split planes evaluated per axis.
	splitCandidates = 32

	// MaxBVHDepth is the deepest level an inner node may sit at. The trace kernel walks the tree with
	// a 32-entry stack, which holds at most depth+1 entries; nodes past this depth become leaves.
	MaxBVHDepth = 30
)

// EmptyBVH returns the one-node tree uploaded when no hierarchy is built. Its root box is inverted
// (Min > Max), which the trace kernel takes as the signal to scan mesh bounds linearly.
func EmptyBVH() []BVHNode {
	lo, hi := emptyBox()
	return []BVHNode{{Min: lo, Max: hi}}
}

type splitScore struct {
	axis       int
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type bvhStats struct {
	nodes    int
	leaves   int
	maxDepth int
	capped   int
}

type bvhBuilder struct {
	log          logger.Logger
	nodes        []BVHNode
	ordered      []Triangle
	minLeafItems int
	maxDepth     int
	scoreChan    chan splitScore
	stats        bvhStats
}

// BuildBVH builds a surface-area-heuristic BVH over triangles.
//
// The split score is leftCount*leftArea + rightCount*rightArea; a node becomes a leaf when it holds
// at most minLeafItems triangles or no split scores better than keeping the node whole. Candidate
// splits are scored concurrently.
//
// The returned triangle slice holds the input triangles reordered so that every leaf addresses a
// contiguous range. The root is node 0. An empty input yields the single node returned by EmptyBVH.
//
// Parameters:
//   - triangles: the triangles to partition
//   - minLeafItems: the largest triangle count that always forms a leaf
//
// Returns:
//   - []BVHNode: the flattened tree
//   - []Triangle: triangles in leaf order
func BuildBVH(triangles []Triangle, minLeafItems int) ([]BVHNode, []Triangle) {
	if len(triangles) == 0 {
		return EmptyBVH(), nil
	}
	b := &bvhBuilder{
		log:          logger.New("bvh"),
		ordered:      make([]Triangle, 0, len(triangles)),
		minLeafItems: max(minLeafItems, 1),
		maxDepth:     max(maxDepth, 0),
		scoreChan:    make(chan splitScore),
	}

	start := time.Now()
	b.partition(append([]Triangle(nil), triangles...), 0)
	b.log.Debugf("BVH build time: %d ms, maxDepth: %d, nodes: %d, leaves: %d, depth-capped leaves: %d",
		time.Since(start).Milliseconds(), b.stats.maxDepth, b.stats.nodes, b.stats.leaves, b.stats.capped)
	return b.nodes, b.ordered
}

// partition splits work and returns the index of the node created for it.
func (b *bvhBuilder) partition(work []Triangle, depth int) int32 {
	b.stats.maxDepth = max(b.stats.maxDepth, depth)

	node := BVHNode{}
	node.Min, node.Max = emptyBox()
	for _, t := range work {
		box := t.BBox()
		node.Min = minVec3(node.Min, box[0])
		node.Max = maxVec3(node.Max, box[1])
	}

	if len(work) <= b.minLeafItems {
		return b.createLeaf(node, work)
	}
	if depth >= b.maxDepth {
		b.stats.capped++
		b.log.Debugf("BVH depth %d reached, forcing a leaf of %d triangles", depth, len(work))
		return b.createLeaf(node, work)
	}

	bestScore := float32(len(work)) * halfArea(node.Min, node.Max)
	var bestSplit *splitScore

	pending := 0
	side := node.Max.Sub(node.Min)
	for axis := 0; axis < 3; axis++ {
		if side[axis] < minSideLength {
			continue
		}
		step := side[axis] / splitCandidates
		for i := 1; i < splitCandidates; i++ {
			pending++
			go func(axis int, splitPoint float32) {
				l, r, score := scoreSplit(work, axis, splitPoint)
				b.scoreChan <- splitScore{axis: axis, splitPoint: splitPoint, leftCount: l, rightCount: r, score: score}
			}(axis, node.Min[axis]+step*float32(i))
		}
	}

	for ; pending > 0; pending-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	if bestSplit == nil {
		return b.createLeaf(node, work)
	}

	left := make([]Triangle, 0, bestSplit.leftCount)
	right := make([]Triangle, 0, bestSplit.rightCount)
	for _, t := range work {
		if t.Center()[bestSplit.axis] < bestSplit.splitPoint {
			left = append(left, t)
		} else {
			right = append(right, t)
		}
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	l := b.partition(left, depth+1)
	r := b.partition(right, depth+1)
	b.nodes[nodeIndex].Left = l
	b.nodes[nodeIndex].Right = r
	return int32(nodeIndex)
}

func (b *bvhBuilder) createLeaf(node BVHNode, work []Triangle) int32 {
	node.Left = -int32(len(b.ordered))
	node.Right = -int32(len(work))
	b.ordered = append(b.ordered, work...)

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.leaves++
	return int32(nodeIndex)
}

// scoreSplit scores splitting work at splitPoint along axis with the surface area heuristic.
// Splits that leave one side empty get the worst possible score.
func scoreSplit(work []Triangle, axis int, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin, lmax := emptyBox()
	rmin, rmax := emptyBox()
	for _, t := range work {
		box := t.BBox()
		if t.Center()[axis] < splitPoint {
			leftCount++
			lmin, lmax = minVec3(lmin, box[0]), maxVec3(lmax, box[1])
		} else {
			rightCount++
			rmin, rmax = minVec3(rmin, box[0]), maxVec3(rmax, box[1])
		}
	}
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, maxFloat
	}
	return leftCount, rightCount, float32(leftCount)*halfArea(lmin, lmax) + float32(rightCount)*halfArea(rmin, rmax)
}
