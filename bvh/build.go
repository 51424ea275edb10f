package bvh

import (
	"runtime"
	"sort"
)

// AabbOf computes the bounding box of a single element.
type AabbOf[T any] func(T) Aabb

// Config tunes Build's leaf-splitting and parallel fan-out thresholds.
type Config struct {
	// LeafThreshold is the maximum element count a leaf may hold before
	// Build must split it further (unless VolumeThreshold also applies).
	LeafThreshold int
	// VolumeThreshold lets Build stop splitting early once a node's
	// enclosing volume is already small, even above LeafThreshold.
	VolumeThreshold float32
	// MaxGoroutines bounds how many subtrees Build may construct
	// concurrently; rounded down to the nearest power of two.
	MaxGoroutines int
}

func defaultConfig() Config {
	return Config{
		LeafThreshold:   16,
		VolumeThreshold: 0,
		MaxGoroutines:   runtime.GOMAXPROCS(0),
	}
}

// Option customizes Build's Config.
type Option func(*Config)

// WithLeafThreshold overrides the default leaf element cap (16).
func WithLeafThreshold(n int) Option {
	return func(c *Config) { c.LeafThreshold = n }
}

// WithVolumeThreshold overrides the default volume-based early-leaf cutoff.
func WithVolumeThreshold(v float32) Option {
	return func(c *Config) { c.VolumeThreshold = v }
}

// WithMaxGoroutines overrides the default parallel fan-out width.
func WithMaxGoroutines(n int) Option {
	return func(c *Config) { c.MaxGoroutines = n }
}

// Bvh is a parallel-built bounding-volume hierarchy over a snapshot of
// elements of type T. Node 0 is a reserved sentinel; Root is 0 only when
// the tree holds no elements.
type Bvh[T any] struct {
	nodes    []node
	elements []T
	root     int32
}

// Build constructs a Bvh over a copy of elements (the original slice the
// caller passed in is left untouched; Build reorders its own copy while
// partitioning). aabbOf must return the same box for an element on every
// call during the build.
func Build[T any](elements []T, aabbOf AabbOf[T], opts ...Option) *Bvh[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.LeafThreshold < 1 {
		cfg.LeafThreshold = 1
	}

	elems := make([]T, len(elements))
	copy(elems, elements)

	if len(elems) == 0 {
		return &Bvh[T]{nodes: []node{sentinelNode}, elements: elems, root: 0}
	}

	maxThreads := nextPow2Clamp(cfg.MaxGoroutines)
	subtree := buildSubtree(elems, aabbOf, cfg.LeafThreshold, cfg.VolumeThreshold, maxThreads)

	nodes := make([]node, len(subtree)+1)
	nodes[0] = sentinelNode
	for i, n := range subtree {
		if !n.isLeaf() {
			n.left += 1
			n.right += 1
		}
		nodes[i+1] = n
	}

	return &Bvh[T]{nodes: nodes, elements: elems, root: 1}
}

func nextPow2Clamp(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// buildSubtree returns a pre-order node slice for elems, using indices
// local to the returned slice (0-based): an internal node's left/right
// fields name positions within this very slice, not the final array. The
// caller (Build, or the recursive case below) rebases these once it knows
// where the subtree lands in the combined array.
func buildSubtree[T any](elems []T, aabbOf AabbOf[T], leafThreshold int, volumeThreshold float32, maxThreads int) []node {
	box := aabbOfAll(elems, aabbOf)

	if len(elems) <= leafThreshold || box.Volume() <= volumeThreshold {
		return []node{leafNode(box, 0, len(elems))}
	}

	sortByLargestAxis(elems, box, aabbOf)
	mid := len(elems) / 2
	left, right := elems[:mid], elems[mid:]

	var leftNodes, rightNodes []node
	if maxThreads > 1 {
		half := maxThreads / 2
		done := make(chan struct{})
		go func() {
			leftNodes = buildSubtree(left, aabbOf, leafThreshold, volumeThreshold, half)
			close(done)
		}()
		rightNodes = buildSubtree(right, aabbOf, leafThreshold, volumeThreshold, half)
		<-done
	} else {
		leftNodes = buildSubtree(left, aabbOf, leafThreshold, volumeThreshold, 1)
		rightNodes = buildSubtree(right, aabbOf, leafThreshold, volumeThreshold, 1)
	}

	// Re-index the right subtree's leaf element ranges: they were built
	// against "right" which starts at global offset mid within elems.
	for i := range rightNodes {
		if rightNodes[i].isLeaf() {
			start, count := rightNodes[i].leafRange()
			rightNodes[i] = leafNode(rightNodes[i].aabb, start+mid, count)
		}
	}

	combined := make([]node, 1+len(leftNodes)+len(rightNodes))
	combined[0] = internalNode(box, 1, int32(1+len(leftNodes)))
	for i, n := range leftNodes {
		if !n.isLeaf() {
			n.left += 1
			n.right += 1
		}
		combined[1+i] = n
	}
	rightBase := int32(1 + len(leftNodes))
	for i, n := range rightNodes {
		if !n.isLeaf() {
			n.left += rightBase
			n.right += rightBase
		}
		combined[int(rightBase)+i] = n
	}

	return combined
}

func aabbOfAll[T any](elems []T, aabbOf AabbOf[T]) Aabb {
	box := Null
	for _, e := range elems {
		box.ExpandToFit(aabbOf(e))
	}
	return box
}

// sortByLargestAxis orders elems by their coordinate on box's longest
// axis with a full O(n log n) sort.
func sortByLargestAxis[T any](elems []T, box Aabb, aabbOf AabbOf[T]) {
	axis := box.LargestAxis()
	sort.Slice(elems, func(i, j int) bool {
		return axisValue(aabbOf(elems[i]), axis) < axisValue(aabbOf(elems[j]), axis)
	})
}

func axisValue(b Aabb, axis int) float32 {
	mid := b.Min.Add(b.Max)
	switch axis {
	case 0:
		return mid.X()
	case 1:
		return mid.Y()
	default:
		return mid.Z()
	}
}
