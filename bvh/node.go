package bvh

// node is either a leaf carrying a contiguous element-index range, or an
// internal node with an AABB and two child references into the owning
// Bvh's node array. The sign of left/right encodes which: positive means
// "index into the node array" (an internal node always has two such
// children), non-positive means "leaf" — negating the field recovers the
// element-array start (left) and end (right) of its contiguous range.
// Index 0 of the node array is a reserved sentinel, so 0 unambiguously
// means "no child"; callers must never synthesize a real internal node
// at index 0 (Build places the root at index 1).
type node struct {
	aabb        Aabb
	left, right int32
}

var sentinelNode = node{}

func leafNode(aabb Aabb, start, count int) node {
	end := start + count
	return node{aabb: aabb, left: -int32(start), right: -int32(end)}
}

func internalNode(aabb Aabb, left, right int32) node {
	return node{aabb: aabb, left: left, right: right}
}

// isLeaf reports whether n is a leaf (left <= 0); internal nodes always
// have both children positive.
func (n node) isLeaf() bool { return n.left <= 0 }

// leafRange returns the [start, start+count) range into Bvh.elements this
// leaf covers. Only valid when isLeaf() is true.
func (n node) leafRange() (start, count int) {
	start = int(-n.left)
	end := int(-n.right)
	return start, end - start
}
