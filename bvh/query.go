package bvh

// ForEachOverlap walks the tree depth-first, visiting every element whose
// box collides with target. visit is called once per matching element; if
// it returns false, the traversal stops early (the tree's element order is
// otherwise unspecified, so "first" has no stable meaning beyond "whatever
// the build produced").
func (b *Bvh[T]) ForEachOverlap(target Aabb, aabbOf AabbOf[T], visit func(T) bool) {
	if b.root == 0 {
		return
	}
	b.walk(b.root, target, aabbOf, visit)
}

func (b *Bvh[T]) walk(idx int32, target Aabb, aabbOf AabbOf[T], visit func(T) bool) bool {
	n := b.nodes[idx]
	if !n.aabb.Collides(target) {
		return true
	}

	if n.isLeaf() {
		start, count := n.leafRange()
		for _, e := range b.elements[start : start+count] {
			if target.Collides(aabbOf(e)) {
				if !visit(e) {
					return false
				}
			}
		}
		return true
	}

	if !b.walk(n.left, target, aabbOf, visit) {
		return false
	}
	return b.walk(n.right, target, aabbOf, visit)
}

// Len returns the number of elements the tree was built over.
func (b *Bvh[T]) Len() int { return len(b.elements) }

// Root returns the root AABB (the union of every element's box), or Null
// for an empty tree.
func (b *Bvh[T]) Root() Aabb {
	if b.root == 0 {
		return Null
	}
	return b.nodes[b.root].aabb
}
