// Package bvh implements a parallel-built bounding-volume hierarchy over
// caller-supplied elements, used by the egress fan-out to answer "which
// players overlap this AABB?" for chunk-local broadcast. Node storage is a
// single contiguous array with a sentinel at index 0 (see node.go) so
// parent/child references never need real pointers — the same
// arena-plus-integer-index discipline the teacher's ECS-free packages use
// for cyclic-looking structures.
package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Aabb is an axis-aligned bounding box in mgl32 space: for chunk-local
// broadcast this holds chunk coordinates on X/Z (Y unused, left at 0).
type Aabb struct {
	Min, Max mgl32.Vec3
}

// NewAabb returns the box spanning min and max (component-wise; the
// caller is responsible for min <= max on each axis).
func NewAabb(min, max mgl32.Vec3) Aabb {
	return Aabb{Min: min, Max: max}
}

// Null is the identity element for Union: unioning anything with Null
// yields that thing back.
var Null = Aabb{
	Min: mgl32.Vec3{posInf, posInf, posInf},
	Max: mgl32.Vec3{negInf, negInf, negInf},
}

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// Collides reports whether a and b overlap on every axis (touching edges
// count as overlapping: the interval comparisons are inclusive, so
// zero-extent point boxes can collide).
func (a Aabb) Collides(b Aabb) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// Union returns the smallest Aabb containing both a and b.
func (a Aabb) Union(b Aabb) Aabb {
	return Aabb{
		Min: componentMin(a.Min, b.Min),
		Max: componentMax(a.Max, b.Max),
	}
}

// ExpandToFit grows a in place to also contain b.
func (a *Aabb) ExpandToFit(b Aabb) {
	a.Min = componentMin(a.Min, b.Min)
	a.Max = componentMax(a.Max, b.Max)
}

func componentMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{minF(a.X(), b.X()), minF(a.Y(), b.Y()), minF(a.Z(), b.Z())}
}

func componentMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{maxF(a.X(), b.X()), maxF(a.Y(), b.Y()), maxF(a.Z(), b.Z())}
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Lens returns the per-axis extents (max - min).
func (a Aabb) Lens() mgl32.Vec3 {
	return a.Max.Sub(a.Min)
}

// Volume returns the box volume. Null's extents are all -Inf, so its
// volume is -Inf, which compares as at or below any VolumeThreshold.
func (a Aabb) Volume() float32 {
	l := a.Lens()
	return l.X() * l.Y() * l.Z()
}

// LargestAxis returns the index (0=X, 1=Y, 2=Z) of the AABB's longest
// extent, used by Build to pick a split axis.
func (a Aabb) LargestAxis() int {
	l := a.Lens()
	axis := 0
	best := l.X()
	if l.Y() > best {
		axis, best = 1, l.Y()
	}
	if l.Z() > best {
		axis = 2
	}
	return axis
}

// Containing returns the smallest Aabb containing every box in boxes.
func Containing(boxes []Aabb) Aabb {
	result := Null
	for _, b := range boxes {
		result.ExpandToFit(b)
	}
	return result
}
