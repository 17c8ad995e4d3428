package geom

import "math"

// AABB is an axis-aligned bounding box stored as its minimum corner plus
// non-negative extents. Zero-area boxes are valid and represent points or
// degenerate sensors.
type AABB struct {
	// Min is the top-left corner in world coordinates (y grows downward).
	Min V2
	// Ext holds width and height.
	Ext V2
}

func NewAABB(x, y, w, h float64) AABB {
	return AABB{Min: V2{X: x, Y: y}, Ext: V2{X: w, Y: h}}
}

// FromCorners builds an AABB from two opposite corners in any order.
func FromCorners(a, b V2) AABB {
	min := V2{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	max := V2{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	return AABB{Min: min, Ext: max.Sub(min)}
}

func (a AABB) Left() float64   { return a.Min.X }
func (a AABB) Right() float64  { return a.Min.X + a.Ext.X }
func (a AABB) Top() float64    { return a.Min.Y }
func (a AABB) Bottom() float64 { return a.Min.Y + a.Ext.Y }

func (a AABB) Max() V2 { return a.Min.Add(a.Ext) }

func (a AABB) Width() float64  { return a.Ext.X }
func (a AABB) Height() float64 { return a.Ext.Y }

func (a AABB) Center() V2 { return a.Min.Add(a.Ext.Scale(0.5)) }

func (a AABB) Area() float64 { return a.Ext.X * a.Ext.Y }

// Perimeter is the surface-area analogue used by the tree's branch cost
// heuristic; for boxes of similar area it discriminates better than Area.
func (a AABB) Perimeter() float64 { return 2 * (a.Ext.X + a.Ext.Y) }

func (a AABB) Translate(t V2) AABB {
	return AABB{Min: a.Min.Add(t), Ext: a.Ext}
}

// Fattened grows the box by margin on every side.
func (a AABB) Fattened(margin float64) AABB {
	return AABB{
		Min: a.Min.Sub(V2{X: margin, Y: margin}),
		Ext: a.Ext.Add(V2{X: 2 * margin, Y: 2 * margin}),
	}
}

// Union returns the smallest AABB enclosing both boxes.
func (a AABB) Union(b AABB) AABB {
	return FromCorners(
		V2{X: math.Min(a.Left(), b.Left()), Y: math.Min(a.Top(), b.Top())},
		V2{X: math.Max(a.Right(), b.Right()), Y: math.Max(a.Bottom(), b.Bottom())},
	)
}

// Contains reports whether b lies entirely within a.
func (a AABB) Contains(b AABB) bool {
	return b.Left() >= a.Left() && b.Right() <= a.Right() &&
		b.Top() >= a.Top() && b.Bottom() <= a.Bottom()
}

func (a AABB) ContainsPoint(p V2) bool {
	return p.X >= a.Left() && p.X <= a.Right() && p.Y >= a.Top() && p.Y <= a.Bottom()
}

// Overlaps reports whether the two boxes overlap by more than eps on both
// axes. With eps zero, touching boxes do not overlap.
func (a AABB) Overlaps(b AABB, eps float64) bool {
	return a.Right()-b.Left() > eps && b.Right()-a.Left() > eps &&
		a.Bottom()-b.Top() > eps && b.Bottom()-a.Top() > eps
}

// Intersects is the broad-phase variant of Overlaps: touching counts, so a
// fattened bound never produces a false negative at its boundary.
func (a AABB) Intersects(b AABB) bool {
	return a.Right() >= b.Left() && b.Right() >= a.Left() &&
		a.Bottom() >= b.Top() && b.Bottom() >= a.Top()
}

// Penetration returns the minimum translation to add to a's position so that
// a no longer overlaps b, and whether the boxes overlap at all. This is the
// axis-aligned reduction of the separating-axis test: the push-out happens
// along the single axis with the smaller absolute correction.
func (a AABB) Penetration(b AABB, eps float64) (V2, bool) {
	if !a.Overlaps(b, eps) {
		return V2{}, false
	}
	var dx float64
	if a.Center().X < b.Center().X {
		dx = b.Left() - a.Right() // push a left
	} else {
		dx = b.Right() - a.Left() // push a right
	}
	var dy float64
	if a.Center().Y < b.Center().Y {
		dy = b.Top() - a.Bottom() // push a up
	} else {
		dy = b.Bottom() - a.Top() // push a down
	}
	if math.Abs(dx) < math.Abs(dy) {
		return V2{X: dx}, true
	}
	return V2{Y: dy}, true
}

// DistanceSqToPoint returns the squared distance from p to the box, zero when
// p is inside.
func (a AABB) DistanceSqToPoint(p V2) float64 {
	dx := math.Max(0, math.Max(a.Left()-p.X, p.X-a.Right()))
	dy := math.Max(0, math.Max(a.Top()-p.Y, p.Y-a.Bottom()))
	return dx*dx + dy*dy
}
