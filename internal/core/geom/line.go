package geom

// LineSegment is a directed segment from A to B. Direction matters: the sign
// of Side distinguishes the two half-planes, which is how fences tell which
// way they were crossed.
type LineSegment struct {
	A V2
	B V2
}

func NewLineSegment(a, b V2) LineSegment {
	return LineSegment{A: a, B: b}
}

func (l LineSegment) Dir() V2 { return l.B.Sub(l.A) }

// Side returns the sign of the cross product of the segment direction with
// the vector from A to p: positive on one side, negative on the other, zero
// on the line.
func (l LineSegment) Side(p V2) float64 {
	return l.Dir().Cross(p.Sub(l.A))
}

// Bounds returns the AABB enclosing the segment.
func (l LineSegment) Bounds() AABB {
	return FromCorners(l.A, l.B)
}

// Intersection returns the point where the two segments cross. Parallel and
// non-crossing segments return false. Endpoint touches count as crossings.
func (l LineSegment) Intersection(o LineSegment) (V2, bool) {
	d1 := l.Dir()
	d2 := o.Dir()
	denom := d1.Cross(d2)
	if denom == 0 {
		return V2{}, false
	}
	diff := o.A.Sub(l.A)
	t := diff.Cross(d2) / denom
	u := diff.Cross(d1) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return V2{}, false
	}
	return l.A.Add(d1.Scale(t)), true
}
