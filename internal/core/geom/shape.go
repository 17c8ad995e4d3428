package geom

// Shape is one or more AABBs in entity-local space. All sub-boxes move
// together with the owning entity's position. The empty Shape is malformed
// and is rejected by Validate rather than silently treated as a point.
type Shape struct {
	Boxes []AABB
}

// Box builds a single-box shape of the given size anchored at the local
// origin.
func Box(w, h float64) Shape {
	return Shape{Boxes: []AABB{NewAABB(0, 0, w, h)}}
}

// BoxAt builds a single-box shape offset from the local origin.
func BoxAt(x, y, w, h float64) Shape {
	return Shape{Boxes: []AABB{NewAABB(x, y, w, h)}}
}

// Compound builds a shape from an ordered list of local boxes.
func Compound(boxes ...AABB) Shape {
	return Shape{Boxes: boxes}
}

func (s Shape) Validate() error {
	if len(s.Boxes) == 0 {
		return ErrEmptyShape
	}
	for _, b := range s.Boxes {
		if b.Ext.X < 0 || b.Ext.Y < 0 {
			return ErrNegativeExtent
		}
	}
	return nil
}

// Bounds returns the local-space union of all sub-boxes.
func (s Shape) Bounds() AABB {
	if len(s.Boxes) == 0 {
		return AABB{}
	}
	out := s.Boxes[0]
	for _, b := range s.Boxes[1:] {
		out = out.Union(b)
	}
	return out
}

// WorldBounds returns the union AABB translated to the given world position.
func (s Shape) WorldBounds(pos V2) AABB {
	return s.Bounds().Translate(pos)
}

// EachWorldBox calls fn for every sub-box translated to pos, stopping early
// when fn returns false.
func (s Shape) EachWorldBox(pos V2, fn func(AABB) bool) {
	for _, b := range s.Boxes {
		if !fn(b.Translate(pos)) {
			return
		}
	}
}
