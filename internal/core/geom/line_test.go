package geom

import "testing"

func TestSideSign(t *testing.T) {
	l := NewLineSegment(V2{X: 0, Y: 0}, V2{X: 10, Y: 0})
	if s := l.Side(V2{X: 5, Y: 5}); s <= 0 {
		t.Fatalf("below-line side = %v, want positive", s)
	}
	if s := l.Side(V2{X: 5, Y: -5}); s >= 0 {
		t.Fatalf("above-line side = %v, want negative", s)
	}
	if s := l.Side(V2{X: 5, Y: 0}); s != 0 {
		t.Fatalf("colinear side = %v, want zero", s)
	}
}

func TestIntersection(t *testing.T) {
	l := NewLineSegment(V2{X: 0, Y: 0}, V2{X: 10, Y: 0})
	cross := NewLineSegment(V2{X: 5, Y: -1}, V2{X: 5, Y: 1})
	p, ok := l.Intersection(cross)
	if !ok || p.X != 5 || p.Y != 0 {
		t.Fatalf("intersection = %+v %v", p, ok)
	}

	short := NewLineSegment(V2{X: 5, Y: 1}, V2{X: 5, Y: 2})
	if _, ok = l.Intersection(short); ok {
		t.Fatal("segments do not reach each other")
	}

	parallel := NewLineSegment(V2{X: 0, Y: 1}, V2{X: 10, Y: 1})
	if _, ok = l.Intersection(parallel); ok {
		t.Fatal("parallel segments cannot intersect")
	}
}

func TestShapeBounds(t *testing.T) {
	s := Compound(NewAABB(0, 0, 1, 1), NewAABB(2, -1, 1, 1))
	b := s.Bounds()
	if b.Left() != 0 || b.Top() != -1 || b.Right() != 3 || b.Bottom() != 1 {
		t.Fatalf("bounds: %+v", b)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (Shape{}).Validate(); err == nil {
		t.Fatal("empty shape must not validate")
	}
}
