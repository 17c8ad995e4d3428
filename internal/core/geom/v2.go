package geom

import "math"

// V2 is a 2D vector with float64 components.
type V2 struct {
	X float64
	Y float64
}

func NewV2(x, y float64) V2 { return V2{X: x, Y: y} }

func (v V2) Add(o V2) V2 { return V2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v V2) Sub(o V2) V2 { return V2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v V2) Scale(s float64) V2 { return V2{X: v.X * s, Y: v.Y * s} }

func (v V2) Dot(o V2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z component of the 3D cross product, the signed area of
// the parallelogram spanned by v and o.
func (v V2) Cross(o V2) float64 { return v.X*o.Y - v.Y*o.X }

func (v V2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v V2) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

func (v V2) DistanceTo(o V2) float64 { return o.Sub(v).Len() }

func (v V2) IsZero() bool { return v.X == 0 && v.Y == 0 }
