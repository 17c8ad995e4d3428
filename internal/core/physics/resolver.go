package physics

import (
	"math"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/geom"
)

// ContactKind classifies a narrow-phase contact.
type ContactKind uint8

const (
	// Sensor contacts are reported but never block movement.
	Sensor ContactKind = iota
	// Blocking contacts resolve by shifting the moving participant.
	Blocking
)

func (k ContactKind) String() string {
	if k == Blocking {
		return "blocking"
	}
	return "sensor"
}

// Body is the narrow-phase view of one entity: its compound shape, world
// position and the two capabilities that decide classification.
type Body struct {
	ID      ecs.EntityID
	Shape   geom.Shape
	Pos     geom.V2
	Barrier bool
	Moving  bool
}

// Contact is the result of resolving one candidate pair. Penetration is the
// minimum translation to add to A's position so the shapes separate; the
// inverse applies to B.
type Contact struct {
	A           ecs.EntityID
	B           ecs.EntityID
	Penetration geom.V2
	Kind        ContactKind
}

// Resolver performs the narrow-phase test for candidate pairs. Epsilon
// absorbs boundary jitter: overlaps not exceeding it on either axis are
// ignored.
type Resolver struct {
	Epsilon float64
}

// Resolve tests every sub-box pair of the two compound shapes and keeps the
// contact with the smallest-magnitude penetration, which avoids large
// spurious corrections from unrelated overlapping sub-boxes. Returns false
// when the shapes do not overlap.
//
// Classification: a pair blocks only when both participants carry a barrier
// and at least one is moving. Everything else is a sensor contact.
func (r Resolver) Resolve(a, b Body) (Contact, bool) {
	best := geom.V2{}
	bestMag := math.Inf(1)
	found := false

	a.Shape.EachWorldBox(a.Pos, func(wa geom.AABB) bool {
		b.Shape.EachWorldBox(b.Pos, func(wb geom.AABB) bool {
			if pen, ok := wa.Penetration(wb, r.Epsilon); ok {
				if mag := pen.Len(); mag < bestMag {
					best = pen
					bestMag = mag
					found = true
				}
			}
			return true
		})
		return true
	})
	if !found {
		return Contact{}, false
	}

	kind := Sensor
	if a.Barrier && b.Barrier && (a.Moving || b.Moving) {
		kind = Blocking
	}
	return Contact{A: a.ID, B: b.ID, Penetration: best, Kind: kind}, true
}
