package fence

import (
	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/geom"
)

// Event topics published by the fence system.
const (
	EventCrossed       = "fence.crossed"
	EventStepViolation = "fence.step_violation"
	EventComplete      = "fence.complete"
)

// Fence is a directed polyline in entity-local space. A crossing is detected
// when the segment made by an entity's previous and current centers
// intersects one of the fence's segments; the sign of the cross product of
// the fence direction against the movement gives the crossing direction.
type Fence struct {
	Name   string    `json:"name" yaml:"name"`
	Points []geom.V2 `json:"points" yaml:"points"`
}

// Segments returns the fence's world-space segments, consecutive points
// translated by the owning entity's position.
func (f Fence) Segments(pos geom.V2) []geom.LineSegment {
	if len(f.Points) < 2 {
		return nil
	}
	out := make([]geom.LineSegment, 0, len(f.Points)-1)
	for i := 0; i+1 < len(f.Points); i++ {
		out = append(out, geom.LineSegment{
			A: f.Points[i].Add(pos),
			B: f.Points[i+1].Add(pos),
		})
	}
	return out
}

// StepFence is a fence whose segments are ordered checkpoints: an entity
// makes progress only by crossing segment i forward while its counter is i.
// Any other crossing is a violation and leaves the counter alone.
type StepFence struct {
	Fence `yaml:",inline"`
}

// Crossing describes one detected crossing: which segment, and the signed
// direction. Dir is +1 when the movement crosses with a positive cross
// product against the fence direction, -1 otherwise; consumers use it for
// things like stepping an elevation level up or down.
type Crossing struct {
	Segment int
	Dir     int
}

// CrossingEvent is the payload on EventCrossed and EventStepViolation.
type CrossingEvent struct {
	Fence   ecs.EntityID `json:"fence"`
	Entity  ecs.EntityID `json:"entity"`
	Segment int          `json:"segment"`
	Dir     int          `json:"dir"`
}

// CompleteEvent is the payload on EventComplete.
type CompleteEvent struct {
	Fence  ecs.EntityID `json:"fence"`
	Entity ecs.EntityID `json:"entity"`
}
