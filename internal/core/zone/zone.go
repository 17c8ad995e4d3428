package zone

import (
	"github.com/hedgerow/hedgerow/internal/core/ecs"
)

// EventTransition is published once per entry and once per exit of a zone.
const EventTransition = "zone.transition"

// Zone marks an entity as a sensor region. The entity's Shape and Position
// components give the region its bounds; zones never block movement.
type Zone struct {
	Name string `json:"name" yaml:"name"`
}

// Phase is the per (zone, entity) containment state. Entering and Exiting
// last exactly one frame, so every entry and exit is observable as one
// discrete step regardless of how long the overlap lasts.
type Phase uint8

const (
	Outside Phase = iota
	Entering
	Inside
	Exiting
)

func (p Phase) String() string {
	switch p {
	case Entering:
		return "entering"
	case Inside:
		return "inside"
	case Exiting:
		return "exiting"
	default:
		return "outside"
	}
}

// Transition is the direction of a containment change.
type Transition uint8

const (
	Entered Transition = iota
	Exited
)

func (t Transition) String() string {
	if t == Exited {
		return "exited"
	}
	return "entered"
}

// TransitionEvent is the payload carried by EventTransition events.
type TransitionEvent struct {
	Zone       ecs.EntityID `json:"zone"`
	Entity     ecs.EntityID `json:"entity"`
	Transition Transition   `json:"transition"`
}
