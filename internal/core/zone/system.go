package zone

import (
	"sort"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/spatial"
)

// System advances the per (zone, entity) containment state machine. It only
// reads the spatial index; it must run after the physics pass has settled
// positions for the frame.
type System struct {
	logger  log.Log
	tree    *spatial.Tree
	bus     bus.EventBus
	epsilon float64

	zones     *ecs.Store[Zone]
	positions *ecs.Store[geom.V2]
	shapes    *ecs.Store[geom.Shape]

	// states[zone][entity], absent means Outside
	states map[ecs.EntityID]map[ecs.EntityID]Phase
}

// Deps collects the stores and resources the zone system works on. Epsilon
// matches the collision epsilon so containment and contact agree on what
// counts as touching.
type Deps struct {
	Logger    log.Log
	Tree      *spatial.Tree
	Bus       bus.EventBus
	Epsilon   float64
	Zones     *ecs.Store[Zone]
	Positions *ecs.Store[geom.V2]
	Shapes    *ecs.Store[geom.Shape]
}

func NewSystem(d Deps) *System {
	return &System{
		logger:    d.Logger.With(log.String("system", "zone")),
		tree:      d.Tree,
		bus:       d.Bus,
		epsilon:   d.Epsilon,
		zones:     d.Zones,
		positions: d.Positions,
		shapes:    d.Shapes,
		states:    make(map[ecs.EntityID]map[ecs.EntityID]Phase),
	}
}

func (s *System) Name() string  { return "zone" }
func (s *System) Priority() int { return 200 }

// Update recomputes overlap for every zone and steps each tracked pair's
// phase. Entered fires on the Outside to Entering edge, Exited on the Inside
// to Exiting edge; the transitional phases decay unconditionally next frame.
func (s *System) Update(frame uint64, _ float64) error {
	var events []bus.Event
	s.zones.Each(func(zoneID ecs.EntityID, _ Zone) bool {
		events = s.updateZone(frame, zoneID, events)
		return true
	})
	sort.SliceStable(events, func(i, j int) bool {
		a := events[i].Data().(TransitionEvent)
		b := events[j].Data().(TransitionEvent)
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		return a.Entity < b.Entity
	})
	if err := s.bus.PublishBatch(events...); err != nil {
		s.logger.Error("zone event delivery failed", log.Error(err))
	}
	return nil
}

func (s *System) updateZone(frame uint64, zoneID ecs.EntityID, events []bus.Event) []bus.Event {
	overlap := s.overlapSet(zoneID)
	tracked := s.states[zoneID]

	ids := make([]ecs.EntityID, 0, len(overlap)+len(tracked))
	for id := range overlap {
		ids = append(ids, id)
	}
	for id := range tracked {
		if _, ok := overlap[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		phase := tracked[id]
		next, transition := step(phase, overlap[id])
		switch {
		case next == Outside:
			delete(tracked, id)
		default:
			if tracked == nil {
				tracked = make(map[ecs.EntityID]Phase)
				s.states[zoneID] = tracked
			}
			tracked[id] = next
		}
		if transition != nil {
			events = append(events, bus.NewEvent(EventTransition, frame, TransitionEvent{
				Zone:       zoneID,
				Entity:     id,
				Transition: *transition,
			}))
		}
	}
	if len(tracked) == 0 {
		delete(s.states, zoneID)
	}
	return events
}

// step advances one pair's phase for the frame. The second return reports
// the transition to emit, if any.
func step(phase Phase, overlapping bool) (Phase, *Transition) {
	switch phase {
	case Outside:
		if overlapping {
			t := Entered
			return Entering, &t
		}
		return Outside, nil
	case Entering:
		return Inside, nil
	case Inside:
		if overlapping {
			return Inside, nil
		}
		t := Exited
		return Exiting, &t
	default: // Exiting
		return Outside, nil
	}
}

// overlapSet returns the entities whose shapes strictly overlap the zone's
// shape this frame. Candidates come from the index; sub-box overlap decides.
func (s *System) overlapSet(zoneID ecs.EntityID) map[ecs.EntityID]bool {
	zonePos, ok := s.positions.Get(zoneID)
	if !ok {
		s.logger.Warn("zone has no position, skipped", log.Uint64("zone", uint64(zoneID)))
		return nil
	}
	zoneShape, ok := s.shapes.Get(zoneID)
	if !ok {
		s.logger.Warn("zone has no shape, skipped", log.Uint64("zone", uint64(zoneID)))
		return nil
	}

	out := make(map[ecs.EntityID]bool)
	bounds := zoneShape.WorldBounds(zonePos)
	s.tree.QueryOverlapping(bounds).Each(func(id ecs.EntityID) {
		if id == zoneID || s.zones.Has(id) {
			return
		}
		pos, ok := s.positions.Get(id)
		if !ok {
			return
		}
		shape, ok := s.shapes.Get(id)
		if !ok {
			return
		}
		if s.shapesOverlap(zoneShape, zonePos, shape, pos) {
			out[id] = true
		}
	})
	return out
}

func (s *System) shapesOverlap(za geom.Shape, pa geom.V2, zb geom.Shape, pb geom.V2) bool {
	hit := false
	za.EachWorldBox(pa, func(wa geom.AABB) bool {
		zb.EachWorldBox(pb, func(wb geom.AABB) bool {
			if wa.Overlaps(wb, s.epsilon) {
				hit = true
			}
			return !hit
		})
		return !hit
	})
	return hit
}

// Inside returns the entities currently contained in the zone, in ascending
// entity order. Entering counts as contained; Exiting does not.
func (s *System) Inside(zoneID ecs.EntityID) []ecs.EntityID {
	tracked := s.states[zoneID]
	out := make([]ecs.EntityID, 0, len(tracked))
	for id, phase := range tracked {
		if phase == Entering || phase == Inside {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PhaseOf reports the pair's current phase. Unknown pairs are Outside.
func (s *System) PhaseOf(zoneID, entityID ecs.EntityID) Phase {
	return s.states[zoneID][entityID]
}
