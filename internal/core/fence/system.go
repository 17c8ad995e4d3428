package fence

import (
	"sort"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/spatial"
)

// System watches moving entities near fences and publishes crossings. Like
// the zone system it only reads the spatial index, so it runs after physics.
//
// Crossing detection needs the previous frame's center for each watched
// entity; an entity seen near a fence for the first time is only recorded
// and can cross from the next frame on.
type System struct {
	logger log.Log
	tree   *spatial.Tree
	bus    bus.EventBus

	fences     *ecs.Store[Fence]
	stepFences *ecs.Store[StepFence]
	positions  *ecs.Store[geom.V2]
	velocities *ecs.Store[geom.V2]
	shapes     *ecs.Store[geom.Shape]

	// watching[fence][entity] is the entity's center last frame
	watching map[ecs.EntityID]map[ecs.EntityID]geom.V2
	// counters[fence][entity] is the step-fence progress index
	counters map[ecs.EntityID]map[ecs.EntityID]int
	// completed[fence][entity] marks fences already walked end to end
	completed map[ecs.EntityID]map[ecs.EntityID]bool
}

// Deps collects the stores and resources the fence system works on.
type Deps struct {
	Logger     log.Log
	Tree       *spatial.Tree
	Bus        bus.EventBus
	Fences     *ecs.Store[Fence]
	StepFences *ecs.Store[StepFence]
	Positions  *ecs.Store[geom.V2]
	Velocities *ecs.Store[geom.V2]
	Shapes     *ecs.Store[geom.Shape]
}

func NewSystem(d Deps) *System {
	return &System{
		logger:     d.Logger.With(log.String("system", "fence")),
		tree:       d.Tree,
		bus:        d.Bus,
		fences:     d.Fences,
		stepFences: d.StepFences,
		positions:  d.Positions,
		velocities: d.Velocities,
		shapes:     d.Shapes,
		watching:   make(map[ecs.EntityID]map[ecs.EntityID]geom.V2),
		counters:   make(map[ecs.EntityID]map[ecs.EntityID]int),
		completed:  make(map[ecs.EntityID]map[ecs.EntityID]bool),
	}
}

func (s *System) Name() string  { return "fence" }
func (s *System) Priority() int { return 300 }

func (s *System) Update(frame uint64, _ float64) error {
	var events []bus.Event
	s.fences.Each(func(id ecs.EntityID, f Fence) bool {
		for _, c := range s.runFence(id, f) {
			events = append(events, bus.NewEvent(EventCrossed, frame, CrossingEvent{
				Fence:   id,
				Entity:  c.entity,
				Segment: c.Segment,
				Dir:     c.Dir,
			}))
		}
		return true
	})
	s.stepFences.Each(func(id ecs.EntityID, f StepFence) bool {
		events = s.runStepFence(frame, id, f, events)
		return true
	})
	if err := s.bus.PublishBatch(events...); err != nil {
		s.logger.Error("fence event delivery failed", log.Error(err))
	}
	return nil
}

type entityCrossing struct {
	entity ecs.EntityID
	Crossing
}

// runFence refreshes the fence's watch set and returns this frame's
// crossings in ascending entity order. Each entity reports at most one
// crossing per fence per frame, the earliest segment hit.
func (s *System) runFence(fenceID ecs.EntityID, f Fence) []entityCrossing {
	pos, ok := s.positions.Get(fenceID)
	if !ok {
		s.logger.Warn("fence has no position, skipped", log.Uint64("fence", uint64(fenceID)))
		return nil
	}
	segments := f.Segments(pos)
	if len(segments) == 0 {
		return nil
	}

	last := s.watching[fenceID]
	next := make(map[ecs.EntityID]geom.V2)
	s.watching[fenceID] = next

	var crossings []entityCrossing
	for _, seg := range segments {
		// Everything within a segment length of the segment can have
		// crossed it since last frame.
		reach := seg.Bounds().Fattened(seg.Dir().Len())
		s.tree.QueryOverlapping(reach).Each(func(id ecs.EntityID) {
			if id == fenceID {
				return
			}
			center, ok := s.center(id)
			if !ok {
				return
			}
			if _, seen := next[id]; !seen {
				next[id] = center
			}
		})
	}

	ids := make([]ecs.EntityID, 0, len(next))
	for id := range next {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		// Only moving entities cross fences.
		if !s.velocities.Has(id) {
			continue
		}
		prev, watched := last[id]
		if !watched {
			continue
		}
		path := geom.LineSegment{A: prev, B: next[id]}
		if c, ok := firstCrossing(segments, path); ok {
			crossings = append(crossings, entityCrossing{entity: id, Crossing: c})
		}
	}
	return crossings
}

// firstCrossing returns the lowest-index segment the path intersects.
// Movement parallel to a segment never counts as a crossing.
func firstCrossing(segments []geom.LineSegment, path geom.LineSegment) (Crossing, bool) {
	if path.A == path.B {
		return Crossing{}, false
	}
	for i, seg := range segments {
		if _, ok := seg.Intersection(path); !ok {
			continue
		}
		cross := seg.Dir().Cross(path.Dir())
		if cross == 0 {
			continue
		}
		dir := 1
		if cross < 0 {
			dir = -1
		}
		return Crossing{Segment: i, Dir: dir}, true
	}
	return Crossing{}, false
}

// runStepFence applies the checkpoint rules on top of plain crossing
// detection: segment i crossed forward while the entity's counter is i
// advances; anything else is a violation. Completion fires once, when the
// final checkpoint is accepted.
func (s *System) runStepFence(frame uint64, fenceID ecs.EntityID, f StepFence, events []bus.Event) []bus.Event {
	segmentCount := len(f.Points) - 1
	for _, c := range s.runFence(fenceID, f.Fence) {
		counter := s.counters[fenceID][c.entity]
		accepted := c.Segment == counter && c.Dir > 0 && !s.completedBy(fenceID, c.entity)
		if !accepted {
			events = append(events, bus.NewEvent(EventStepViolation, frame, CrossingEvent{
				Fence:   fenceID,
				Entity:  c.entity,
				Segment: c.Segment,
				Dir:     c.Dir,
			}))
			continue
		}
		s.setCounter(fenceID, c.entity, counter+1)
		if counter+1 == segmentCount {
			// The final checkpoint reports completion, not progress.
			s.markCompleted(fenceID, c.entity)
			events = append(events, bus.NewEvent(EventComplete, frame, CompleteEvent{
				Fence:  fenceID,
				Entity: c.entity,
			}))
			continue
		}
		events = append(events, bus.NewEvent(EventCrossed, frame, CrossingEvent{
			Fence:   fenceID,
			Entity:  c.entity,
			Segment: c.Segment,
			Dir:     c.Dir,
		}))
	}
	return events
}

// StepIndex reports an entity's progress counter on a step fence.
func (s *System) StepIndex(fenceID, entityID ecs.EntityID) int {
	return s.counters[fenceID][entityID]
}

func (s *System) completedBy(fenceID, entityID ecs.EntityID) bool {
	return s.completed[fenceID][entityID]
}

func (s *System) setCounter(fenceID, entityID ecs.EntityID, v int) {
	m := s.counters[fenceID]
	if m == nil {
		m = make(map[ecs.EntityID]int)
		s.counters[fenceID] = m
	}
	m[entityID] = v
}

func (s *System) markCompleted(fenceID, entityID ecs.EntityID) {
	m := s.completed[fenceID]
	if m == nil {
		m = make(map[ecs.EntityID]bool)
		s.completed[fenceID] = m
	}
	m[entityID] = true
}

func (s *System) center(id ecs.EntityID) (geom.V2, bool) {
	pos, ok := s.positions.Get(id)
	if !ok {
		return geom.V2{}, false
	}
	shape, ok := s.shapes.Get(id)
	if !ok {
		return geom.V2{}, false
	}
	return shape.WorldBounds(pos).Center(), true
}
