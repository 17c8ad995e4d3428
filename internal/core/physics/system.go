package physics

import (
	"errors"
	"sort"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/spatial"
)

// EventContact is published once per sensor contact per frame.
const EventContact = "physics.contact"

// ContactEvent is the payload carried by EventContact events.
type ContactEvent struct {
	A ecs.EntityID `json:"a"`
	B ecs.EntityID `json:"b"`
}

// System integrates velocities, maintains the spatial index and resolves
// barrier collisions. It owns the tree for the duration of its update; zone
// and fence systems only read the tree after this system has finished.
type System struct {
	logger   log.Log
	tree     *spatial.Tree
	bus      bus.EventBus
	resolver Resolver

	positions  *ecs.Store[geom.V2]
	velocities *ecs.Store[geom.V2]
	shapes     *ecs.Store[geom.Shape]
	barriers   *ecs.TagStore

	// scratch buffers reused across frames
	moved    []ecs.EntityID
	contacts []Contact
}

// Deps collects the stores and resources the physics system works on.
type Deps struct {
	Logger     log.Log
	Tree       *spatial.Tree
	Bus        bus.EventBus
	Resolver   Resolver
	Positions  *ecs.Store[geom.V2]
	Velocities *ecs.Store[geom.V2]
	Shapes     *ecs.Store[geom.Shape]
	Barriers   *ecs.TagStore
}

func NewSystem(d Deps) *System {
	return &System{
		logger:     d.Logger.With(log.String("system", "physics")),
		tree:       d.Tree,
		bus:        d.Bus,
		resolver:   d.Resolver,
		positions:  d.Positions,
		velocities: d.Velocities,
		shapes:     d.Shapes,
		barriers:   d.Barriers,
	}
}

func (s *System) Name() string  { return "physics" }
func (s *System) Priority() int { return 100 }

// Update runs one frame: integrate, reindex, broad phase, narrow phase with
// a single resolution pass, then publish sensor contacts. Per-entity
// anomalies (missing position, malformed shape) skip the entity and never
// abort the frame.
func (s *System) Update(frame uint64, dt float64) error {
	s.integrate(dt)
	s.reindex()
	s.collide()
	return s.publish(frame)
}

// Contacts returns the previous frame's full contact set, blocking and
// sensor alike. The slice is reused; callers must not retain it.
func (s *System) Contacts() []Contact {
	return s.contacts
}

func (s *System) integrate(dt float64) {
	s.moved = s.moved[:0]
	s.velocities.Each(func(id ecs.EntityID, vel geom.V2) bool {
		if vel.IsZero() {
			return true
		}
		pos, ok := s.positions.Ref(id)
		if !ok {
			s.logger.Warn("entity has velocity but no position, skipping",
				log.Uint64("entity", uint64(id)))
			return true
		}
		*pos = pos.Add(vel.Scale(dt))
		s.moved = append(s.moved, id)
		return true
	})
}

func (s *System) reindex() {
	for _, id := range s.moved {
		s.reindexOne(id)
	}
}

func (s *System) reindexOne(id ecs.EntityID) {
	pos, ok := s.positions.Get(id)
	if !ok {
		return
	}
	shape, ok := s.shapes.Get(id)
	if !ok {
		return
	}
	if err := shape.Validate(); err != nil {
		s.logger.Warn("malformed shape, entity skipped this frame",
			log.Uint64("entity", uint64(id)), log.Error(err))
		return
	}
	bounds := shape.WorldBounds(pos)
	err := s.tree.Update(id, bounds)
	if errors.Is(err, spatial.ErrUnknownEntity) {
		// Spawned by another system since the last frame.
		err = s.tree.Insert(id, bounds)
	}
	if err != nil {
		s.logger.Warn("spatial reindex failed",
			log.Uint64("entity", uint64(id)), log.Error(err))
	}
}

func (s *System) collide() {
	s.contacts = s.contacts[:0]
	// Materialize the candidate set before resolving: corrections reindex the
	// tree, and the lazy pair traversal must not observe mid-pass mutation.
	// Sorting pins the resolution order, keeping frames reproducible.
	pairs := s.tree.QueryPairs().Collect()
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	for _, p := range pairs {
		a, ok := s.body(p.A)
		if !ok {
			continue
		}
		b, ok := s.body(p.B)
		if !ok {
			continue
		}
		contact, ok := s.resolver.Resolve(a, b)
		if !ok {
			continue
		}
		s.contacts = append(s.contacts, contact)
		if contact.Kind == Blocking {
			s.applyCorrection(a, b, contact)
		}
	}
}

// applyCorrection shifts the moving participant by the penetration vector.
// Barriers never move no matter what velocity they carry; when both sides
// move, the correction splits evenly between them.
func (s *System) applyCorrection(a, b Body, contact Contact) {
	switch {
	case a.Moving && b.Moving:
		s.shift(a.ID, contact.Penetration.Scale(0.5))
		s.shift(b.ID, contact.Penetration.Scale(-0.5))
	case a.Moving:
		s.shift(a.ID, contact.Penetration)
	case b.Moving:
		s.shift(b.ID, contact.Penetration.Scale(-1))
	}
}

func (s *System) shift(id ecs.EntityID, delta geom.V2) {
	pos, ok := s.positions.Ref(id)
	if !ok {
		return
	}
	*pos = pos.Add(delta)
	s.reindexOne(id)
}

func (s *System) body(id ecs.EntityID) (Body, bool) {
	pos, ok := s.positions.Get(id)
	if !ok {
		return Body{}, false
	}
	shape, ok := s.shapes.Get(id)
	if !ok {
		return Body{}, false
	}
	return Body{
		ID:      id,
		Shape:   shape,
		Pos:     pos,
		Barrier: s.barriers.Has(id),
		Moving:  s.velocities.Has(id),
	}, true
}

func (s *System) publish(frame uint64) error {
	events := make([]bus.Event, 0, len(s.contacts))
	for _, c := range s.contacts {
		if c.Kind != Sensor {
			continue
		}
		events = append(events, bus.NewEvent(EventContact, frame, ContactEvent{A: c.A, B: c.B}))
	}
	if err := s.bus.PublishBatch(events...); err != nil {
		s.logger.Error("contact event delivery failed", log.Error(err))
	}
	return nil
}
