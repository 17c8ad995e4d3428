package zone

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/spatial"
)

type fixture struct {
	sys       *System
	bus       bus.EventBus
	tree      *spatial.Tree
	zones     *ecs.Store[Zone]
	positions *ecs.Store[geom.V2]
	shapes    *ecs.Store[geom.Shape]
	events    []TransitionEvent
	frame     uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bus:       bus.New(),
		tree:      spatial.NewTree(spatial.DefaultMargin),
		zones:     ecs.NewStore[Zone](),
		positions: ecs.NewStore[geom.V2](),
		shapes:    ecs.NewStore[geom.Shape](),
	}
	f.sys = NewSystem(Deps{
		Logger:    log.Nop(),
		Tree:      f.tree,
		Bus:       f.bus,
		Zones:     f.zones,
		Positions: f.positions,
		Shapes:    f.shapes,
	})
	_, err := f.bus.Subscribe(EventTransition, func(e bus.Event) error {
		f.events = append(f.events, e.Data().(TransitionEvent))
		return nil
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) addZone(id ecs.EntityID, shape geom.Shape, pos geom.V2) {
	f.zones.Set(id, Zone{Name: "test"})
	f.positions.Set(id, pos)
	f.shapes.Set(id, shape)
}

func (f *fixture) addEntity(t *testing.T, id ecs.EntityID, shape geom.Shape, pos geom.V2) {
	t.Helper()
	f.positions.Set(id, pos)
	f.shapes.Set(id, shape)
	require.NoError(t, f.tree.Insert(id, shape.WorldBounds(pos)))
}

func (f *fixture) moveEntity(t *testing.T, id ecs.EntityID, pos geom.V2) {
	t.Helper()
	f.positions.Set(id, pos)
	shape, _ := f.shapes.Get(id)
	require.NoError(t, f.tree.Update(id, shape.WorldBounds(pos)))
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	f.frame++
	require.NoError(t, f.sys.Update(f.frame, 1))
}

func TestEnterExitLifecycle(t *testing.T) {
	f := newFixture(t)
	const zoneID, walker ecs.EntityID = 1, 2

	f.addZone(zoneID, geom.Box(10, 10), geom.V2{})
	f.addEntity(t, walker, geom.Box(1, 1), geom.V2{X: 50})

	f.tick(t)
	require.Equal(t, Outside, f.sys.PhaseOf(zoneID, walker))

	f.moveEntity(t, walker, geom.V2{X: 4, Y: 4})
	f.tick(t)
	require.Equal(t, Entering, f.sys.PhaseOf(zoneID, walker))

	f.tick(t)
	require.Equal(t, Inside, f.sys.PhaseOf(zoneID, walker))
	f.tick(t)
	require.Equal(t, Inside, f.sys.PhaseOf(zoneID, walker))

	f.moveEntity(t, walker, geom.V2{X: 50})
	f.tick(t)
	require.Equal(t, Exiting, f.sys.PhaseOf(zoneID, walker))

	f.tick(t)
	require.Equal(t, Outside, f.sys.PhaseOf(zoneID, walker))

	require.Equal(t, []TransitionEvent{
		{Zone: zoneID, Entity: walker, Transition: Entered},
		{Zone: zoneID, Entity: walker, Transition: Exited},
	}, f.events)
}

func TestOneFrameGrazeStillEmitsBothEdges(t *testing.T) {
	f := newFixture(t)
	const zoneID, walker ecs.EntityID = 1, 2

	f.addZone(zoneID, geom.Box(10, 10), geom.V2{})
	f.addEntity(t, walker, geom.Box(1, 1), geom.V2{X: 4, Y: 4})

	// Overlaps for a single frame, then gone. The transitional phases still
	// play out in full: Entering, Inside, Exiting, Outside.
	f.tick(t)
	require.Equal(t, Entering, f.sys.PhaseOf(zoneID, walker))

	f.moveEntity(t, walker, geom.V2{X: 50})
	f.tick(t)
	require.Equal(t, Inside, f.sys.PhaseOf(zoneID, walker))
	f.tick(t)
	require.Equal(t, Exiting, f.sys.PhaseOf(zoneID, walker))
	f.tick(t)
	require.Equal(t, Outside, f.sys.PhaseOf(zoneID, walker))

	require.Equal(t, []TransitionEvent{
		{Zone: zoneID, Entity: walker, Transition: Entered},
		{Zone: zoneID, Entity: walker, Transition: Exited},
	}, f.events)
}

func TestTouchingEdgeIsNotContainment(t *testing.T) {
	f := newFixture(t)
	const zoneID, walker ecs.EntityID = 1, 2

	f.addZone(zoneID, geom.Box(10, 10), geom.V2{})
	// Shares the x=10 edge with the zone, zero interior overlap.
	f.addEntity(t, walker, geom.Box(1, 1), geom.V2{X: 10, Y: 4})

	f.tick(t)
	require.Equal(t, Outside, f.sys.PhaseOf(zoneID, walker))
	require.Empty(t, f.events)
}

func TestInsideMembership(t *testing.T) {
	f := newFixture(t)
	const zoneID, a, b ecs.EntityID = 1, 5, 3

	f.addZone(zoneID, geom.Box(10, 10), geom.V2{})
	f.addEntity(t, a, geom.Box(1, 1), geom.V2{X: 2, Y: 2})
	f.addEntity(t, b, geom.Box(1, 1), geom.V2{X: 6, Y: 6})

	f.tick(t)
	require.Equal(t, []ecs.EntityID{b, a}, f.sys.Inside(zoneID))

	// A leaving entity drops out of membership on the Exiting frame.
	f.moveEntity(t, a, geom.V2{X: 50})
	f.tick(t)
	f.tick(t)
	require.Equal(t, Exiting, f.sys.PhaseOf(zoneID, a))
	require.Equal(t, []ecs.EntityID{b}, f.sys.Inside(zoneID))
}

func TestZonesIgnoreEachOther(t *testing.T) {
	f := newFixture(t)
	const za, zb ecs.EntityID = 1, 2

	f.addZone(za, geom.Box(10, 10), geom.V2{})
	f.addZone(zb, geom.Box(10, 10), geom.V2{X: 5})
	require.NoError(t, f.tree.Insert(zb, geom.Box(10, 10).WorldBounds(geom.V2{X: 5})))

	f.tick(t)
	require.Empty(t, f.events)
	require.Empty(t, f.sys.Inside(za))
}
