package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedgerow/hedgerow/internal/core/action"
	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/fence"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/inventory"
	"github.com/hedgerow/hedgerow/internal/core/zone"
)

func TestWalkIntoWallStops(t *testing.T) {
	w := New(Options{})

	player := w.Spawn()
	require.NoError(t, w.AddBody(player, geom.Box(1, 1), geom.V2{X: 8, Y: 4.5}))
	w.SetVelocity(player, geom.V2{X: 5})
	w.MakeBarrier(player)

	wall := w.Spawn()
	require.NoError(t, w.AddBody(wall, geom.Box(10, 10), geom.V2{X: 10}))
	w.MakeBarrier(wall)

	for i := 0; i < 2; i++ {
		require.NoError(t, w.Step(1))
	}
	require.EqualValues(t, 2, w.Frame())

	pos, ok := w.Positions.Get(player)
	require.True(t, ok)
	require.InDelta(t, 9.0, pos.X, 1e-9)

	wallPos, _ := w.Positions.Get(wall)
	require.Equal(t, geom.V2{X: 10}, wallPos)
}

// TestKeyUnlocksDoor drives the whole loop: walk to the key, pick it up via
// its action, walk to the door, and confirm the door's action only became
// available once the key was in hand.
func TestKeyUnlocksDoor(t *testing.T) {
	w := New(Options{})

	player := w.Spawn()
	require.NoError(t, w.AddBody(player, geom.Box(1, 1), geom.V2{}))
	w.GiveInventory(player)

	key := w.Ledger.Mint(inventory.Item{Name: "white key", Usable: true})

	pickup := w.Spawn()
	require.NoError(t, w.AddAction(pickup, action.Action{
		Text:     "Pick up white key",
		Fitness:  action.HasInventory(),
		Lifespan: action.Uses(1),
	}, geom.Box(3, 3), geom.V2{X: 20}))

	door := w.Spawn()
	require.NoError(t, w.AddAction(door, action.Action{
		Text:     "Unlock the door",
		Fitness:  action.HasItem("white key"),
		Lifespan: action.Forever(),
	}, geom.Box(3, 3), geom.V2{X: 40}))

	walkTo := func(pos geom.V2) {
		w.Positions.Set(player, pos)
		require.NoError(t, w.Tree.Update(player, geom.Box(1, 1).WorldBounds(pos)))
		require.NoError(t, w.Step(1))
	}

	walkTo(geom.V2{X: 21, Y: 1})
	require.Equal(t, []ecs.EntityID{pickup}, w.Evaluator.Available(player))

	require.NoError(t, w.Evaluator.Take(player, pickup))
	require.NoError(t, w.Ledger.Give(player, key))
	// Single use: the pickup action is gone.
	require.False(t, w.Actions.Has(pickup))

	walkTo(geom.V2{X: 41, Y: 1})
	walkTo(geom.V2{X: 41, Y: 1})
	require.Equal(t, []ecs.EntityID{door}, w.Evaluator.Available(player))
	require.NoError(t, w.Evaluator.Take(player, door))
}

func TestPipelineOrderWithinFrame(t *testing.T) {
	w := New(Options{})

	// A sensor body overlapping a zone from frame one. Physics publishes its
	// contact and the zone system its Entered within the same Step, contact
	// first.
	var order []string
	_, err := w.Bus.Subscribe(bus.TypeAny, func(e bus.Event) error {
		order = append(order, e.Type())
		return nil
	})
	require.NoError(t, err)

	mob := w.Spawn()
	require.NoError(t, w.AddBody(mob, geom.Box(1, 1), geom.V2{X: 1, Y: 1}))
	w.SetVelocity(mob, geom.V2{X: 0.1})

	pebble := w.Spawn()
	require.NoError(t, w.AddBody(pebble, geom.Box(1, 1), geom.V2{X: 1.5, Y: 1}))

	sensor := w.Spawn()
	require.NoError(t, w.AddZone(sensor, "meadow", geom.Box(10, 10), geom.V2{}))

	require.NoError(t, w.Step(1))
	require.GreaterOrEqual(t, len(order), 3)
	require.Equal(t, "physics.contact", order[0])
	require.Equal(t, "zone.transition", order[1])
}

func TestDespawnClearsEverything(t *testing.T) {
	w := New(Options{})

	mob := w.Spawn()
	require.NoError(t, w.AddBody(mob, geom.Box(1, 1), geom.V2{}))
	w.SetVelocity(mob, geom.V2{X: 1})
	w.GiveInventory(mob)
	coin := w.Ledger.Mint(inventory.Item{Name: "coin", Stack: 1})
	require.NoError(t, w.Ledger.Give(mob, coin))

	w.Despawn(mob)

	require.False(t, w.Positions.Has(mob))
	require.False(t, w.Tree.Contains(mob))
	_, owned := w.Ledger.Owner(coin)
	require.False(t, owned)

	require.NoError(t, w.Step(1))
}

func TestStepFenceThroughEngine(t *testing.T) {
	w := New(Options{})

	gate := w.Spawn()
	w.AddStepFence(gate, fence.StepFence{Fence: fence.Fence{
		Name:   "stairs",
		Points: []geom.V2{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}}, geom.V2{})

	walker := w.Spawn()
	require.NoError(t, w.AddBody(walker, geom.Box(1, 1), geom.V2{X: 4.5, Y: -3}))
	w.SetVelocity(walker, geom.V2{Y: 2})

	var completed []fence.CompleteEvent
	_, err := w.Bus.Subscribe(fence.EventComplete, func(e bus.Event) error {
		completed = append(completed, e.Data().(fence.CompleteEvent))
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, w.Step(1))
	}
	require.Equal(t, []fence.CompleteEvent{{Fence: gate, Entity: walker}}, completed)
	require.Equal(t, 1, w.FenceSys.StepIndex(gate, walker))
}

func TestZoneEventsThroughEngine(t *testing.T) {
	w := New(Options{})

	meadow := w.Spawn()
	require.NoError(t, w.AddZone(meadow, "meadow", geom.Box(10, 10), geom.V2{}))

	mob := w.Spawn()
	require.NoError(t, w.AddBody(mob, geom.Box(1, 1), geom.V2{X: -5, Y: 4}))
	w.SetVelocity(mob, geom.V2{X: 3})

	var transitions []zone.TransitionEvent
	_, err := w.Bus.Subscribe(zone.EventTransition, func(e bus.Event) error {
		transitions = append(transitions, e.Data().(zone.TransitionEvent))
		return nil
	})
	require.NoError(t, err)

	// Crosses the 10-wide zone in a handful of frames, then leaves.
	for i := 0; i < 8; i++ {
		require.NoError(t, w.Step(1))
	}
	require.Equal(t, []zone.TransitionEvent{
		{Zone: meadow, Entity: mob, Transition: zone.Entered},
		{Zone: meadow, Entity: mob, Transition: zone.Exited},
	}, transitions)
}
