package engine

import (
	"fmt"

	"github.com/hedgerow/hedgerow/internal/core/action"
	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/events/bus"
	"github.com/hedgerow/hedgerow/internal/core/fence"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/inventory"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/physics"
	"github.com/hedgerow/hedgerow/internal/core/spatial"
	"github.com/hedgerow/hedgerow/internal/core/zone"
)

// Options tune the world's spatial behavior. Zero values fall back to
// defaults.
type Options struct {
	Logger  log.Log
	Margin  float64
	Epsilon float64
}

// World owns every store and shared resource and wires the frame pipeline:
// physics first, then zones, then fences. One World is one simulation; it is
// not safe for concurrent use.
type World struct {
	logger log.Log

	Registry *ecs.Registry
	Tree     *spatial.Tree
	Bus      bus.EventBus

	Positions   *ecs.Store[geom.V2]
	Velocities  *ecs.Store[geom.V2]
	Shapes      *ecs.Store[geom.Shape]
	Barriers    *ecs.TagStore
	Zones       *ecs.Store[zone.Zone]
	Fences      *ecs.Store[fence.Fence]
	StepFences  *ecs.Store[fence.StepFence]
	Inventories *ecs.Store[inventory.Inventory]
	Actions     *ecs.Store[action.Action]

	Ledger    *inventory.Ledger
	Physics   *physics.System
	ZoneSys   *zone.System
	FenceSys  *fence.System
	Evaluator *action.Evaluator

	scheduler *ecs.Scheduler
}

func New(opts Options) *World {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	margin := opts.Margin
	if margin == 0 {
		margin = spatial.DefaultMargin
	}

	w := &World{
		logger:      logger,
		Registry:    ecs.NewRegistry(),
		Tree:        spatial.NewTree(margin),
		Bus:         bus.New(),
		Positions:   ecs.NewStore[geom.V2](),
		Velocities:  ecs.NewStore[geom.V2](),
		Shapes:      ecs.NewStore[geom.Shape](),
		Barriers:    ecs.NewTagStore(),
		Zones:       ecs.NewStore[zone.Zone](),
		Fences:      ecs.NewStore[fence.Fence](),
		StepFences:  ecs.NewStore[fence.StepFence](),
		Inventories: ecs.NewStore[inventory.Inventory](),
		Actions:     ecs.NewStore[action.Action](),
	}
	w.Ledger = inventory.NewLedger(logger, w.Inventories)
	w.Physics = physics.NewSystem(physics.Deps{
		Logger:     logger,
		Tree:       w.Tree,
		Bus:        w.Bus,
		Resolver:   physics.Resolver{Epsilon: opts.Epsilon},
		Positions:  w.Positions,
		Velocities: w.Velocities,
		Shapes:     w.Shapes,
		Barriers:   w.Barriers,
	})
	w.ZoneSys = zone.NewSystem(zone.Deps{
		Logger:    logger,
		Tree:      w.Tree,
		Bus:       w.Bus,
		Epsilon:   opts.Epsilon,
		Zones:     w.Zones,
		Positions: w.Positions,
		Shapes:    w.Shapes,
	})
	w.FenceSys = fence.NewSystem(fence.Deps{
		Logger:     logger,
		Tree:       w.Tree,
		Bus:        w.Bus,
		Fences:     w.Fences,
		StepFences: w.StepFences,
		Positions:  w.Positions,
		Velocities: w.Velocities,
		Shapes:     w.Shapes,
	})
	w.Evaluator = action.NewEvaluator(action.Deps{
		Logger:  logger,
		Actions: w.Actions,
		Zones:   w.ZoneSys,
		Target:  w.Ledger,
	})
	w.scheduler = ecs.NewScheduler(w.Physics, w.ZoneSys, w.FenceSys)
	return w
}

// Step advances the simulation by one fixed timestep.
func (w *World) Step(dt float64) error {
	return w.scheduler.Step(dt)
}

func (w *World) Frame() uint64 { return w.scheduler.Frame() }

// Spawn allocates a fresh entity with no components.
func (w *World) Spawn() ecs.EntityID {
	return w.Registry.Create()
}

// AddBody gives an entity a shape at a position and indexes it. Bodies are
// what physics moves and what zones and fences observe.
func (w *World) AddBody(id ecs.EntityID, shape geom.Shape, pos geom.V2) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("add body %d: %w", id, err)
	}
	w.Positions.Set(id, pos)
	w.Shapes.Set(id, shape)
	if err := w.Tree.Insert(id, shape.WorldBounds(pos)); err != nil {
		return fmt.Errorf("add body %d: %w", id, err)
	}
	return nil
}

func (w *World) SetVelocity(id ecs.EntityID, v geom.V2) {
	w.Velocities.Set(id, v)
}

func (w *World) MakeBarrier(id ecs.EntityID) {
	w.Barriers.Set(id, ecs.Tag{})
}

// AddZone makes the entity a sensor region. The zone itself is not indexed;
// it queries the index for the bodies that wander into it.
func (w *World) AddZone(id ecs.EntityID, name string, shape geom.Shape, pos geom.V2) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("add zone %d: %w", id, err)
	}
	w.Zones.Set(id, zone.Zone{Name: name})
	w.Positions.Set(id, pos)
	w.Shapes.Set(id, shape)
	return nil
}

func (w *World) AddFence(id ecs.EntityID, f fence.Fence, pos geom.V2) {
	w.Fences.Set(id, f)
	w.Positions.Set(id, pos)
}

func (w *World) AddStepFence(id ecs.EntityID, f fence.StepFence, pos geom.V2) {
	w.StepFences.Set(id, f)
	w.Positions.Set(id, pos)
}

// AddAction attaches an action with its interaction area. The area becomes
// a zone on the same entity, so availability follows zone membership.
func (w *World) AddAction(id ecs.EntityID, a action.Action, area geom.Shape, pos geom.V2) error {
	if err := w.AddZone(id, a.Text, area, pos); err != nil {
		return fmt.Errorf("add action %d: %w", id, err)
	}
	w.Actions.Set(id, a)
	return nil
}

// GiveInventory equips the entity with an empty inventory.
func (w *World) GiveInventory(id ecs.EntityID) {
	if !w.Inventories.Has(id) {
		w.Inventories.Set(id, inventory.Inventory{})
	}
}

// Despawn removes the entity from every store and the index.
func (w *World) Despawn(id ecs.EntityID) {
	for _, held := range w.Ledger.Holdings(id) {
		if err := w.Ledger.Drop(held); err != nil {
			w.logger.Warn("despawn could not drop item",
				log.Uint64("entity", uint64(id)), log.Error(err))
		}
	}
	w.Positions.Remove(id)
	w.Velocities.Remove(id)
	w.Shapes.Remove(id)
	w.Barriers.Remove(id)
	w.Zones.Remove(id)
	w.Fences.Remove(id)
	w.StepFences.Remove(id)
	w.Inventories.Remove(id)
	w.Actions.Remove(id)
	if w.Tree.Contains(id) {
		if err := w.Tree.Remove(id); err != nil {
			w.logger.Warn("despawn could not unindex",
				log.Uint64("entity", uint64(id)), log.Error(err))
		}
	}
}
