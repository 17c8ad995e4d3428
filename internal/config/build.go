package config

import (
	"fmt"

	"github.com/hedgerow/hedgerow/internal/core/action"
	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/engine"
	"github.com/hedgerow/hedgerow/internal/core/fence"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/inventory"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
)

// BuildWorld constructs a world from declarative content. Rule expressions
// are parsed here; a malformed fitness or lifespan string fails the build,
// it never reaches the evaluator at runtime.
func (c *Config) BuildWorld(logger log.Log) (*engine.World, error) {
	w := engine.New(engine.Options{
		Logger:  logger,
		Margin:  c.Tuning.Margin,
		Epsilon: c.Tuning.Epsilon,
	})

	holders := make(map[string]ecs.EntityID)
	for _, b := range c.World.Bodies {
		id := w.Spawn()
		if err := w.AddBody(id, shapeOf(b.Boxes), vec(b.Pos)); err != nil {
			return nil, fmt.Errorf("config: body %q: %w", b.Name, err)
		}
		if b.Velocity != (Vec{}) {
			w.SetVelocity(id, vec(b.Velocity))
		}
		if b.Barrier {
			w.MakeBarrier(id)
		}
		if b.Inventory {
			w.GiveInventory(id)
		}
		if b.Name != "" {
			holders[b.Name] = id
		}
	}

	for _, z := range c.World.Zones {
		id := w.Spawn()
		if err := w.AddZone(id, z.Name, shapeOf(z.Boxes), vec(z.Pos)); err != nil {
			return nil, fmt.Errorf("config: zone %q: %w", z.Name, err)
		}
	}

	for _, f := range c.World.Fences {
		id := w.Spawn()
		poly := fence.Fence{Name: f.Name, Points: points(f.Points)}
		if f.Step {
			w.AddStepFence(id, fence.StepFence{Fence: poly}, vec(f.Pos))
		} else {
			w.AddFence(id, poly, vec(f.Pos))
		}
	}

	for _, it := range c.World.Items {
		id := w.Ledger.Mint(inventory.Item{Name: it.Name, Usable: it.Usable, Stack: it.Stack})
		if it.Holder == "" {
			continue
		}
		holder, ok := holders[it.Holder]
		if !ok {
			return nil, fmt.Errorf("config: item %q: unknown holder %q", it.Name, it.Holder)
		}
		if err := w.Ledger.Give(holder, id); err != nil {
			return nil, fmt.Errorf("config: item %q: %w", it.Name, err)
		}
	}

	for _, a := range c.World.Actions {
		fit, err := action.ParseFitness(a.Fitness)
		if err != nil {
			return nil, fmt.Errorf("config: action %q: %w", a.Text, err)
		}
		life, err := action.ParseLifespan(a.Lifespan)
		if err != nil {
			return nil, fmt.Errorf("config: action %q: %w", a.Text, err)
		}
		id := w.Spawn()
		err = w.AddAction(id, action.Action{Text: a.Text, Fitness: fit, Lifespan: life},
			shapeOf(a.Area), vec(a.Pos))
		if err != nil {
			return nil, fmt.Errorf("config: action %q: %w", a.Text, err)
		}
	}

	return w, nil
}

func vec(v Vec) geom.V2 { return geom.V2{X: v.X, Y: v.Y} }

func points(vs []Vec) []geom.V2 {
	out := make([]geom.V2, len(vs))
	for i, v := range vs {
		out[i] = vec(v)
	}
	return out
}

func shapeOf(boxes []Box) geom.Shape {
	out := make([]geom.AABB, len(boxes))
	for i, b := range boxes {
		out[i] = geom.NewAABB(b.X, b.Y, b.W, b.H)
	}
	return geom.Compound(out...)
}
