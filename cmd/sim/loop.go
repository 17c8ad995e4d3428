package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hedgerow/hedgerow/internal/core/engine"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/protocol"
)

// simLoop owns the world and steps it at a fixed rate. All mutation happens
// on the run goroutine; control requests from other goroutines are funneled
// through the request channel, which keeps the world single-threaded.
type simLoop struct {
	logger log.Log
	world  *engine.World
	dt     float64

	requests chan request
	paused   atomic.Bool
	frame    atomic.Uint64
}

type request struct {
	apply func() error
	done  chan error
}

func newSimLoop(logger log.Log, world *engine.World, dt float64) *simLoop {
	return &simLoop{
		logger:   logger.With(log.String("component", "sim-loop")),
		world:    world,
		dt:       dt,
		requests: make(chan request),
	}
}

func (l *simLoop) run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(l.dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-l.requests:
			req.done <- req.apply()
		case <-ticker.C:
			if l.paused.Load() {
				continue
			}
			if err := l.step(1); err != nil {
				return err
			}
		}
	}
}

func (l *simLoop) step(n int) error {
	for i := 0; i < n; i++ {
		if err := l.world.Step(l.dt); err != nil {
			return err
		}
	}
	l.frame.Store(l.world.Frame())
	return nil
}

// do runs fn on the sim goroutine and waits for it.
func (l *simLoop) do(fn func() error) error {
	req := request{apply: fn, done: make(chan error, 1)}
	l.requests <- req
	return <-req.done
}

func (l *simLoop) Pause()        { l.paused.Store(true) }
func (l *simLoop) Resume()       { l.paused.Store(false) }
func (l *simLoop) Paused() bool  { return l.paused.Load() }
func (l *simLoop) Frame() uint64 { return l.frame.Load() }

// StepFrames advances the world manually. Only meaningful while paused;
// stepping a running simulation would race the ticker.
func (l *simLoop) StepFrames(n int) error {
	if !l.paused.Load() {
		return errors.New("step requires a paused simulation")
	}
	return l.do(func() error { return l.step(n) })
}

func (l *simLoop) Spawn(body protocol.SpawnBody) error {
	return l.do(func() error {
		boxes := make([]geom.AABB, len(body.Boxes))
		for i, b := range body.Boxes {
			boxes[i] = geom.NewAABB(b.X, b.Y, b.W, b.H)
		}
		id := l.world.Spawn()
		if err := l.world.AddBody(id, geom.Compound(boxes...), geom.V2{X: body.Pos.X, Y: body.Pos.Y}); err != nil {
			return err
		}
		if body.Velocity != (protocol.Vec{}) {
			l.world.SetVelocity(id, geom.V2{X: body.Velocity.X, Y: body.Velocity.Y})
		}
		if body.Barrier {
			l.world.MakeBarrier(id)
		}
		l.logger.Info("entity spawned", log.Uint64("entity", uint64(id)))
		return nil
	})
}
