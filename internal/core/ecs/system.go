package ecs

import (
	"fmt"
	"sort"
)

// System is one stage of the frame pipeline. Systems receive the stores and
// shared resources they work on at construction time; Update runs them for
// one frame.
type System interface {
	Name() string
	// Priority orders execution within a frame, lowest first.
	Priority() int
	Update(frame uint64, dt float64) error
}

// Scheduler runs systems in fixed priority order, one full pass per Step.
// There is no parallelism within a frame: each system runs to completion
// before the next begins, so shared resources like the spatial index never
// see interleaved access.
type Scheduler struct {
	systems []System
	frame   uint64
}

func NewScheduler(systems ...System) *Scheduler {
	s := &Scheduler{systems: systems}
	sort.SliceStable(s.systems, func(i, j int) bool {
		return s.systems[i].Priority() < s.systems[j].Priority()
	})
	return s
}

// Frame returns the number of completed steps.
func (s *Scheduler) Frame() uint64 { return s.frame }

// Step advances one frame. A system error aborts the rest of the pass; the
// frame counter only advances on success.
func (s *Scheduler) Step(dt float64) error {
	frame := s.frame + 1
	for _, sys := range s.systems {
		if err := sys.Update(frame, dt); err != nil {
			return fmt.Errorf("system %s frame %d: %w", sys.Name(), frame, err)
		}
	}
	s.frame = frame
	return nil
}
