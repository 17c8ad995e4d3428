package ecs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSystem struct {
	name     string
	priority int
	fail     error
	calls    *[]string
}

func (r recordingSystem) Name() string  { return r.name }
func (r recordingSystem) Priority() int { return r.priority }

func (r recordingSystem) Update(frame uint64, dt float64) error {
	*r.calls = append(*r.calls, r.name)
	return r.fail
}

func TestSchedulerRunsByPriority(t *testing.T) {
	var calls []string
	s := NewScheduler(
		recordingSystem{name: "fence", priority: 300, calls: &calls},
		recordingSystem{name: "physics", priority: 100, calls: &calls},
		recordingSystem{name: "zone", priority: 200, calls: &calls},
	)

	require.NoError(t, s.Step(1.0 / 60))
	require.Equal(t, []string{"physics", "zone", "fence"}, calls)
	require.Equal(t, uint64(1), s.Frame())

	require.NoError(t, s.Step(1.0 / 60))
	require.Equal(t, uint64(2), s.Frame())
}

func TestSchedulerAbortsOnError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	s := NewScheduler(
		recordingSystem{name: "first", priority: 1, calls: &calls},
		recordingSystem{name: "second", priority: 2, fail: boom, calls: &calls},
		recordingSystem{name: "third", priority: 3, calls: &calls},
	)

	err := s.Step(1.0 / 60)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "second")
	require.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, uint64(0), s.Frame(), "frame must not advance on failure")
}
