package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appsub "github.com/discovery/subscription-controller/internal/application/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSweeper counts SweepAll calls and can block until released
type fakeSweeper struct {
	calls   atomic.Int32
	release chan struct{}
	err     error

	mu       sync.Mutex
	deadline bool
}

func (f *fakeSweeper) SweepAll(ctx context.Context) (*appsub.SweepSummary, error) {
	n := f.calls.Add(1)
	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	f.deadline = hasDeadline
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &appsub.SweepSummary{Clients: int(n)}, nil
}

func TestSweepScheduler_StartStop(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewSweepScheduler(sweeper, zap.NewNop(), SweepSchedulerConfig{
		Enabled:      true,
		Interval:     10 * time.Millisecond,
		BatchTimeout: time.Second,
		RunOnStart:   true,
	})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	require.NotNil(t, s.LastSummary())
	sweeper.mu.Lock()
	assert.True(t, sweeper.deadline, "batch timeout bounds each sweep")
	sweeper.mu.Unlock()

	stopped := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sweeper.calls.Load())
}

func TestSweepScheduler_Disabled(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewSweepScheduler(sweeper, zap.NewNop(), SweepSchedulerConfig{Enabled: false})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.TriggerImmediateSweep(), ErrSchedulerNotRunning)
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, sweeper.calls.Load())
}

func TestSweepScheduler_TriggerImmediateSweep(t *testing.T) {
	sweeper := &fakeSweeper{release: make(chan struct{})}
	s := NewSweepScheduler(sweeper, zap.NewNop(), SweepSchedulerConfig{
		Enabled:  true,
		Interval: time.Hour,
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.TriggerImmediateSweep())
	assert.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return errors.Is(s.TriggerImmediateSweep(), ErrSweepInProgress)
	}, time.Second, 5*time.Millisecond)

	close(sweeper.release)
	assert.Eventually(t, func() bool { return s.LastSummary() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestSweepScheduler_FailedSweepKeepsRunning(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("list clients: connection refused")}
	s := NewSweepScheduler(sweeper, zap.NewNop(), SweepSchedulerConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
	})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, s.LastSummary())
	require.NoError(t, s.Stop(context.Background()))
}

func TestSweepScheduler_StopCancelsSweep(t *testing.T) {
	sweeper := &fakeSweeper{release: make(chan struct{})}
	s := NewSweepScheduler(sweeper, zap.NewNop(), SweepSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunOnStart: true,
	})
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
