package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// immediate run plus at least one tick
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
	assert.Equal(t, int64(worker.GetRunCount()), worker.Health().RunCount)
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("test-worker", 100*time.Millisecond, true))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	cancel()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := NewScheduler()

	enabled := newMockWorker("enabled-worker", 100*time.Millisecond, true)
	disabled := newMockWorker("disabled-worker", 100*time.Millisecond, false)
	scheduler.RegisterWorker(enabled)
	scheduler.RegisterWorker(disabled)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, enabled.GetRunCount(), 0)
	assert.Equal(t, 0, disabled.GetRunCount())
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("panicky", 50*time.Millisecond, true)
	worker.runFunc = func(context.Context) error {
		panic("boom")
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(130 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	health := worker.Health()
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
	assert.Equal(t, health.RunCount, health.ErrorCount)
	require.Error(t, health.LastError)
	assert.Contains(t, health.LastError.Error(), "boom")
}

func TestScheduler_StopTimeout(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.stopTimeout = 50 * time.Millisecond

	release := make(chan struct{})
	defer close(release)

	worker := newMockWorker("stuck", time.Hour, true)
	worker.runFunc = func(context.Context) error {
		<-release
		return nil
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	assert.Error(t, scheduler.Stop())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("test-worker", 100*time.Millisecond, true))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Error(t, scheduler.Start(context.Background()))

	require.NoError(t, scheduler.Stop())
	assert.Error(t, scheduler.Stop())
}

func TestScheduler_Health(t *testing.T) {
	scheduler := NewScheduler()

	failing := newMockWorker("flaky", time.Hour, true)
	scheduler.RegisterWorker(failing)

	assert.Error(t, scheduler.Health(context.Background()), "stopped scheduler is unhealthy")

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return failing.GetRunCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, scheduler.Health(context.Background()))

	failing.RecordError(assert.AnError, time.Millisecond)
	err := scheduler.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")

	require.NoError(t, scheduler.Stop())
}
