package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const defaultStopTimeout = 2 * time.Minute

// Scheduler runs each registered worker on its own ticker
type Scheduler struct {
	workers     []Worker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	log         *logger.Logger
	started     bool
	stopTimeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		log:         logger.Get().With("component", "scheduler"),
		stopTimeout: defaultStopTimeout,
	}
}

// RegisterWorker adds a worker; registration after Start is ignored
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warn("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Info("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start begins running all enabled workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	workers := append([]Worker(nil), s.workers...)
	s.mu.Unlock()

	s.log.Info("Starting worker scheduler", "workers", len(workers))

	for _, worker := range workers {
		if !worker.Enabled() || worker.Interval() <= 0 {
			s.log.Info("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		s.wg.Add(1)
		go s.runWorker(worker)
	}
	return nil
}

// Stop cancels all workers and waits for in-flight runs to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-time.After(s.stopTimeout):
		s.log.Warn("Worker shutdown timed out", "timeout", s.stopTimeout)
		shutdownErr = errors.Wrapf(errors.ErrTimeout, "shutdown timeout after %s", s.stopTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	// Run immediately on start
	s.executeWorker(worker)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Worker stopping due to context cancellation", "worker", worker.Name())
			return
		case <-ticker.C:
			s.executeWorker(worker)
		}
	}
}

// executeWorker runs one iteration, converting a panic into a failed run
func (s *Scheduler) executeWorker(worker Worker) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panicked", "worker", worker.Name(), "panic", r)
			err = errors.Wrapf(errors.ErrInternal, "worker panicked: %s", fmt.Sprint(r))
		}

		elapsed := time.Since(start)
		metrics.RecordWorkerExecution(worker.Name(), elapsed, err)
		if rec, ok := worker.(HealthRecorder); ok {
			if err != nil {
				rec.RecordError(err, elapsed)
			} else {
				rec.RecordRun(elapsed)
			}
		}
	}()

	err = worker.Run(s.ctx)
	if err != nil {
		s.log.Error("Worker execution failed",
			"worker", worker.Name(),
			"error", err,
			"duration", time.Since(start),
		)
		return
	}
	s.log.Debug("Worker execution completed",
		"worker", worker.Name(),
		"duration", time.Since(start),
	)
}

// Health fails while the scheduler is stopped or when a worker's most
// recent run returned an error.
func (s *Scheduler) Health(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return errors.Wrap(errors.ErrUnavailable, "scheduler not running")
	}
	for _, worker := range s.workers {
		reporter, ok := worker.(interface{ Health() WorkerHealth })
		if !ok {
			continue
		}
		if h := reporter.Health(); h.Enabled && h.LastError != nil {
			return errors.Wrapf(errors.ErrUnavailable, "worker %s: %v", worker.Name(), h.LastError)
		}
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
