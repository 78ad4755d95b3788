package bootstrap

import (
	"context"
	"sync"
	"time"

	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 2 * time.Minute,
	}
}

// Shutdown stops components in order:
// HTTP, workers, telegram and consumers, score buffer and producer,
// databases, error tracker, logs.
func (l *Lifecycle) Shutdown(c *Container) {
	log := c.Log
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/7] Stopping HTTP server...")
	if c.Application.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := c.Application.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	log.Info("[2/7] Stopping background workers...")
	if c.Background.WorkerScheduler != nil && c.Background.WorkerScheduler.IsRunning() {
		if err := c.Background.WorkerScheduler.Stop(); err != nil {
			log.Error("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	log.Info("[3/7] Stopping telegram bot and consumers...")
	if c.Adapters.TelegramBot != nil {
		c.Adapters.TelegramBot.Stop()
	}
	l.waitForGoroutines(c.WG, 30*time.Second, log)

	log.Info("[4/7] Flushing score history and closing Kafka producer...")
	if c.Services.ScoreBuffer != nil {
		flushCtx, flushCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := c.Services.ScoreBuffer.Stop(flushCtx); err != nil {
			log.Error("Score history flush failed", "error", err)
		}
		flushCancel()
	}
	if c.Adapters.KafkaProducer != nil {
		if err := c.Adapters.KafkaProducer.Close(); err != nil {
			log.Error("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[5/7] Closing database connections...")
	l.closeDatabases(c, log)

	log.Info("[6/7] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, c.ErrorTracker, log)

	log.Info("[7/7] Syncing logs...")
	log.Info("✅ Graceful shutdown complete")
	_ = logger.Sync()
}

func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warn("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Error("Error tracker flush failed", "error", err)
	}
}

func (l *Lifecycle) closeDatabases(c *Container, log *logger.Logger) {
	var dbErrors []error

	if c.PG != nil {
		if err := c.PG.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "postgres"))
		}
	}
	if c.CH != nil {
		if err := c.CH.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "clickhouse"))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "redis"))
		}
	}

	if len(dbErrors) > 0 {
		log.Error("Database close errors", "errors", dbErrors)
		return
	}
	log.Info("✓ Database connections closed")
}
