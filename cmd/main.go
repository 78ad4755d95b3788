package main

import (
	"os"
	"os/signal"
	"syscall"

	"cryptosys/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()

	if err := container.Start(); err != nil {
		container.Log.Errorf("Failed to start: %v", err)
		container.Shutdown()
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		container.Log.Info("Received shutdown signal", "signal", sig.String())
	case <-container.Context.Done():
		container.Log.Warn("Application context cancelled, shutting down")
	}

	container.Shutdown()
}
