package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threadline-hq/threadline-backend/internal/app"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/temporalx/temporalworker"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(log)
	if err != nil {
		log.Fatal("App init failed", "error", err)
	}
	if a.Temporal == nil {
		log.Fatal("Worker requires TEMPORAL_ADDRESS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := temporalworker.NewRunner(log, a.Temporal, a.Engine)
	if err != nil {
		log.Fatal("Worker init failed", "error", err)
	}
	if err := runner.Start(ctx); err != nil {
		log.Fatal("Worker start failed", "error", err)
	}

	<-ctx.Done()
	log.Info("Worker shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Close(closeCtx)
}
