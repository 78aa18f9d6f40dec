package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threadline-hq/threadline-backend/internal/app"
	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + envutil.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Optionally run the discovery worker in-process; deployments that scale
	// workers separately leave this off and run cmd/worker.
	if envutil.GetEnvAsBool("WORKER_EMBEDDED", false, log) && a.Temporal != nil {
		g.Go(func() error {
			runner, err := temporalworker.NewRunner(log, a.Temporal, a.Engine)
			if err != nil {
				return err
			}
			return runner.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server exited with error", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Close(closeCtx)
}
