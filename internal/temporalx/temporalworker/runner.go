package temporalworker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/threadline-hq/threadline-backend/internal/discovery"
	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/temporalx"
	"github.com/threadline-hq/threadline-backend/internal/temporalx/discoveryrun"
)

type Runner struct {
	log    *logger.Logger
	tc     temporalsdkclient.Client
	engine *discovery.Engine
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, engine *discovery.Engine) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if engine == nil {
		return nil, fmt.Errorf("temporal worker missing discovery engine")
	}
	return &Runner{log: log, tc: tc, engine: engine}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	cfg := temporalx.LoadConfig()
	r.log.Info("Starting Temporal worker",
		"address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	concurrency := envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &discoveryrun.Activities{Log: r.log, Engine: r.engine}
	w.RegisterWorkflowWithOptions(discoveryrun.Workflow, workflow.RegisterOptions{Name: discoveryrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Discover, activity.RegisterOptions{Name: discoveryrun.ActivityDiscover})

	maxWait := time.Duration(envutil.GetEnvAsInt("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60, r.log)) * time.Second
	deadline := time.Now().Add(maxWait)
	backoff := 250 * time.Millisecond

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if maxWait <= 0 || time.Now().After(deadline) {
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying",
			"task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}
