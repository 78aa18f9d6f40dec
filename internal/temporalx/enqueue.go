package temporalx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/temporalx/discoveryrun"
)

// Enqueuer starts the discovery workflow for an artifact. The workflow id is
// derived from the artifact so queue-side duplicates collapse while a run is
// in flight.
type Enqueuer struct {
	tc  temporalsdkclient.Client
	cfg Config
	log *logger.Logger
}

// NewEnqueuer returns nil when Temporal is disabled.
func NewEnqueuer(tc temporalsdkclient.Client, baseLog *logger.Logger) *Enqueuer {
	if tc == nil {
		return nil
	}
	return &Enqueuer{tc: tc, cfg: LoadConfig(), log: baseLog.With("component", "DiscoveryEnqueuer")}
}

func (e *Enqueuer) EnqueueDiscovery(ctx context.Context, artifactID uuid.UUID) error {
	run, err := e.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       discoveryrun.WorkflowIDFor(artifactID.String()),
		TaskQueue:                e.cfg.TaskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: 0,
	}, discoveryrun.WorkflowName, artifactID.String())
	if err != nil {
		return fmt.Errorf("discovery workflow start: %w", err)
	}
	e.log.Debug("Discovery workflow started",
		"artifact_id", artifactID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
