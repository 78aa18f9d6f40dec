package discoveryrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one discovery pass for one artifact. The heavy lifting lives
// in the activity; the workflow only owns the retry policy.
func Workflow(ctx workflow.Context, artifactID string) error {
	if strings.TrimSpace(artifactID) == "" {
		return fmt.Errorf("discoveryrun: missing artifact_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeArtifactNotFound},
		},
	})

	return workflow.ExecuteActivity(ctx, ActivityDiscover, artifactID).Get(ctx, nil)
}
