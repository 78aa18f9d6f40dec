package discoveryrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/threadline-hq/threadline-backend/internal/discovery"
	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	Engine *discovery.Engine
}

func (a *Activities) Discover(ctx context.Context, artifactID string) error {
	if a == nil || a.Engine == nil {
		return fmt.Errorf("discoveryrun: activity not configured")
	}

	parsed, err := uuid.Parse(strings.TrimSpace(artifactID))
	if err != nil || parsed == uuid.Nil {
		return temporal.NewNonRetryableApplicationError(
			"invalid artifact_id", ErrTypeArtifactNotFound, err)
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	if err := a.Engine.DiscoverRelationships(ctx, parsed); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return temporal.NewNonRetryableApplicationError(
				"artifact not found", ErrTypeArtifactNotFound, err)
		}
		return err
	}
	return nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
