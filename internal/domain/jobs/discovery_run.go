package jobs

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// DiscoveryRun is the audit row for one artifact's discovery job. The job
// queue may redeliver; the run row is keyed by artifact and upserted so a
// retry overwrites the failed attempt.
type DiscoveryRun struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"artifact_id"`

	Status         string `gorm:"type:text;not null;default:'pending';index" json:"status"`
	CandidateCount int    `gorm:"not null;default:0" json:"candidate_count"`
	EvaluatedCount int    `gorm:"not null;default:0" json:"evaluated_count"`
	LinkedCount    int    `gorm:"not null;default:0" json:"linked_count"`
	Error          string `gorm:"type:text;not null;default:''" json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DiscoveryRun) TableName() string { return "discovery_run" }
