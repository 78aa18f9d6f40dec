package artifacts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Artifact is one ingested unit of work content (issue, message, document,
// commit, ...). Rows are owned by the ingestion pipeline; discovery only
// reads them, except for Embedding which it may backfill.
type Artifact struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_artifact_tenant_external,unique,priority:1" json:"tenant_id"`

	Platform   string `gorm:"type:text;not null;index:idx_artifact_tenant_external,unique,priority:2" json:"platform"`
	ExternalID string `gorm:"type:text;not null;index:idx_artifact_tenant_external,unique,priority:3" json:"external_id"`

	Type   string `gorm:"type:text;not null;default:'unknown';index" json:"type"`
	Title  string `gorm:"type:text;not null;default:''" json:"title"`
	Body   string `gorm:"type:text;not null;default:''" json:"body"`
	URL    string `gorm:"type:text;not null;default:''" json:"url"`
	Author string `gorm:"type:text;not null;default:''" json:"author"`

	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`

	Participants datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"participants"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	Embedding    datatypes.JSON `gorm:"type:jsonb" json:"embedding,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artifact) TableName() string { return "artifact" }

func (a *Artifact) ParticipantList() []string {
	if a == nil || len(a.Participants) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.Participants, &out); err != nil {
		return nil
	}
	return out
}

func (a *Artifact) MetadataMap() map[string]string {
	if a == nil || len(a.Metadata) == 0 {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal(a.Metadata, &out); err != nil {
		return nil
	}
	return out
}

// EmbeddingVector returns nil when no embedding has been computed yet.
func (a *Artifact) EmbeddingVector() []float64 {
	if a == nil || len(a.Embedding) == 0 {
		return nil
	}
	var out []float64
	if err := json.Unmarshal(a.Embedding, &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
