package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RelationshipWeakContextual   = "weak_contextual"
	RelationshipStrongContextual = "strong_contextual"
	RelationshipExplicit         = "explicit"

	MethodDeterministic = "deterministic"
	MethodMLAssisted    = "ml_assisted"
	MethodManual        = "manual"
)

// ArtifactLink is a scored directed relation between two artifacts of the
// same tenant. Direction is canonical: the earlier artifact is the source.
// At most one row exists per unordered pair.
type ArtifactLink struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	SourceID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_artifact_link_pair,unique,priority:1" json:"source_id"`
	TargetID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_artifact_link_pair,unique,priority:2" json:"target_id"`

	ConfidenceScore  float64 `gorm:"type:double precision;not null;default:0" json:"confidence_score"`
	RelationshipType string  `gorm:"type:text;not null;default:'weak_contextual';index" json:"relationship_type"`
	DiscoveryMethod  string  `gorm:"type:text;not null;default:'deterministic'" json:"discovery_method"`

	Explanation datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"explanation"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ArtifactLink) TableName() string { return "artifact_link" }
