package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ShadowEvaluation records every scored (artifact, candidate) pair whether or
// not a link was created. The rows feed offline threshold tuning; re-scores
// overwrite (latest wins).
type ShadowEvaluation struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	ArtifactID  uuid.UUID `gorm:"type:uuid;not null;index;index:idx_shadow_eval_pair,unique,priority:1" json:"artifact_id"`
	CandidateID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_shadow_eval_pair,unique,priority:2" json:"candidate_id"`

	DeterministicScore float64 `gorm:"type:double precision;not null;default:0" json:"deterministic_score"`
	SemanticScore      float64 `gorm:"type:double precision;not null;default:0" json:"semantic_score"`
	StructuralScore    float64 `gorm:"type:double precision;not null;default:0" json:"structural_score"`
	MLScore            float64 `gorm:"type:double precision;not null;default:0" json:"ml_score"`

	WouldLink bool           `gorm:"not null;default:false" json:"would_link"`
	Breakdown datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"breakdown"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (ShadowEvaluation) TableName() string { return "shadow_evaluation" }
