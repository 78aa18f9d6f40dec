package groups

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	GroupStatusActive = "active"
)

// ContextGroup is a maintained cluster of artifacts believed to represent one
// coherent body of work.
type ContextGroup struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name           string         `gorm:"type:text;not null;default:''" json:"name"`
	CoherenceScore float64        `gorm:"type:double precision;not null;default:1" json:"coherence_score"`
	Topics         datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"topics"`
	Status         string         `gorm:"type:text;not null;default:'active';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContextGroup) TableName() string { return "context_group" }

// ContextGroupMember attaches an artifact to a group with a weight.
type ContextGroupMember struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	GroupID    uuid.UUID `gorm:"type:uuid;not null;index;index:idx_group_member,unique,priority:1" json:"group_id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_group_member,unique,priority:2" json:"artifact_id"`

	Weight float64 `gorm:"type:double precision;not null;default:1" json:"weight"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ContextGroupMember) TableName() string { return "context_group_member" }
