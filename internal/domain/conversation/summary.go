package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Summary is the single rolling memory for an identity. It is replaced, not
// appended, on each update.
type Summary struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"identity_id"`
	Summary          string    `gorm:"column:summary;type:text;not null" json:"summary"`
	LastInteraction  time.Time `gorm:"column:last_interaction;not null" json:"last_interaction"`
	InteractionCount int       `gorm:"column:interaction_count;not null" json:"interaction_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Summary) TableName() string { return "conversation_summary" }
