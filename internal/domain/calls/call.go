package calls

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusInitiated  = "initiated"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Call is a reporting projection of a voice interaction. Messages and
// profiles remain authoritative; nothing reads Call for correctness.
type Call struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CallID          string     `gorm:"column:call_id;not null;uniqueIndex" json:"call_id"`
	PhoneNumber     string     `gorm:"column:phone_number;index" json:"phone_number"`
	Name            string     `gorm:"column:name" json:"name,omitempty"`
	Topic           string     `gorm:"column:topic" json:"topic,omitempty"`
	Status          string     `gorm:"column:status;not null;index" json:"status"`
	Transcript      string     `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	Summary         string     `gorm:"column:summary;type:text" json:"summary,omitempty"`
	DurationSeconds int        `gorm:"column:duration_seconds" json:"duration_seconds"`
	StartedAt       *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Call) TableName() string { return "call" }
