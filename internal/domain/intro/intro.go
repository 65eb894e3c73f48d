package intro

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingConsent Status = "pending_consent"
	StatusConsentSent    Status = "consent_sent"
	StatusConsented      Status = "consented"
	StatusDeclined       Status = "declined"
	StatusCompleted      Status = "completed"
)

var AllStatuses = []Status{
	StatusPendingConsent,
	StatusConsentSent,
	StatusConsented,
	StatusDeclined,
	StatusCompleted,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Pending reports whether the intro is still waiting on the recipient.
func (s Status) Pending() bool {
	return s == StatusPendingConsent || s == StatusConsentSent
}

var transitions = map[Status][]Status{
	StatusPendingConsent: {StatusConsentSent},
	StatusConsentSent:    {StatusConsented, StatusDeclined},
	StatusConsented:      {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Intro is a directional, consent-gated introduction from the requester
// (FromProfileID) to the candidate (ToProfileID). One row per ordered pair.
type Intro struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FromProfileID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_intro_pair,priority:1" json:"from_profile_id"`
	ToProfileID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_intro_pair,priority:2;index" json:"to_profile_id"`
	Status        Status    `gorm:"column:status;not null;index" json:"status"`
	Reason        string    `gorm:"column:reason;type:text" json:"reason"`

	ConsentSentAt *time.Time `gorm:"column:consent_sent_at" json:"consent_sent_at,omitempty"`
	ConsentedAt   *time.Time `gorm:"column:consented_at" json:"consented_at,omitempty"`
	DeclinedAt    *time.Time `gorm:"column:declined_at" json:"declined_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Intro) TableName() string { return "intro" }

// Stats aggregates intros by status. Rates are percentages rounded to the
// nearest integer.
type Stats struct {
	Total          int64            `json:"total"`
	ByStatus       map[Status]int64 `json:"by_status"`
	ConsentRate    int              `json:"consent_rate"`
	CompletionRate int              `json:"completion_rate"`
}
