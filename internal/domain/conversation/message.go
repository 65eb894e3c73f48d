package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelPhone    Channel = "phone"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelPhone, ChannelWhatsApp, ChannelSMS, ChannelEmail, ChannelLinkedIn:
		return true
	}
	return false
}

// Deliverable reports whether outbound text can be sent on the channel.
// LinkedIn is recorded for inbound history only.
func (c Channel) Deliverable() bool {
	switch c {
	case ChannelPhone, ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageMetadata holds the known per-channel keys. Extra carries anything
// a provider sends that has no typed home yet.
type MessageMetadata struct {
	Role            string            `json:"role,omitempty"`
	Source          string            `json:"source,omitempty"`
	CallID          string            `json:"call_id,omitempty"`
	EventType       string            `json:"event_type,omitempty"`
	Type            string            `json:"type,omitempty"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	FromUser        bool              `json:"from_user,omitempty"`
	IntroID         string            `json:"intro_id,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Message is append-only.
type Message struct {
	ID         uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID uuid.UUID                           `gorm:"type:uuid;not null;index:idx_message_identity_created,priority:1;index:idx_message_identity_seq,priority:1" json:"identity_id"`
	Channel    Channel                             `gorm:"column:channel;not null;index" json:"channel"`
	Direction  Direction                           `gorm:"column:direction;not null" json:"direction"`
	Content    string                              `gorm:"column:content;type:text;not null" json:"content"`
	Metadata   datatypes.JSONType[MessageMetadata] `gorm:"column:metadata" json:"metadata"`
	// Seq is per identity and breaks created_at ties in append order.
	Seq        int64                               `gorm:"column:seq;not null;default:0;index:idx_message_identity_seq,priority:2" json:"seq"`
	CreatedAt  time.Time                           `gorm:"not null;index:idx_message_identity_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "message" }

func (m *Message) Meta() MessageMetadata { return m.Metadata.Data() }
