package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the canonical person record. Each identifier column is unique
// when set; NULL means unknown.
type Identity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Phone       *string   `gorm:"column:phone;uniqueIndex" json:"phone,omitempty"`
	WhatsAppID  *string   `gorm:"column:whatsapp_id;uniqueIndex" json:"whatsapp_id,omitempty"`
	Email       *string   `gorm:"column:email;uniqueIndex" json:"email,omitempty"`
	LinkedInURL *string   `gorm:"column:linkedin_url;uniqueIndex" json:"linkedin_url,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Identity) TableName() string { return "identity" }

// Identifiers is a partial set of lookup keys. Empty strings mean absent.
type Identifiers struct {
	Phone       string `json:"phone,omitempty"`
	WhatsAppID  string `json:"whatsapp_id,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Normalize strips channel prefixes and whitespace and lower-cases email.
func (ids Identifiers) Normalize() Identifiers {
	return Identifiers{
		Phone:       NormalizePhone(ids.Phone),
		WhatsAppID:  NormalizePhone(ids.WhatsAppID),
		Email:       strings.ToLower(strings.TrimSpace(ids.Email)),
		LinkedInURL: strings.TrimSpace(ids.LinkedInURL),
	}
}

func (ids Identifiers) Empty() bool {
	return ids.Phone == "" && ids.WhatsAppID == "" && ids.Email == "" && ids.LinkedInURL == ""
}

// NormalizePhone removes a "whatsapp:" transport prefix and all whitespace.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "whatsapp:")
	return strings.Join(strings.Fields(s), "")
}

func (i *Identity) PhoneValue() string       { return deref(i.Phone) }
func (i *Identity) WhatsAppValue() string    { return deref(i.WhatsAppID) }
func (i *Identity) EmailValue() string       { return deref(i.Email) }
func (i *Identity) LinkedInURLValue() string { return deref(i.LinkedInURL) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
