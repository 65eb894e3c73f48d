package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Profile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"identity_id"`

	Name        string `gorm:"column:name;not null" json:"name"`
	Email       string `gorm:"column:email" json:"email,omitempty"`
	Phone       string `gorm:"column:phone;index" json:"phone,omitempty"`
	LinkedInURL string `gorm:"column:linkedin_url" json:"linkedin_url,omitempty"`

	Role     string `gorm:"column:role" json:"role,omitempty"`
	Company  string `gorm:"column:company" json:"company,omitempty"`
	Headline string `gorm:"column:headline" json:"headline,omitempty"`
	Industry string `gorm:"column:industry" json:"industry,omitempty"`

	Asks         datatypes.JSONSlice[string] `gorm:"column:asks" json:"asks"`
	Offers       datatypes.JSONSlice[string] `gorm:"column:offers" json:"offers"`
	Tags         datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Requirements datatypes.JSONSlice[string] `gorm:"column:requirements" json:"requirements"`

	Goals              string `gorm:"column:goals;type:text" json:"goals,omitempty"`
	Motivations        string `gorm:"column:motivations;type:text" json:"motivations,omitempty"`
	Challenges         string `gorm:"column:challenges;type:text" json:"challenges,omitempty"`
	DesiredConnections string `gorm:"column:desired_connections;type:text" json:"desired_connections,omitempty"`
	SpecificRequests   string `gorm:"column:specific_requests;type:text" json:"specific_requests,omitempty"`
	IntroTone          string `gorm:"column:intro_tone" json:"intro_tone,omitempty"`

	Personality datatypes.JSONType[PersonalityTraits] `gorm:"column:personality" json:"personality"`

	QuietHoursStart   string                      `gorm:"column:quiet_hours_start" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     string                      `gorm:"column:quiet_hours_end" json:"quiet_hours_end,omitempty"`
	Timezone          string                      `gorm:"column:timezone" json:"timezone,omitempty"`
	PreferredChannels datatypes.JSONSlice[string] `gorm:"column:preferred_channels" json:"preferred_channels"`

	// Written only by the match engine.
	Embedding datatypes.JSONSlice[float32] `gorm:"column:embedding" json:"-"`

	NextSteps       datatypes.JSONSlice[string]           `gorm:"column:next_steps" json:"next_steps"`
	Insights        string                                `gorm:"column:insights;type:text" json:"insights,omitempty"`
	LastCallSummary string                                `gorm:"column:last_call_summary;type:text" json:"last_call_summary,omitempty"`
	LastCallAt      *time.Time                            `gorm:"column:last_call_at" json:"last_call_at,omitempty"`
	CallHistory     datatypes.JSONSlice[CallHistoryEntry] `gorm:"column:call_history" json:"call_history"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Profile) TableName() string { return "profile" }

func (p *Profile) HasEmbedding() bool { return p != nil && len(p.Embedding) > 0 }

type PersonalityTraits struct {
	Communication string   `json:"communication,omitempty"`
	Energy        string   `json:"energy,omitempty"`
	Values        []string `json:"values,omitempty"`
	WorkStyle     string   `json:"work_style,omitempty"`
}

type CallHistoryEntry struct {
	CallID          string    `json:"call_id"`
	At              time.Time `json:"at"`
	DurationSeconds int       `json:"duration_seconds"`
	Transcript      string    `json:"transcript,omitempty"`
	Summary         string    `json:"summary,omitempty"`
}

// QuietHours is a wall-clock window in the owner's timezone. Start and End
// are "HH:MM"; Start > End wraps past midnight.
type QuietHours struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

func (p *Profile) QuietHours() *QuietHours {
	if p == nil || p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return nil
	}
	return &QuietHours{Start: p.QuietHoursStart, End: p.QuietHoursEnd, Timezone: p.Timezone}
}

// Fields is a partial profile write. Nil pointers leave the stored value
// alone. There is deliberately no embedding field.
type Fields struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`

	Role     *string `json:"role,omitempty"`
	Company  *string `json:"company,omitempty"`
	Headline *string `json:"headline,omitempty"`
	Industry *string `json:"industry,omitempty"`

	Asks         *[]string `json:"asks,omitempty"`
	Offers       *[]string `json:"offers,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Requirements *[]string `json:"requirements,omitempty"`

	Goals              *string `json:"goals,omitempty"`
	Motivations        *string `json:"motivations,omitempty"`
	Challenges         *string `json:"challenges,omitempty"`
	DesiredConnections *string `json:"desired_connections,omitempty"`
	SpecificRequests   *string `json:"specific_requests,omitempty"`
	IntroTone          *string `json:"intro_tone,omitempty"`

	Personality *PersonalityTraits `json:"personality,omitempty"`

	QuietHours        *QuietHours `json:"quiet_hours,omitempty"`
	PreferredChannels *[]string   `json:"preferred_channels,omitempty"`

	NextSteps       *[]string         `json:"next_steps,omitempty"`
	Insights        *string           `json:"insights,omitempty"`
	LastCallSummary *string           `json:"last_call_summary,omitempty"`
	LastCallAt      *time.Time        `json:"last_call_at,omitempty"`
	AppendCall      *CallHistoryEntry `json:"append_call,omitempty"`
}

// Apply writes f onto p and reports whether any embedding-bearing field
// (name, role, company, headline, asks, offers, tags) changed.
func (f Fields) Apply(p *Profile) (material bool) {
	setStr := func(dst *string, src *string, mat bool) {
		if src == nil || *dst == *src {
			return
		}
		*dst = *src
		if mat {
			material = true
		}
	}
	setList := func(dst *datatypes.JSONSlice[string], src *[]string, mat bool) {
		if src == nil || equalStrings(*dst, *src) {
			return
		}
		*dst = append(datatypes.JSONSlice[string]{}, (*src)...)
		if mat {
			material = true
		}
	}

	setStr(&p.Name, f.Name, true)
	setStr(&p.Email, f.Email, false)
	setStr(&p.Phone, f.Phone, false)
	setStr(&p.LinkedInURL, f.LinkedInURL, false)
	setStr(&p.Role, f.Role, true)
	setStr(&p.Company, f.Company, true)
	setStr(&p.Headline, f.Headline, true)
	setStr(&p.Industry, f.Industry, false)

	setList(&p.Asks, f.Asks, true)
	setList(&p.Offers, f.Offers, true)
	setList(&p.Tags, f.Tags, true)
	setList(&p.Requirements, f.Requirements, false)

	setStr(&p.Goals, f.Goals, false)
	setStr(&p.Motivations, f.Motivations, false)
	setStr(&p.Challenges, f.Challenges, false)
	setStr(&p.DesiredConnections, f.DesiredConnections, false)
	setStr(&p.SpecificRequests, f.SpecificRequests, false)
	setStr(&p.IntroTone, f.IntroTone, false)

	if f.Personality != nil {
		p.Personality = datatypes.NewJSONType(*f.Personality)
	}
	if f.QuietHours != nil {
		p.QuietHoursStart = f.QuietHours.Start
		p.QuietHoursEnd = f.QuietHours.End
		p.Timezone = f.QuietHours.Timezone
	}
	setList(&p.PreferredChannels, f.PreferredChannels, false)

	setList(&p.NextSteps, f.NextSteps, false)
	setStr(&p.Insights, f.Insights, false)
	setStr(&p.LastCallSummary, f.LastCallSummary, false)
	if f.LastCallAt != nil {
		at := *f.LastCallAt
		p.LastCallAt = &at
	}
	if f.AppendCall != nil {
		p.CallHistory = append(p.CallHistory, *f.AppendCall)
	}
	return material
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String is a convenience for building Fields literals.
func String(s string) *string { return &s }

// Strings is a convenience for building Fields literals.
func Strings(s ...string) *[]string {
	out := append([]string{}, s...)
	return &out
}
