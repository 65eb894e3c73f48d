package domain

import (
	"github.com/yungbote/superconnector-backend/internal/domain/calls"
	"github.com/yungbote/superconnector-backend/internal/domain/conversation"
	"github.com/yungbote/superconnector-backend/internal/domain/identity"
	"github.com/yungbote/superconnector-backend/internal/domain/intro"
	"github.com/yungbote/superconnector-backend/internal/domain/profile"
)

type (
	Identity    = identity.Identity
	Identifiers = identity.Identifiers

	Profile           = profile.Profile
	ProfileFields     = profile.Fields
	PersonalityTraits = profile.PersonalityTraits
	CallHistoryEntry  = profile.CallHistoryEntry
	QuietHours        = profile.QuietHours

	Channel             = conversation.Channel
	Direction           = conversation.Direction
	Message             = conversation.Message
	MessageMetadata     = conversation.MessageMetadata
	ConversationSummary = conversation.Summary

	Intro       = intro.Intro
	IntroStatus = intro.Status
	IntroStats  = intro.Stats

	Call = calls.Call
)

const (
	ChannelPhone    = conversation.ChannelPhone
	ChannelWhatsApp = conversation.ChannelWhatsApp
	ChannelSMS      = conversation.ChannelSMS
	ChannelEmail    = conversation.ChannelEmail
	ChannelLinkedIn = conversation.ChannelLinkedIn

	DirectionInbound  = conversation.DirectionInbound
	DirectionOutbound = conversation.DirectionOutbound

	IntroPendingConsent = intro.StatusPendingConsent
	IntroConsentSent    = intro.StatusConsentSent
	IntroConsented      = intro.StatusConsented
	IntroDeclined       = intro.StatusDeclined
	IntroCompleted      = intro.StatusCompleted

	CallInitiated  = calls.StatusInitiated
	CallInProgress = calls.StatusInProgress
	CallCompleted  = calls.StatusCompleted
)

// AllIntroStatuses lists every intro status in workflow order.
var AllIntroStatuses = intro.AllStatuses

// CanTransitionIntro reports whether from -> to is a legal intro edge.
func CanTransitionIntro(from, to IntroStatus) bool { return intro.CanTransition(from, to) }

// NormalizePhone strips a "whatsapp:" prefix and whitespace.
func NormalizePhone(s string) string { return identity.NormalizePhone(s) }

// Models lists every table for migrations.
func Models() []any {
	return []any{
		&Identity{},
		&Profile{},
		&Message{},
		&ConversationSummary{},
		&Intro{},
		&Call{},
	}
}
