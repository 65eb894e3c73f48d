package services

import (
	"strings"

	types "github.com/yungbote/superconnector-backend/internal/domain"
)

type ReplyIntent int

const (
	ReplyUnknown ReplyIntent = iota
	ReplyConsent
	ReplyDecline
)

var (
	consentKeywords = []string{"yes", "accept", "approve", "connect", "introduce"}
	declineKeywords = []string{"no", "decline", "reject", "pass"}
)

// ClassifyReply matches keywords as case-insensitive substrings. A text
// carrying both consent and decline keywords counts as consent.
func ClassifyReply(text string) ReplyIntent {
	lower := strings.ToLower(text)
	for _, k := range consentKeywords {
		if strings.Contains(lower, k) {
			return ReplyConsent
		}
	}
	for _, k := range declineKeywords {
		if strings.Contains(lower, k) {
			return ReplyDecline
		}
	}
	return ReplyUnknown
}

const (
	replyNoProfile  = "No profile found"
	replyNoPending  = "No pending consent requests"
	replyClarify    = "Could not determine consent response. Please reply with 'yes' to accept or 'no' to decline."
	replyConsented  = "Great! I'll make the introduction now."
	replyDeclined   = "Understood, I won't make this introduction."
	replySendFailed = "Thanks! I'll make the introduction as soon as I can reach you both."
)

// describe renders "Name (Role at Company)", dropping whatever is missing.
func describe(p *types.Profile) string {
	role := strings.TrimSpace(p.Role)
	company := strings.TrimSpace(p.Company)
	switch {
	case role != "" && company != "":
		return p.Name + " (" + role + " at " + company + ")"
	case role != "":
		return p.Name + " (" + role + ")"
	case company != "":
		return p.Name + " (" + company + ")"
	}
	return p.Name
}

func joinBlocks(blocks ...string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}

func ConsentRequestMessage(from, to *types.Profile, reason string) string {
	about := ""
	if h := strings.TrimSpace(from.Headline); h != "" {
		about = "About them: " + h
	}
	why := ""
	if r := strings.TrimSpace(reason); r != "" {
		why = "Why this match: " + r
	}
	return joinBlocks(
		"Hi "+to.Name+"!",
		describe(from)+" would like to connect with you.",
		why,
		about,
		"Would you like me to make an introduction? Reply 'yes' to accept or 'no' to decline.",
	)
}

// IntroMessage is sent to recipient about other. The requester hears "as
// requested"; the candidate hears "delighted to introduce".
func IntroMessage(recipient, other *types.Profile, reason string, toRequester bool) string {
	lead := "I'm delighted to introduce you to"
	if toRequester {
		lead = "As requested, I'm connecting you with"
	}
	var details []string
	if h := strings.TrimSpace(other.Headline); h != "" {
		details = append(details, "About them: "+h)
	}
	if r := strings.TrimSpace(reason); r != "" {
		details = append(details, "Why this connection: "+r)
	}
	if u := strings.TrimSpace(other.LinkedInURL); u != "" {
		details = append(details, "LinkedIn: "+u)
	}
	return joinBlocks(
		"Hi "+recipient.Name+"!",
		lead+" "+describe(other),
		strings.Join(details, "\n"),
		"I'll let you both take it from here. Wishing you a great conversation!",
		"Best,\nSuperconnector",
	)
}

// deliveryChannel is the recipient's first preferred channel the dispatcher
// can deliver on.
func deliveryChannel(p *types.Profile, fallback types.Channel) types.Channel {
	for _, c := range p.PreferredChannels {
		ch := types.Channel(strings.ToLower(strings.TrimSpace(c)))
		if ch.Deliverable() {
			return ch
		}
	}
	return fallback
}
