package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
)

var (
	emailPattern     = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	wantsCallPattern = regexp.MustCompile(`(?i)\b(call me|can you call|please call|talk|speak)\b`)
	lastCallPattern  = regexp.MustCompile(`(?i)\b(last|previous|recent|our) .*(call|conversation|talk|spoke)\b`)
	greetingPattern  = regexp.MustCompile(`(?i)^(hi|hey|hello|sup|yo|howdy)$`)
)

const (
	assistantName         = "Eli"
	assistantContextTurns = 5
	welcomeBackThreshold  = 5

	replyChatFallback = "I understand you're interested in building connections. What type of professionals or industries are you looking to connect with?"
	replyCallFailed   = "I'll arrange a call for you shortly! Meanwhile, what specific connections are you looking to make?"
	replyCalling      = "Perfect! I'm calling you now. Please answer when you see the call so we can discuss your networking needs in detail!"
	replyNoCalls      = "I don't see any recent calls in our records. Would you like to schedule one? Just say 'call me'"

	// ReplyAssistantUnavailable is sent when the inbound message could not be
	// processed at all.
	ReplyAssistantUnavailable = "I'm having a moment! Let me get back to you shortly. Meanwhile, feel free to tell me what you're looking for!"
)

type InboundMessage struct {
	From        string
	Body        string
	ProfileName string
}

type AssistantReply struct {
	IdentityID uuid.UUID
	ProfileID  uuid.UUID
	Text       string
	// Step names the branch that produced Text.
	Step string
}

type WhatsAppAssistant interface {
	HandleInbound(ctx context.Context, in InboundMessage) (*AssistantReply, error)
}

type WhatsAppAssistantDeps struct {
	Identities    IdentityService
	Profiles      ProfileService
	Conversations ConversationService
	Memory        MemoryService
	Intros        IntroService
	Calls         CallSyncService
	Completer     Completer
	Timeout       time.Duration
}

type whatsAppAssistant struct {
	log           *logger.Logger
	identities    IdentityService
	profiles      ProfileService
	conversations ConversationService
	memory        MemoryService
	intros        IntroService
	calls         CallSyncService
	completer     Completer
	timeout       time.Duration
	now           func() time.Time
}

func NewWhatsAppAssistant(log *logger.Logger, deps WhatsAppAssistantDeps) WhatsAppAssistant {
	return &whatsAppAssistant{
		log:           log.With("service", "WhatsAppAssistant"),
		identities:    deps.Identities,
		profiles:      deps.Profiles,
		conversations: deps.Conversations,
		memory:        deps.Memory,
		intros:        deps.Intros,
		calls:         deps.Calls,
		completer:     deps.Completer,
		timeout:       callTimeout(deps.Timeout),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (a *whatsAppAssistant) HandleInbound(ctx context.Context, in InboundMessage) (*AssistantReply, error) {
	phone := types.NormalizePhone(in.From)
	text := strings.TrimSpace(in.Body)
	if phone == "" || text == "" {
		return nil, errs.Validation("sender and body are required")
	}
	name := strings.TrimSpace(in.ProfileName)
	if name == "" {
		name = placeholderName
	}

	ident, err := a.identities.Resolve(ctx, types.Identifiers{Phone: phone, WhatsAppID: phone})
	if err != nil {
		return nil, err
	}
	prof, err := a.profiles.Ensure(ctx, ident, name)
	if err != nil {
		return nil, err
	}
	inMeta := &types.MessageMetadata{Role: "user", Source: "whatsapp", FromUser: true}
	if _, err := a.conversations.Append(ctx, ident.ID, types.ChannelWhatsApp, types.DirectionInbound, text, inMeta); err != nil {
		return nil, err
	}

	reply, step, err := a.respond(ctx, ident, prof, phone, text)
	if err != nil {
		return nil, err
	}

	outMeta := &types.MessageMetadata{Role: "assistant", Source: "whatsapp", Type: step}
	if _, err := a.conversations.Append(ctx, ident.ID, types.ChannelWhatsApp, types.DirectionOutbound, reply, outMeta); err != nil {
		return nil, err
	}
	if a.memory != nil {
		exchange := fmt.Sprintf("WhatsApp. User: %s\nAssistant: %s", text, reply)
		if _, err := a.memory.UpdateSummary(ctx, ident.ID, exchange); err != nil {
			a.log.Warn("Summary update after WhatsApp message failed", "identity_id", ident.ID, "error", err)
		}
	}
	return &AssistantReply{IdentityID: ident.ID, ProfileID: prof.ID, Text: reply, Step: step}, nil
}

func (a *whatsAppAssistant) respond(ctx context.Context, ident *types.Identity, prof *types.Profile, phone, text string) (string, string, error) {
	if a.intros != nil {
		res, err := a.intros.ParseReply(ctx, ident.ID, text, types.ChannelWhatsApp)
		if err != nil {
			return "", "", err
		}
		if res.Parsed {
			return res.Message, "consent_reply", nil
		}
	}

	if lastCallPattern.MatchString(text) {
		reply, err := a.lastCallReply(ctx, phone)
		return reply, "last_call", err
	}

	email := emailPattern.FindString(text)
	if prof.Email == "" && email == "" {
		return fmt.Sprintf("Hey %s!\n\nTo help you build meaningful connections, I'll need your email address. This helps me personalize your networking journey.\n\nWhat's your best email?", prof.Name), "ask_email", nil
	}
	if email != "" && !strings.EqualFold(prof.Email, email) {
		return a.saveEmail(ctx, ident, prof, phone, email), "save_email", nil
	}

	if wantsCallPattern.MatchString(text) {
		if a.calls == nil {
			return replyCallFailed, "call", nil
		}
		if _, err := a.calls.StartOutboundCall(ctx, prof, phone); err != nil {
			a.log.Warn("Outbound call failed", "profile_id", prof.ID, "error", err)
			return replyCallFailed, "call", nil
		}
		return replyCalling, "call", nil
	}

	history, err := a.conversations.GetHistory(ctx, ident.ID, 20)
	if err != nil {
		return "", "", err
	}
	if greetingPattern.MatchString(text) {
		if len(history) > welcomeBackThreshold {
			return fmt.Sprintf("Welcome back %s!\n\nGreat to continue our conversation. What's on your mind today?", prof.Name), "greeting", nil
		}
		return fmt.Sprintf("Hey %s!\n\nI'm %s, your AI networking assistant. I help professionals build meaningful connections.\n\nHow can I help you expand your network today?", prof.Name, assistantName), "greeting", nil
	}

	return a.chat(ctx, prof, history, text), "chat", nil
}

func (a *whatsAppAssistant) lastCallReply(ctx context.Context, phone string) (string, error) {
	li, err := a.conversations.LastInteractionSummary(ctx, phone)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(li.Summary) == "" {
		return replyNoCalls, nil
	}
	if li.LastAt == nil {
		return li.Summary + "\n\nHow can I help you today?", nil
	}
	return fmt.Sprintf("Yes! We spoke %s. %s\n\nWhat would you like to explore next?", humanizeAgo(a.now().Sub(*li.LastAt)), li.Summary), nil
}

func (a *whatsAppAssistant) saveEmail(ctx context.Context, ident *types.Identity, prof *types.Profile, phone, email string) string {
	if _, err := a.identities.Resolve(ctx, types.Identifiers{Phone: phone, Email: email}); err != nil {
		a.log.Warn("Attaching email to identity failed", "identity_id", ident.ID, "error", err)
	}
	if _, err := a.profiles.Upsert(ctx, ident.ID, types.ProfileFields{Email: &email}); err != nil {
		a.log.Warn("Saving email on profile failed", "profile_id", prof.ID, "error", err)
		return "Thanks for sharing your email! What kind of connections are you looking for?"
	}
	return fmt.Sprintf("Perfect! I've saved your email (%s)\n\nNow, what kind of connections would be most valuable for your goals?", email)
}

func (a *whatsAppAssistant) chat(ctx context.Context, prof *types.Profile, history []*types.Message, text string) string {
	if a.completer == nil {
		return replyChatFallback
	}
	// The newest entry is the inbound message itself.
	prior := history
	if n := len(prior); n > 0 && prior[n-1].Direction == types.DirectionInbound && prior[n-1].Content == text {
		prior = prior[:n-1]
	}
	if len(prior) > assistantContextTurns {
		prior = prior[len(prior)-assistantContextTurns:]
	}
	msgs := make([]openai.Message, 0, len(prior)+1)
	for _, m := range prior {
		msgs = append(msgs, openai.Message{Role: roleFor(m.Direction), Content: m.Content})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: text})

	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s, an AI networking assistant helping %s build professional connections.\n", assistantName, prof.Name)
	if prof.Email != "" {
		fmt.Fprintf(&sys, "Their email is %s.\n", prof.Email)
	} else {
		sys.WriteString("They haven't shared their email yet.\n")
	}
	if prof.LastCallSummary != "" {
		fmt.Fprintf(&sys, "Previous call summary: %s\n", prof.LastCallSummary)
	}
	sys.WriteString("Keep responses concise (2-3 sentences), helpful, and focused on networking and connections. Be professional yet friendly.")

	temp := 0.7
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, err := a.completer.Complete(cctx, openai.CompletionRequest{
		System:      sys.String(),
		Messages:    msgs,
		MaxTokens:   150,
		Temperature: &temp,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		a.log.Warn("Chat completion failed, using canned reply", "profile_id", prof.ID, "error", err)
		return replyChatFallback
	}
	return strings.TrimSpace(out)
}

func humanizeAgo(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	unit := func(n int, word string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", word)
		}
		return fmt.Sprintf("%d %ss ago", n, word)
	}
	switch {
	case d < time.Hour:
		return unit(int(d/time.Minute), "minute")
	case d < 48*time.Hour:
		return unit(int(d/time.Hour), "hour")
	default:
		return unit(int(d/(24*time.Hour)), "day")
	}
}
