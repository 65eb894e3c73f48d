package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/clients/vapi"
	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

const (
	CallEventStarted    = "call-started"
	CallEventEnded      = "call-ended"
	CallEventTranscript = "transcript"
	CallEventStatus     = "status-update"

	placeholderName   = "User"
	callContextWindow = 10
	keyPointsMaxRunes = 500
)

// CallEvent is one live event from the voice provider.
type CallEvent struct {
	CallID           string
	Phone            string
	EventType        string
	Status           string
	Message          string
	UserMessage      string
	AssistantMessage string
	Transcript       string
	At               time.Time
}

type CallTurn struct {
	Role    string
	Content string
}

// CallReport is the end-of-call payload.
type CallReport struct {
	CallID          string
	Phone           string
	Name            string
	Transcript      string
	Summary         string
	DurationSeconds int
	Turns           []CallTurn
}

// CallContext is what the voice assistant receives when it asks who it is
// talking to.
type CallContext struct {
	Found               bool   `json:"found"`
	ConversationHistory string `json:"conversationHistory,omitempty"`
	UserName            string `json:"userName,omitempty"`
	UserEmail           string `json:"userEmail,omitempty"`
	UserProfile         string `json:"userProfile,omitempty"`
}

type CallSyncService interface {
	// SyncCallEvent records a live call event. It reports false when the
	// phone number belongs to nobody.
	SyncCallEvent(ctx context.Context, ev CallEvent) (bool, error)
	// StoreCallSummary folds a finished call into the conversation, the
	// profile and the rolling summary. Unknown callers get a placeholder profile.
	StoreCallSummary(ctx context.Context, report CallReport) (*types.Call, error)
	CallContext(ctx context.Context, phone string) (*CallContext, error)
	StartOutboundCall(ctx context.Context, p *types.Profile, phone string) (*types.Call, error)
}

type CallSyncDeps struct {
	Identities    IdentityService
	Profiles      ProfileService
	Conversations ConversationService
	Memory        MemoryService
	CallRepo      repos.CallRepo
	Voice         vapi.Client
	Timeout       time.Duration
}

type callSyncService struct {
	log           *logger.Logger
	identities    IdentityService
	profiles      ProfileService
	conversations ConversationService
	memory        MemoryService
	callRepo      repos.CallRepo
	voice         vapi.Client
	timeout       time.Duration
	now           func() time.Time
}

func NewCallSyncService(log *logger.Logger, deps CallSyncDeps) CallSyncService {
	return &callSyncService{
		log:           log.With("service", "CallSyncService"),
		identities:    deps.Identities,
		profiles:      deps.Profiles,
		conversations: deps.Conversations,
		memory:        deps.Memory,
		callRepo:      deps.CallRepo,
		voice:         deps.Voice,
		timeout:       callTimeout(deps.Timeout),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *callSyncService) SyncCallEvent(ctx context.Context, ev CallEvent) (bool, error) {
	phone := types.NormalizePhone(ev.Phone)
	if phone == "" || strings.TrimSpace(ev.CallID) == "" {
		return false, errs.Validation("call id and phone are required")
	}
	ident, err := s.identities.FindByIdentifiers(ctx, types.Identifiers{Phone: phone})
	if err != nil {
		return false, err
	}
	if ident == nil {
		s.log.Warn("Call event for unknown phone", "phone", phone, "call_id", ev.CallID)
		return false, nil
	}
	prof, err := s.profiles.GetByIdentity(ctx, ident.ID)
	if err != nil {
		return false, err
	}

	content, direction := ev.AssistantMessage, types.DirectionOutbound
	switch {
	case strings.TrimSpace(ev.UserMessage) != "":
		content, direction = ev.UserMessage, types.DirectionInbound
	case strings.TrimSpace(content) == "":
		content = ev.Message
	}
	if strings.TrimSpace(content) != "" {
		meta := &types.MessageMetadata{
			Role:      roleFor(direction),
			Source:    "vapi",
			CallID:    ev.CallID,
			EventType: ev.EventType,
			FromUser:  direction == types.DirectionInbound,
		}
		if _, err := s.conversations.Append(ctx, ident.ID, types.ChannelPhone, direction, content, meta); err != nil {
			return false, err
		}
	}

	dbc := dbctx.Background(ctx)
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}
	call, err := s.callRepo.GetByCallID(dbc, ev.CallID)
	if err != nil {
		return false, err
	}
	if call == nil {
		if ev.EventType == CallEventStarted || (ev.EventType == CallEventStatus && ev.Status == types.CallInProgress) {
			name := placeholderName
			if prof != nil && prof.Name != "" {
				name = prof.Name
			}
			if err := s.callRepo.Create(dbc, &types.Call{
				CallID:      ev.CallID,
				PhoneNumber: phone,
				Name:        name,
				Topic:       "Superconnector call",
				Status:      types.CallInProgress,
				StartedAt:   &at,
			}); err != nil {
				return false, fmt.Errorf("create call: %w", err)
			}
		}
		return true, nil
	}

	updates := map[string]any{}
	switch {
	case ev.EventType == CallEventEnded:
		updates["status"] = types.CallCompleted
		updates["ended_at"] = at
	case ev.EventType == CallEventStatus && ev.Status != "":
		updates["status"] = ev.Status
		if ev.Status == types.CallInProgress && call.StartedAt == nil {
			updates["started_at"] = at
		}
	case strings.TrimSpace(ev.Transcript) != "":
		updates["transcript"] = ev.Transcript
	}
	if err := s.callRepo.UpdateFields(dbc, ev.CallID, updates); err != nil {
		return false, fmt.Errorf("update call: %w", err)
	}
	return true, nil
}

func (s *callSyncService) StoreCallSummary(ctx context.Context, report CallReport) (*types.Call, error) {
	phone := types.NormalizePhone(report.Phone)
	if phone == "" || strings.TrimSpace(report.CallID) == "" {
		return nil, errs.Validation("call id and phone are required")
	}
	ident, err := s.identities.Resolve(ctx, types.Identifiers{Phone: phone})
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(report.Name)
	if name == "" {
		name = placeholderName
	}
	prof, err := s.profiles.Ensure(ctx, ident, name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	minutes := int(math.Round(float64(report.DurationSeconds) / 60))
	summary := strings.TrimSpace(report.Summary)
	if summary == "" {
		summary = fmt.Sprintf("Call completed (%d minutes)", minutes)
	}

	dbc := dbctx.Background(ctx)
	call, err := s.callRepo.GetByCallID(dbc, report.CallID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		call = &types.Call{
			CallID:          report.CallID,
			PhoneNumber:     phone,
			Name:            prof.Name,
			Topic:           "Superconnector call",
			Status:          types.CallCompleted,
			Transcript:      report.Transcript,
			Summary:         summary,
			DurationSeconds: report.DurationSeconds,
			EndedAt:         &now,
		}
		if err := s.callRepo.Create(dbc, call); err != nil {
			return nil, fmt.Errorf("create call: %w", err)
		}
	} else {
		if err := s.callRepo.UpdateFields(dbc, report.CallID, map[string]any{
			"status":           types.CallCompleted,
			"transcript":       report.Transcript,
			"summary":          summary,
			"duration_seconds": report.DurationSeconds,
			"ended_at":         now,
		}); err != nil {
			return nil, fmt.Errorf("update call: %w", err)
		}
		call.Status = types.CallCompleted
		call.Transcript = report.Transcript
		call.Summary = summary
		call.DurationSeconds = report.DurationSeconds
		call.EndedAt = &now
	}

	var userSaid []string
	for _, turn := range report.Turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		direction := types.DirectionOutbound
		if turn.Role == "user" {
			direction = types.DirectionInbound
			userSaid = append(userSaid, content)
		}
		meta := &types.MessageMetadata{
			Role:     roleFor(direction),
			Source:   "vapi",
			CallID:   report.CallID,
			Type:     "call-turn",
			FromUser: direction == types.DirectionInbound,
		}
		if _, err := s.conversations.Append(ctx, ident.ID, types.ChannelPhone, direction, content, meta); err != nil {
			return nil, err
		}
	}

	summaryMeta := &types.MessageMetadata{
		Role:            "system",
		Source:          "vapi",
		CallID:          report.CallID,
		Type:            "call-summary",
		DurationSeconds: report.DurationSeconds,
	}
	if _, err := s.conversations.Append(ctx, ident.ID, types.ChannelPhone, types.DirectionOutbound, fmt.Sprintf("[Call %d min] %s", minutes, summary), summaryMeta); err != nil {
		return nil, err
	}

	detailed := summary
	if len(userSaid) > 0 {
		detailed = summary + "\n\nKey points discussed: " + truncateRunes(strings.Join(userSaid, " "), keyPointsMaxRunes)
	}
	if _, err := s.profiles.Upsert(ctx, ident.ID, types.ProfileFields{
		LastCallSummary: &detailed,
		LastCallAt:      &now,
		AppendCall: &types.CallHistoryEntry{
			CallID:          report.CallID,
			At:              now,
			DurationSeconds: report.DurationSeconds,
			Transcript:      report.Transcript,
			Summary:         summary,
		},
	}); err != nil {
		return nil, err
	}

	if s.memory != nil {
		if _, err := s.memory.UpdateSummary(ctx, ident.ID, "Phone call: "+detailed); err != nil {
			s.log.Warn("Summary update after call failed", "call_id", report.CallID, "error", err)
		}
	}
	s.log.Info("Call summary stored", "call_id", report.CallID, "profile_id", prof.ID, "duration_seconds", report.DurationSeconds)
	return call, nil
}

func (s *callSyncService) CallContext(ctx context.Context, phone string) (*CallContext, error) {
	phone = types.NormalizePhone(phone)
	prof, err := s.profiles.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		if alt := strings.TrimPrefix(phone, "+"); alt != phone {
			if prof, err = s.profiles.GetByPhone(ctx, alt); err != nil {
				return nil, err
			}
		} else if prof, err = s.profiles.GetByPhone(ctx, "+"+phone); err != nil {
			return nil, err
		}
	}
	if prof == nil {
		return &CallContext{}, nil
	}

	msgs, err := s.conversations.GetHistory(ctx, prof.IdentityID, callContextWindow)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("Previous conversations:\n")
	if prof.LastCallSummary != "" {
		b.WriteString("Last call: " + prof.LastCallSummary + "\n")
	}
	for _, m := range msgs {
		who := "Assistant"
		if m.Direction == types.DirectionInbound {
			who = "User"
		}
		b.WriteString(who + ": " + m.Content + "\n")
	}

	email := prof.Email
	if email == "" {
		email = "No email"
	}
	return &CallContext{
		Found:               true,
		ConversationHistory: b.String(),
		UserName:            prof.Name,
		UserEmail:           prof.Email,
		UserProfile:         strings.TrimSpace(fmt.Sprintf("%s - %s - %s. %s", prof.Name, prof.Phone, email, prof.LastCallSummary)),
	}, nil
}

func (s *callSyncService) StartOutboundCall(ctx context.Context, p *types.Profile, phone string) (*types.Call, error) {
	if s.voice == nil {
		return nil, errs.DispatchFailure(string(types.ChannelPhone), fmt.Errorf("voice provider not configured"))
	}
	phone = types.NormalizePhone(phone)
	if phone == "" {
		return nil, errs.Validation("phone is required")
	}
	name := placeholderName
	if p != nil && p.Name != "" {
		name = p.Name
	}
	vars := map[string]string{"userName": name}
	if p != nil && p.LastCallSummary != "" {
		vars["lastCallSummary"] = p.LastCallSummary
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started, err := s.voice.StartCall(cctx, vapi.StartCallRequest{Number: phone, Name: name, Variables: vars})
	if err != nil {
		return nil, errs.DispatchFailure(string(types.ChannelPhone), err)
	}

	now := s.now()
	call := &types.Call{
		CallID:      started.ID,
		PhoneNumber: phone,
		Name:        name,
		Topic:       "Superconnector call",
		Status:      types.CallInitiated,
		StartedAt:   &now,
	}
	if started.ID != "" {
		if err := s.callRepo.Create(dbctx.Background(ctx), call); err != nil {
			s.log.Warn("Recording outbound call failed", "call_id", started.ID, "error", err)
		}
	}
	s.log.Info("Outbound call started", "call_id", started.ID, "phone", phone)
	return call, nil
}
