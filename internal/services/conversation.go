package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type ConversationService interface {
	Append(ctx context.Context, identityID uuid.UUID, channel types.Channel, direction types.Direction, content string, meta *types.MessageMetadata) (*types.Message, error)
	// GetHistory returns the newest limit messages in ascending order.
	GetHistory(ctx context.Context, identityID uuid.UUID, limit int) ([]*types.Message, error)
	// GetUnified merges every channel plus stored call summaries chronologically.
	GetUnified(ctx context.Context, identityID uuid.UUID, limit int) ([]UnifiedEntry, error)
	LastInteractionSummary(ctx context.Context, phone string) (*LastInteraction, error)
}

type UnifiedEntry struct {
	At        time.Time       `json:"at"`
	Channel   types.Channel   `json:"channel"`
	Direction types.Direction `json:"direction"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	MessageID *uuid.UUID      `json:"message_id,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
}

type ContextLine struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LastInteraction struct {
	HasHistory    bool          `json:"has_history"`
	Summary       string        `json:"summary,omitempty"`
	LastAt        *time.Time    `json:"last_interaction_at,omitempty"`
	RecentContext []ContextLine `json:"recent_context,omitempty"`
}

type conversationService struct {
	log          *logger.Logger
	identityRepo repos.IdentityRepo
	profileRepo  repos.ProfileRepo
	messageRepo  repos.MessageRepo
	callRepo     repos.CallRepo
}

func NewConversationService(log *logger.Logger, identityRepo repos.IdentityRepo, profileRepo repos.ProfileRepo, messageRepo repos.MessageRepo, callRepo repos.CallRepo) ConversationService {
	return &conversationService{
		log:          log.With("service", "ConversationService"),
		identityRepo: identityRepo,
		profileRepo:  profileRepo,
		messageRepo:  messageRepo,
		callRepo:     callRepo,
	}
}

func (s *conversationService) Append(ctx context.Context, identityID uuid.UUID, channel types.Channel, direction types.Direction, content string, meta *types.MessageMetadata) (*types.Message, error) {
	if !channel.Valid() {
		return nil, errs.Validation("unknown channel %q", channel)
	}
	if direction != types.DirectionInbound && direction != types.DirectionOutbound {
		return nil, errs.Validation("unknown direction %q", direction)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("message content is required")
	}
	dbc := dbctx.Background(ctx)
	ident, err := s.identityRepo.GetByID(dbc, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, errs.NotFound("identity", identityID)
	}

	row := &types.Message{
		IdentityID: identityID,
		Channel:    channel,
		Direction:  direction,
		Content:    content,
	}
	if meta != nil {
		row.Metadata = datatypes.NewJSONType(*meta)
	}
	out, err := s.messageRepo.Create(dbc, []*types.Message{row})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := s.identityRepo.Touch(dbc, identityID, out[0].CreatedAt); err != nil {
		s.log.Warn("Touch identity failed", "identity_id", identityID, "error", err)
	}
	return out[0], nil
}

func (s *conversationService) GetHistory(ctx context.Context, identityID uuid.UUID, limit int) ([]*types.Message, error) {
	return s.messageRepo.ListByIdentity(dbctx.Background(ctx), identityID, clampLimit(limit, 50, repos.MaxMessageListLimit))
}

func (s *conversationService) GetUnified(ctx context.Context, identityID uuid.UUID, limit int) ([]UnifiedEntry, error) {
	limit = clampLimit(limit, 50, repos.MaxMessageListLimit)
	dbc := dbctx.Background(ctx)
	ident, err := s.identityRepo.GetByID(dbc, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, errs.NotFound("identity", identityID)
	}

	msgs, err := s.messageRepo.ListByIdentity(dbc, identityID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UnifiedEntry, 0, len(msgs))
	for _, m := range msgs {
		id := m.ID
		role := m.Meta().Role
		if role == "" {
			role = roleFor(m.Direction)
		}
		out = append(out, UnifiedEntry{
			At:        m.CreatedAt,
			Channel:   m.Channel,
			Direction: m.Direction,
			Role:      role,
			Content:   m.Content,
			MessageID: &id,
			CallID:    m.Meta().CallID,
		})
	}

	if phone := ident.PhoneValue(); phone != "" {
		calls, err := s.callRepo.ListByPhone(dbc, phone, limit)
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			if strings.TrimSpace(c.Summary) == "" {
				continue
			}
			at := c.CreatedAt
			if c.EndedAt != nil {
				at = *c.EndedAt
			}
			out = append(out, UnifiedEntry{
				At:        at,
				Channel:   types.ChannelPhone,
				Direction: types.DirectionOutbound,
				Role:      "system",
				Content:   "[Call Summary] " + c.Summary,
				CallID:    c.CallID,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *conversationService) LastInteractionSummary(ctx context.Context, phone string) (*LastInteraction, error) {
	phone = types.NormalizePhone(phone)
	if phone == "" {
		return nil, errs.Validation("phone is required")
	}
	dbc := dbctx.Background(ctx)
	ident, err := s.identityRepo.FindByIdentifiers(dbc, types.Identifiers{Phone: phone})
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return &LastInteraction{}, nil
	}
	prof, err := s.profileRepo.GetByIdentity(dbc, ident.ID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListByIdentity(dbc, ident.ID, 10)
	if err != nil {
		return nil, err
	}
	hasProfileSummary := prof != nil && strings.TrimSpace(prof.LastCallSummary) != ""
	if len(msgs) == 0 && !hasProfileSummary {
		return &LastInteraction{}, nil
	}

	out := &LastInteraction{HasHistory: true}
	if call, err := s.callRepo.LatestWithSummary(dbc, phone); err != nil {
		return nil, err
	} else if call != nil {
		out.Summary = call.Summary
	} else if hasProfileSummary {
		out.Summary = "From our last call: " + prof.LastCallSummary
	}

	switch {
	case prof != nil && prof.LastCallAt != nil:
		at := *prof.LastCallAt
		out.LastAt = &at
	case len(msgs) > 0:
		at := msgs[len(msgs)-1].CreatedAt
		out.LastAt = &at
	}

	recent := msgs
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, m := range recent {
		out.RecentContext = append(out.RecentContext, ContextLine{
			Role:    roleFor(m.Direction),
			Content: truncateRunes(m.Content, 100),
		})
	}
	return out, nil
}

func roleFor(d types.Direction) string {
	if d == types.DirectionInbound {
		return "user"
	}
	return "assistant"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
