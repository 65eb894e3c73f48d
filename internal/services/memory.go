package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
)

type MemoryService interface {
	GetSummary(ctx context.Context, identityID uuid.UUID) (*types.ConversationSummary, error)
	// UpdateSummary folds newInteraction into the rolling summary. A failing
	// completer degrades to a deterministic concatenation; it never fails the call.
	// Blank input leaves the summary untouched and returns the stored one.
	UpdateSummary(ctx context.Context, identityID uuid.UUID, newInteraction string) (*types.ConversationSummary, error)
}

type memoryService struct {
	log         *logger.Logger
	summaryRepo repos.SummaryRepo
	profileRepo repos.ProfileRepo
	completer   Completer
	timeout     time.Duration
	now         func() time.Time
}

func NewMemoryService(log *logger.Logger, summaryRepo repos.SummaryRepo, profileRepo repos.ProfileRepo, completer Completer, timeout time.Duration) MemoryService {
	return &memoryService{
		log:         log.With("service", "MemoryService"),
		summaryRepo: summaryRepo,
		profileRepo: profileRepo,
		completer:   completer,
		timeout:     callTimeout(timeout),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

const summarySystemPrompt = "You are a memory system for a professional networking assistant. " +
	"Create concise, useful summaries that capture the essence of interactions and help provide personalized service."

// summaryWriteAttempts covers one compare-and-swap retry plus a final
// fallback-only write.
const summaryWriteAttempts = 3

func (s *memoryService) GetSummary(ctx context.Context, identityID uuid.UUID) (*types.ConversationSummary, error) {
	return s.summaryRepo.GetByIdentity(dbctx.Background(ctx), identityID)
}

func (s *memoryService) UpdateSummary(ctx context.Context, identityID uuid.UUID, newInteraction string) (*types.ConversationSummary, error) {
	dbc := dbctx.Background(ctx)
	if strings.TrimSpace(newInteraction) == "" {
		// nothing to fold in
		return s.summaryRepo.GetByIdentity(dbc, identityID)
	}
	prof, err := s.profileRepo.GetByIdentity(dbc, identityID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < summaryWriteAttempts; attempt++ {
		existing, err := s.summaryRepo.GetByIdentity(dbc, identityID)
		if err != nil {
			return nil, err
		}
		prior := ""
		if existing != nil {
			prior = existing.Summary
		}

		var text string
		if attempt == summaryWriteAttempts-1 {
			text = FallbackSummary(prior, newInteraction)
		} else {
			text = s.generate(ctx, prior, newInteraction, prof)
		}
		at := s.now()

		if existing == nil {
			row := &types.ConversationSummary{
				IdentityID:       identityID,
				Summary:          text,
				LastInteraction:  at,
				InteractionCount: 1,
			}
			created, err := s.summaryRepo.Create(dbc, row)
			if err != nil {
				return nil, fmt.Errorf("create summary: %w", err)
			}
			if created {
				return row, nil
			}
			continue
		}

		ok, err := s.summaryRepo.ReplaceIfCount(dbc, identityID, existing.InteractionCount, text, at)
		if err != nil {
			return nil, fmt.Errorf("replace summary: %w", err)
		}
		if ok {
			existing.Summary = text
			existing.LastInteraction = at
			existing.InteractionCount++
			existing.UpdatedAt = at
			return existing, nil
		}
		s.log.Debug("Summary changed underneath, retrying", "identity_id", identityID, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("update summary: concurrent writers for identity %s", identityID)
}

func (s *memoryService) generate(ctx context.Context, prior, newInteraction string, prof *types.Profile) string {
	if s.completer == nil {
		return FallbackSummary(prior, newInteraction)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	temp := 0.3
	out, err := s.completer.Complete(cctx, openai.CompletionRequest{
		System:      summarySystemPrompt,
		Messages:    []openai.Message{{Role: "user", Content: summaryPrompt(prior, newInteraction, prof)}},
		MaxTokens:   300,
		Temperature: &temp,
	})
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err == nil {
			err = fmt.Errorf("empty completion")
		}
		s.log.Warn("Summary completion unavailable, using fallback", "error", errs.CompletionUnavailable(err))
		if metrics := observability.Current(); metrics != nil {
			metrics.IncCompletionFallback("summary")
		}
		return FallbackSummary(prior, newInteraction)
	}
	return out
}

// FallbackSummary is the deterministic summary used when no model is reachable.
func FallbackSummary(prior, newInteraction string) string {
	if strings.TrimSpace(prior) == "" {
		return "Initial interaction: " + newInteraction
	}
	return prior + "\n\nLatest: " + newInteraction
}

func summaryPrompt(prior, newInteraction string, prof *types.Profile) string {
	var b strings.Builder
	b.WriteString("You are maintaining a memory summary for a person in a professional networking context.\n\n")
	if prior != "" {
		b.WriteString("Existing summary:\n" + prior + "\n\n")
	} else {
		b.WriteString("This is the first interaction.\n\n")
	}
	b.WriteString(fmt.Sprintf("New interaction: %q\n\n", newInteraction))
	if prof != nil {
		b.WriteString("Profile information:\n")
		b.WriteString("- Name: " + prof.Name + "\n")
		b.WriteString("- Role: " + orUnspecified(prof.Role) + "\n")
		b.WriteString("- Company: " + orUnspecified(prof.Company) + "\n")
		b.WriteString("- Looking for: " + orUnspecified(strings.Join(prof.Asks, ", ")) + "\n")
		b.WriteString("- Can offer: " + orUnspecified(strings.Join(prof.Offers, ", ")) + "\n\n")
	}
	b.WriteString(`Update the summary to include relevant information from the new interaction. The summary should:
1. Be concise (under 200 words)
2. Focus on professional context, goals, and preferences
3. Note any specific requests or needs mentioned
4. Track relationship progression and key topics discussed
5. Maintain continuity with previous interactions

Write the updated summary:`)
	return b.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
