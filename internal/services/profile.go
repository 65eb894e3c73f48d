package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
)

type ProfileService interface {
	// Upsert creates or patches the profile owned by identityID. Creation
	// requires a name.
	Upsert(ctx context.Context, identityID uuid.UUID, fields types.ProfileFields) (*types.Profile, error)
	// Ensure returns the identity's profile, creating a minimal one named
	// defaultName when none exists.
	Ensure(ctx context.Context, ident *types.Identity, defaultName string) (*types.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Profile, error)
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*types.Profile, error)
	GetByPhone(ctx context.Context, phone string) (*types.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*types.Profile, error)
	GeneratePitch(ctx context.Context, profileID uuid.UUID, audience string, extra string) (*Pitch, error)
}

type Pitch struct {
	Pitch    string         `json:"pitch"`
	Audience string         `json:"audience"`
	Profile  *types.Profile `json:"profile"`
}

var pitchAudiences = map[string]string{
	"vc":       "a venture capitalist looking for investment opportunities",
	"founder":  "a startup founder looking for collaborators or resources",
	"engineer": "a technical person interested in engineering challenges",
	"operator": "a business operator focused on execution and growth",
	"student":  "a student or intern looking for opportunities",
	"general":  "a professional in the tech ecosystem",
}

type profileService struct {
	db           *gorm.DB
	log          *logger.Logger
	identityRepo repos.IdentityRepo
	profileRepo  repos.ProfileRepo
	embeddings   EmbeddingRefresher
	completer    Completer
	timeout      time.Duration
}

func NewProfileService(db *gorm.DB, log *logger.Logger, identityRepo repos.IdentityRepo, profileRepo repos.ProfileRepo, embeddings EmbeddingRefresher, completer Completer, timeout time.Duration) ProfileService {
	return &profileService{
		db:           db,
		log:          log.With("service", "ProfileService"),
		identityRepo: identityRepo,
		profileRepo:  profileRepo,
		embeddings:   embeddings,
		completer:    completer,
		timeout:      callTimeout(timeout),
	}
}

func (s *profileService) Upsert(ctx context.Context, identityID uuid.UUID, fields types.ProfileFields) (*types.Profile, error) {
	if fields.Name != nil && strings.TrimSpace(*fields.Name) == "" {
		return nil, errs.Validation("name cannot be blank")
	}
	if fields.QuietHours != nil {
		if err := ValidateQuietHours(*fields.QuietHours); err != nil {
			return nil, err
		}
	}
	if fields.PreferredChannels != nil {
		for _, c := range *fields.PreferredChannels {
			if !types.Channel(c).Valid() {
				return nil, errs.Validation("unknown preferred channel %q", c)
			}
		}
	}

	var (
		out      *types.Profile
		material bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		ident, err := s.identityRepo.GetByID(dbc, identityID)
		if err != nil {
			return err
		}
		if ident == nil {
			return errs.NotFound("identity", identityID)
		}
		existing, err := s.profileRepo.GetByIdentity(dbc, identityID)
		if err != nil {
			return err
		}
		if existing == nil {
			if fields.Name == nil {
				return errs.Validation("name is required to create a profile")
			}
			p := &types.Profile{IdentityID: identityID, Phone: ident.PhoneValue(), Email: ident.EmailValue(), LinkedInURL: ident.LinkedInURLValue()}
			material = fields.Apply(p)
			if err := s.profileRepo.Create(dbc, p); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			out = p
			return nil
		}
		material = fields.Apply(existing)
		if err := s.profileRepo.Save(dbc, existing); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if material && s.embeddings != nil {
		// The profile write stands even when the embedding cannot be refreshed.
		if err := s.embeddings.RefreshEmbedding(ctx, out); err != nil {
			s.log.Warn("Embedding refresh failed", "profile_id", out.ID, "error", err)
		}
	}
	return out, nil
}

func (s *profileService) Ensure(ctx context.Context, ident *types.Identity, defaultName string) (*types.Profile, error) {
	if ident == nil {
		return nil, errs.Validation("identity is required")
	}
	existing, err := s.profileRepo.GetByIdentity(dbctx.Background(ctx), ident.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	name := strings.TrimSpace(defaultName)
	if name == "" {
		name = "User"
	}
	return s.Upsert(ctx, ident.ID, types.ProfileFields{Name: &name})
}

func (s *profileService) GetByID(ctx context.Context, id uuid.UUID) (*types.Profile, error) {
	return s.profileRepo.GetByID(dbctx.Background(ctx), id)
}

func (s *profileService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*types.Profile, error) {
	return s.profileRepo.GetByIdentity(dbctx.Background(ctx), identityID)
}

func (s *profileService) GetByPhone(ctx context.Context, phone string) (*types.Profile, error) {
	phone = types.NormalizePhone(phone)
	if phone == "" {
		return nil, errs.Validation("phone is required")
	}
	return s.profileRepo.GetByIdentityPhone(dbctx.Background(ctx), phone)
}

func (s *profileService) List(ctx context.Context, limit, offset int) ([]*types.Profile, error) {
	return s.profileRepo.List(dbctx.Background(ctx), clampLimit(limit, 50, 500), offset)
}

func (s *profileService) GeneratePitch(ctx context.Context, profileID uuid.UUID, audience string, extra string) (*Pitch, error) {
	audience = strings.ToLower(strings.TrimSpace(audience))
	if audience == "" {
		audience = "general"
	}
	audienceText, ok := pitchAudiences[audience]
	if !ok {
		return nil, errs.Validation("unknown audience %q", audience)
	}
	p, err := s.profileRepo.GetByID(dbctx.Background(ctx), profileID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.NotFound("profile", profileID)
	}
	if s.completer == nil {
		return nil, errs.CompletionUnavailable(fmt.Errorf("no completion provider configured"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a compelling 60-120 word pitch for %s targeting %s.\n\n", p.Name, audienceText)
	b.WriteString("Profile details:\n")
	b.WriteString("- Name: " + p.Name + "\n")
	b.WriteString("- Role: " + orUnspecified(p.Role) + "\n")
	b.WriteString("- Company: " + orUnspecified(p.Company) + "\n")
	b.WriteString("- Headline: " + orUnspecified(p.Headline) + "\n")
	b.WriteString("- Offers: " + orUnspecified(strings.Join(p.Offers, ", ")) + "\n")
	b.WriteString("- Looking for: " + orUnspecified(strings.Join(p.Asks, ", ")) + "\n")
	if strings.TrimSpace(extra) != "" {
		b.WriteString("Additional context: " + strings.TrimSpace(extra) + "\n")
	}
	b.WriteString("\nWrite in a warm, conversational tone that highlights their unique value. " +
		"Focus on what makes them exceptional and why someone should connect with them.")

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	temp := 0.7
	text, err := s.completer.Complete(cctx, openai.CompletionRequest{
		System:      "You are an expert networker who writes compelling, concise pitches that make people want to connect.",
		Messages:    []openai.Message{{Role: "user", Content: b.String()}},
		MaxTokens:   200,
		Temperature: &temp,
	})
	if err != nil {
		return nil, errs.CompletionUnavailable(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.CompletionUnavailable(fmt.Errorf("empty completion"))
	}
	return &Pitch{Pitch: text, Audience: audience, Profile: p}, nil
}
