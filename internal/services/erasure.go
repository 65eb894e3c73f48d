package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/graph"
	"github.com/yungbote/superconnector-backend/internal/data/repos"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type ErasureReport struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Messages   int64     `json:"messages"`
	Summaries  int64     `json:"summaries"`
	Intros     int64     `json:"intros"`
	Profiles   int64     `json:"profiles"`
	Calls      int64     `json:"calls"`
	Identities int64     `json:"identities"`
}

type ErasureService interface {
	// Erase removes everything stored about an identity. Vector and graph
	// cleanup run after the commit and are best effort.
	Erase(ctx context.Context, identityID uuid.UUID) (*ErasureReport, error)
}

type ErasureDeps struct {
	IdentityRepo repos.IdentityRepo
	ProfileRepo  repos.ProfileRepo
	MessageRepo  repos.MessageRepo
	SummaryRepo  repos.SummaryRepo
	IntroRepo    repos.IntroRepo
	CallRepo     repos.CallRepo
	Matches      MatchService
	Graph        graph.IntroGraph
}

type erasureService struct {
	db   *gorm.DB
	log  *logger.Logger
	deps ErasureDeps
}

func NewErasureService(db *gorm.DB, log *logger.Logger, deps ErasureDeps) ErasureService {
	return &erasureService{db: db, log: log.With("service", "ErasureService"), deps: deps}
}

func (s *erasureService) Erase(ctx context.Context, identityID uuid.UUID) (*ErasureReport, error) {
	ident, err := s.deps.IdentityRepo.GetByID(dbctx.Background(ctx), identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, errs.NotFound("identity", identityID)
	}

	out := &ErasureReport{IdentityID: identityID}
	var profileID uuid.UUID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		prof, err := s.deps.ProfileRepo.GetByIdentity(dbc, identityID)
		if err != nil {
			return err
		}
		if out.Messages, err = s.deps.MessageRepo.DeleteByIdentity(dbc, identityID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if out.Summaries, err = s.deps.SummaryRepo.DeleteByIdentity(dbc, identityID); err != nil {
			return fmt.Errorf("delete summary: %w", err)
		}
		if prof != nil {
			profileID = prof.ID
			if out.Intros, err = s.deps.IntroRepo.DeleteByProfile(dbc, prof.ID); err != nil {
				return fmt.Errorf("delete intros: %w", err)
			}
		}
		if out.Profiles, err = s.deps.ProfileRepo.DeleteByIdentity(dbc, identityID); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if ident.Phone != nil {
			if out.Calls, err = s.deps.CallRepo.DeleteByPhone(dbc, *ident.Phone); err != nil {
				return fmt.Errorf("delete calls: %w", err)
			}
		}
		if out.Identities, err = s.deps.IdentityRepo.Delete(dbc, identityID); err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if profileID != uuid.Nil {
		if s.deps.Matches != nil {
			if err := s.deps.Matches.Forget(ctx, profileID); err != nil {
				s.log.Warn("Vector cleanup after erasure failed", "profile_id", profileID, "error", err)
			}
		}
		if s.deps.Graph != nil {
			if err := s.deps.Graph.DeletePerson(ctx, profileID); err != nil {
				s.log.Warn("Graph cleanup after erasure failed", "profile_id", profileID, "error", err)
			}
		}
	}
	s.log.Info("Identity erased", "identity_id", identityID, "messages", out.Messages, "intros", out.Intros, "calls", out.Calls)
	return out, nil
}
