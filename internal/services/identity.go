package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type IdentityService interface {
	// Resolve returns the identity owning any of ids, creating one when none
	// does. Missing identifiers on the match are filled; set ones are never
	// overwritten.
	Resolve(ctx context.Context, ids types.Identifiers) (*types.Identity, error)
	FindByIdentifiers(ctx context.Context, ids types.Identifiers) (*types.Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Identity, error)
	List(ctx context.Context, limit, offset int) ([]*types.Identity, error)
}

type identityService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.IdentityRepo
}

func NewIdentityService(db *gorm.DB, log *logger.Logger, repo repos.IdentityRepo) IdentityService {
	return &identityService{
		db:   db,
		log:  log.With("service", "IdentityService"),
		repo: repo,
	}
}

// resolveAttempts bounds the retry when a concurrent first contact wins the
// unique-index race.
const resolveAttempts = 3

func (s *identityService) Resolve(ctx context.Context, ids types.Identifiers) (*types.Identity, error) {
	ids = ids.Normalize()
	if ids.Empty() {
		return nil, errs.Validation("at least one identifier is required")
	}

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		var out *types.Identity
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			found, err := s.repo.FindByIdentifiers(dbc, ids)
			if err != nil {
				return err
			}
			if found != nil {
				filled, err := s.repo.FillMissing(dbc, found.ID, ids)
				if err != nil {
					return err
				}
				out = filled
				return nil
			}
			row, created, err := s.repo.Create(dbc, ids)
			if err != nil {
				return err
			}
			if created {
				out = row
			}
			return nil
		})
		if err != nil {
			s.log.Warn("Resolve identity failed", "error", err)
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		if out != nil {
			return out, nil
		}
		s.log.Debug("Identity create lost a race, retrying lookup", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("resolve identity: conflicting concurrent creates")
}

func (s *identityService) FindByIdentifiers(ctx context.Context, ids types.Identifiers) (*types.Identity, error) {
	ids = ids.Normalize()
	if ids.Empty() {
		return nil, errs.Validation("at least one identifier is required")
	}
	return s.repo.FindByIdentifiers(dbctx.Background(ctx), ids)
}

func (s *identityService) GetByID(ctx context.Context, id uuid.UUID) (*types.Identity, error) {
	row, err := s.repo.GetByID(dbctx.Background(ctx), id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errs.NotFound("identity", id)
	}
	return row, nil
}

func (s *identityService) List(ctx context.Context, limit, offset int) ([]*types.Identity, error) {
	return s.repo.List(dbctx.Background(ctx), clampLimit(limit, 50, 500), offset)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
