package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type IdentityRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Identity, error)
	// FindByIdentifiers checks phone, whatsapp id, email, then linkedin url and
	// returns the first hit.
	FindByIdentifiers(dbc dbctx.Context, ids types.Identifiers) (*types.Identity, error)
	// Create inserts a new identity. created is false when a unique identifier
	// already belongs to someone else.
	Create(dbc dbctx.Context, ids types.Identifiers) (row *types.Identity, created bool, err error)
	// FillMissing sets identifier columns that are currently NULL. Values owned
	// by another identity are skipped.
	FillMissing(dbc dbctx.Context, id uuid.UUID, ids types.Identifiers) (*types.Identity, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Identity, error)
	Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	Delete(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type identityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityRepo(db *gorm.DB, baseLog *logger.Logger) IdentityRepo {
	return &identityRepo{db: db, log: baseLog.With("repo", "IdentityRepo")}
}

type lookup struct {
	column string
	value  string
}

func lookups(ids types.Identifiers) []lookup {
	return []lookup{
		{"phone", ids.Phone},
		{"whatsapp_id", ids.WhatsAppID},
		{"email", ids.Email},
		{"linkedin_url", ids.LinkedInURL},
	}
}

func (r *identityRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *identityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Identity, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Identity
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *identityRepo) findBy(dbc dbctx.Context, column, value string) (*types.Identity, error) {
	var out []*types.Identity
	if err := r.tx(dbc).Where(column+" = ?", value).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *identityRepo) FindByIdentifiers(dbc dbctx.Context, ids types.Identifiers) (*types.Identity, error) {
	for _, l := range lookups(ids) {
		if l.value == "" {
			continue
		}
		row, err := r.findBy(dbc, l.column, l.value)
		if err != nil {
			return nil, fmt.Errorf("lookup by %s: %w", l.column, err)
		}
		if row != nil {
			return row, nil
		}
	}
	return nil, nil
}

func (r *identityRepo) Create(dbc dbctx.Context, ids types.Identifiers) (*types.Identity, bool, error) {
	now := time.Now().UTC()
	row := &types.Identity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	row.Phone = ptr(ids.Phone)
	row.WhatsAppID = ptr(ids.WhatsAppID)
	row.Email = ptr(ids.Email)
	row.LinkedInURL = ptr(ids.LinkedInURL)

	res := r.tx(dbc).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return row, true, nil
}

func (r *identityRepo) FillMissing(dbc dbctx.Context, id uuid.UUID, ids types.Identifiers) (*types.Identity, error) {
	for _, l := range lookups(ids) {
		if l.value == "" {
			continue
		}
		owner, err := r.findBy(dbc, l.column, l.value)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			if owner.ID != id {
				r.log.Warn("identifier already owned by another identity", "column", l.column, "identity_id", id, "owner_id", owner.ID)
			}
			continue
		}
		if err := r.tx(dbc).
			Model(&types.Identity{}).
			Where("id = ? AND "+l.column+" IS NULL", id).
			Updates(map[string]any{
				l.column:     l.value,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return nil, fmt.Errorf("fill %s: %w", l.column, err)
		}
	}
	return r.GetByID(dbc, id)
}

func (r *identityRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Identity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Identity
	if err := r.tx(dbc).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *identityRepo) Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return r.tx(dbc).
		Model(&types.Identity{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *identityRepo) Delete(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	res := r.tx(dbc).Where("id = ?", id).Delete(&types.Identity{})
	return res.RowsAffected, res.Error
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
