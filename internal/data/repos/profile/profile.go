package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type ProfileRepo interface {
	Create(dbc dbctx.Context, row *types.Profile) error
	Save(dbc dbctx.Context, row *types.Profile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Profile, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Profile, error)
	GetByIdentity(dbc dbctx.Context, identityID uuid.UUID) (*types.Profile, error)
	// GetByIdentityPhone resolves through the identity table, not the
	// denormalized profile.phone column.
	GetByIdentityPhone(dbc dbctx.Context, phone string) (*types.Profile, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Profile, error)
	// ListPage is keyset pagination ordered by id.
	ListPage(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Profile, error)
	SetEmbedding(dbc dbctx.Context, id uuid.UUID, vec []float32) error
	DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *profileRepo) Create(dbc dbctx.Context, row *types.Profile) error {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return r.tx(dbc).Create(row).Error
}

func (r *profileRepo) Save(dbc dbctx.Context, row *types.Profile) error {
	row.UpdatedAt = time.Now().UTC()
	// Embedding is owned by SetEmbedding.
	return r.tx(dbc).Omit("embedding").Save(row).Error
}

func (r *profileRepo) first(q *gorm.DB) (*types.Profile, error) {
	var out []*types.Profile
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *profileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Profile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ?", id))
}

func (r *profileRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Profile, error) {
	var out []*types.Profile
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) GetByIdentity(dbc dbctx.Context, identityID uuid.UUID) (*types.Profile, error) {
	if identityID == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("identity_id = ?", identityID))
}

func (r *profileRepo) GetByIdentityPhone(dbc dbctx.Context, phone string) (*types.Profile, error) {
	if phone == "" {
		return nil, nil
	}
	sub := r.tx(dbc).Model(&types.Identity{}).Select("id").Where("phone = ?", phone)
	return r.first(r.tx(dbc).Where("identity_id IN (?)", sub))
}

func (r *profileRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Profile
	if err := r.tx(dbc).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) ListPage(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Profile, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	q := r.tx(dbc)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.Profile
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) SetEmbedding(dbc dbctx.Context, id uuid.UUID, vec []float32) error {
	return r.tx(dbc).
		Model(&types.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"embedding":  datatypes.JSONSlice[float32](vec),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *profileRepo) DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error) {
	res := r.tx(dbc).Where("identity_id = ?", identityID).Delete(&types.Profile{})
	return res.RowsAffected, res.Error
}
