package calls

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type CallRepo interface {
	GetByCallID(dbc dbctx.Context, callID string) (*types.Call, error)
	Create(dbc dbctx.Context, row *types.Call) error
	UpdateFields(dbc dbctx.Context, callID string, updates map[string]any) error
	// LatestWithSummary returns the most recent call to phone that has a
	// summary.
	LatestWithSummary(dbc dbctx.Context, phone string) (*types.Call, error)
	ListByPhone(dbc dbctx.Context, phone string, limit int) ([]*types.Call, error)
	DeleteByPhone(dbc dbctx.Context, phone string) (int64, error)
}

type callRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCallRepo(db *gorm.DB, baseLog *logger.Logger) CallRepo {
	return &callRepo{db: db, log: baseLog.With("repo", "CallRepo")}
}

func (r *callRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *callRepo) first(q *gorm.DB) (*types.Call, error) {
	var out []*types.Call
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *callRepo) GetByCallID(dbc dbctx.Context, callID string) (*types.Call, error) {
	if callID == "" {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("call_id = ?", callID))
}

func (r *callRepo) Create(dbc dbctx.Context, row *types.Call) error {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	return r.tx(dbc).Create(row).Error
}

func (r *callRepo) UpdateFields(dbc dbctx.Context, callID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.tx(dbc).Model(&types.Call{}).Where("call_id = ?", callID).Updates(updates).Error
}

func (r *callRepo) LatestWithSummary(dbc dbctx.Context, phone string) (*types.Call, error) {
	if phone == "" {
		return nil, nil
	}
	return r.first(r.tx(dbc).
		Where("phone_number = ? AND summary IS NOT NULL AND summary <> ''", phone).
		Order("created_at DESC"))
}

func (r *callRepo) ListByPhone(dbc dbctx.Context, phone string, limit int) ([]*types.Call, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var out []*types.Call
	if err := r.tx(dbc).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *callRepo) DeleteByPhone(dbc dbctx.Context, phone string) (int64, error) {
	if phone == "" {
		return 0, nil
	}
	res := r.tx(dbc).Where("phone_number = ?", phone).Delete(&types.Call{})
	return res.RowsAffected, res.Error
}
