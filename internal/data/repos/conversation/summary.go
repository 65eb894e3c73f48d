package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type SummaryRepo interface {
	GetByIdentity(dbc dbctx.Context, identityID uuid.UUID) (*types.ConversationSummary, error)
	// Create is a no-op (created=false) when a summary already exists.
	Create(dbc dbctx.Context, row *types.ConversationSummary) (created bool, err error)
	// ReplaceIfCount swaps in a new summary only if interaction_count still
	// equals prevCount, and bumps the counter.
	ReplaceIfCount(dbc dbctx.Context, identityID uuid.UUID, prevCount int, summary string, at time.Time) (bool, error)
	DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error)
}

type summaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	return &summaryRepo{db: db, log: baseLog.With("repo", "SummaryRepo")}
}

func (r *summaryRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *summaryRepo) GetByIdentity(dbc dbctx.Context, identityID uuid.UUID) (*types.ConversationSummary, error) {
	var out []*types.ConversationSummary
	if err := r.tx(dbc).Where("identity_id = ?", identityID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *summaryRepo) Create(dbc dbctx.Context, row *types.ConversationSummary) (bool, error) {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	res := r.tx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_id"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *summaryRepo) ReplaceIfCount(dbc dbctx.Context, identityID uuid.UUID, prevCount int, summary string, at time.Time) (bool, error) {
	res := r.tx(dbc).
		Model(&types.ConversationSummary{}).
		Where("identity_id = ? AND interaction_count = ?", identityID, prevCount).
		Updates(map[string]any{
			"summary":           summary,
			"last_interaction":  at,
			"interaction_count": prevCount + 1,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *summaryRepo) DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error) {
	res := r.tx(dbc).Where("identity_id = ?", identityID).Delete(&types.ConversationSummary{})
	return res.RowsAffected, res.Error
}
