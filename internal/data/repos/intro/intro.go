package intro

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/intro"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type IntroRepo interface {
	// Create inserts row unless the ordered pair already has an intro; the
	// returned row is whichever is stored.
	Create(dbc dbctx.Context, row *types.Intro) (stored *types.Intro, created bool, err error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Intro, error)
	GetByPair(dbc dbctx.Context, fromProfileID, toProfileID uuid.UUID) (*types.Intro, error)
	// ListPendingFor returns intros addressed to profileID that still await
	// consent, newest first.
	ListPendingFor(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Intro, error)
	ListByStatus(dbc dbctx.Context, status types.IntroStatus, limit int) ([]*types.Intro, error)
	CountByStatus(dbc dbctx.Context, status types.IntroStatus) (int64, error)
	// Transition moves id from one status to another and stamps the matching
	// timestamp. ok is false when the row was not in from.
	Transition(dbc dbctx.Context, id uuid.UUID, from, to types.IntroStatus, at time.Time) (ok bool, err error)
	DeleteByProfile(dbc dbctx.Context, profileID uuid.UUID) (int64, error)
}

type introRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIntroRepo(db *gorm.DB, baseLog *logger.Logger) IntroRepo {
	return &introRepo{db: db, log: baseLog.With("repo", "IntroRepo")}
}

func (r *introRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *introRepo) first(q *gorm.DB) (*types.Intro, error) {
	var out []*types.Intro
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *introRepo) Create(dbc dbctx.Context, row *types.Intro) (*types.Intro, bool, error) {
	if row.FromProfileID == uuid.Nil || row.ToProfileID == uuid.Nil {
		return nil, false, fmt.Errorf("missing profile ids")
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = types.IntroPendingConsent
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = row.CreatedAt

	res := r.tx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_profile_id"}, {Name: "to_profile_id"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row, true, nil
	}
	existing, err := r.GetByPair(dbc, row.FromProfileID, row.ToProfileID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *introRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Intro, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ?", id))
}

func (r *introRepo) GetByPair(dbc dbctx.Context, fromProfileID, toProfileID uuid.UUID) (*types.Intro, error) {
	return r.first(r.tx(dbc).Where("from_profile_id = ? AND to_profile_id = ?", fromProfileID, toProfileID))
}

func (r *introRepo) ListPendingFor(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Intro, error) {
	var out []*types.Intro
	if err := r.tx(dbc).
		Where("to_profile_id = ? AND status IN ?", profileID, []types.IntroStatus{types.IntroPendingConsent, types.IntroConsentSent}).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *introRepo) ListByStatus(dbc dbctx.Context, status types.IntroStatus, limit int) ([]*types.Intro, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := r.tx(dbc)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.Intro
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *introRepo) CountByStatus(dbc dbctx.Context, status types.IntroStatus) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&types.Intro{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func timestampColumn(to types.IntroStatus) string {
	switch to {
	case intro.StatusConsentSent:
		return "consent_sent_at"
	case intro.StatusConsented:
		return "consented_at"
	case intro.StatusDeclined:
		return "declined_at"
	case intro.StatusCompleted:
		return "completed_at"
	}
	return ""
}

func (r *introRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to types.IntroStatus, at time.Time) (bool, error) {
	if !intro.CanTransition(from, to) {
		return false, fmt.Errorf("illegal intro transition %s -> %s", from, to)
	}
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if col := timestampColumn(to); col != "" {
		updates[col] = at
	}
	res := r.tx(dbc).
		Model(&types.Intro{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *introRepo) DeleteByProfile(dbc dbctx.Context, profileID uuid.UUID) (int64, error) {
	res := r.tx(dbc).
		Where("from_profile_id = ? OR to_profile_id = ?", profileID, profileID).
		Delete(&types.Intro{})
	return res.RowsAffected, res.Error
}
