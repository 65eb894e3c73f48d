package conversation

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

// MaxListLimit caps a single history read.
const MaxListLimit = 1000

type MessageRepo interface {
	// Create assigns each row the next per-identity seq.
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	GetMaxSeq(dbc dbctx.Context, identityID uuid.UUID) (int64, error)
	// ListByIdentity returns the newest limit messages in ascending order,
	// capped at MaxListLimit.
	ListByIdentity(dbc dbctx.Context, identityID uuid.UUID, limit int) ([]*types.Message, error)
	CountByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error)
	DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
	}
	now := time.Now().UTC()
	for i, m := range rows {
		if m.IdentityID == uuid.Nil {
			return nil, fmt.Errorf("missing identity_id")
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			// Batches keep their order when read back.
			m.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	err := txx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		next := map[uuid.UUID]int64{}
		for _, m := range rows {
			if _, ok := next[m.IdentityID]; !ok {
				seq, err := r.lockMaxSeq(tx, m.IdentityID)
				if err != nil {
					return err
				}
				next[m.IdentityID] = seq
			}
			next[m.IdentityID]++
			m.Seq = next[m.IdentityID]
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// lockMaxSeq serializes appends per identity by locking the identity row,
// then returns the highest stored seq.
func (r *messageRepo) lockMaxSeq(tx *gorm.DB, identityID uuid.UUID) (int64, error) {
	var locked []uuid.UUID
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&types.Identity{}).
		Where("id = ?", identityID).
		Pluck("id", &locked).Error; err != nil {
		return 0, err
	}
	return r.maxSeq(tx, identityID)
}

func (r *messageRepo) GetMaxSeq(dbc dbctx.Context, identityID uuid.UUID) (int64, error) {
	if identityID == uuid.Nil {
		return 0, fmt.Errorf("missing identity_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return r.maxSeq(txx.WithContext(dbc.Ctx), identityID)
}

func (r *messageRepo) maxSeq(tx *gorm.DB, identityID uuid.UUID) (int64, error) {
	var maxSeq int64
	if err := tx.
		Model(&types.Message{}).
		Select("COALESCE(MAX(seq), 0)").
		Where("identity_id = ?", identityID).
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	return maxSeq, nil
}

func (r *messageRepo) ListByIdentity(dbc dbctx.Context, identityID uuid.UUID, limit int) ([]*types.Message, error) {
	if identityID == uuid.Nil {
		return nil, fmt.Errorf("missing identity_id")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Message
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	// Normalize to ASC for callers.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) CountByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("identity_id = ?", identityID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *messageRepo) DeleteByIdentity(dbc dbctx.Context, identityID uuid.UUID) (int64, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Where("identity_id = ?", identityID).Delete(&types.Message{})
	return res.RowsAffected, res.Error
}
