package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/superconnector-backend/internal/platform/envutil"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

// DeferredItem is a consent request held back by quiet hours.
type DeferredItem struct {
	IntroID  string    `json:"intro_id"`
	Channel  string    `json:"channel,omitempty"`
	DueAt    time.Time `json:"due_at"`
	Attempts int       `json:"attempts,omitempty"`
}

type DeferredQueue interface {
	Schedule(ctx context.Context, item DeferredItem) error
	// Claim removes and returns up to limit items due at or before now.
	// An item is returned to exactly one caller.
	Claim(ctx context.Context, now time.Time, limit int) ([]DeferredItem, error)
	Cancel(ctx context.Context, introID string) error
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Key:      envutil.String("REDIS_DEFERRED_KEY", "superconnector:deferred_consent"),
	}
}

type deferredQueue struct {
	log        *logger.Logger
	rdb        goredis.UniversalClient
	key        string
	payloadKey string
}

// NewDeferredQueue returns (nil, nil) when REDIS_ADDR is not configured.
func NewDeferredQueue(log *logger.Logger, cfg Config) (DeferredQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewDeferredQueueWithClient(log, rdb, cfg.Key), nil
}

func NewDeferredQueueWithClient(log *logger.Logger, rdb goredis.UniversalClient, key string) DeferredQueue {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "superconnector:deferred_consent"
	}
	return &deferredQueue{
		log:        log.With("client", "RedisDeferredQueue"),
		rdb:        rdb,
		key:        key,
		payloadKey: key + ":payload",
	}
}

func (q *deferredQueue) Schedule(ctx context.Context, item DeferredItem) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis deferred queue not initialized")
	}
	if strings.TrimSpace(item.IntroID) == "" {
		return fmt.Errorf("intro id required")
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = q.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZAdd(ctx, q.key, goredis.Z{Score: float64(item.DueAt.Unix()), Member: item.IntroID})
		p.HSet(ctx, q.payloadKey, item.IntroID, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis schedule: %w", err)
	}
	q.log.Debug("Deferred consent scheduled", "intro_id", item.IntroID, "due_at", item.DueAt)
	return nil
}

func (q *deferredQueue) Claim(ctx context.Context, now time.Time, limit int) ([]DeferredItem, error) {
	if q == nil || q.rdb == nil {
		return nil, fmt.Errorf("redis deferred queue not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	ids, err := q.rdb.ZRangeByScore(ctx, q.key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis due range: %w", err)
	}

	out := make([]DeferredItem, 0, len(ids))
	for _, id := range ids {
		removed, err := q.rdb.ZRem(ctx, q.key, id).Result()
		if err != nil {
			return out, fmt.Errorf("redis claim: %w", err)
		}
		if removed == 0 {
			// another worker claimed it
			continue
		}
		raw, err := q.rdb.HGet(ctx, q.payloadKey, id).Result()
		_ = q.rdb.HDel(ctx, q.payloadKey, id).Err()
		item := DeferredItem{IntroID: id, DueAt: now}
		if err == nil {
			if jerr := json.Unmarshal([]byte(raw), &item); jerr != nil {
				q.log.Warn("bad deferred payload", "intro_id", id, "error", jerr)
				item = DeferredItem{IntroID: id, DueAt: now}
			}
		} else if err != goredis.Nil {
			q.log.Warn("deferred payload lookup failed", "intro_id", id, "error", err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (q *deferredQueue) Cancel(ctx context.Context, introID string) error {
	if q == nil || q.rdb == nil {
		return nil
	}
	_, err := q.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRem(ctx, q.key, introID)
		p.HDel(ctx, q.payloadKey, introID)
		return nil
	})
	return err
}

func (q *deferredQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
