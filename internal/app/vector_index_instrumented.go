package app

import (
	"context"
	"time"

	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

type instrumentedVectorIndex struct {
	provider string
	inner    vectorindex.Index
	metrics  *observability.Metrics
}

func instrumentVectorIndex(provider string, inner vectorindex.Index) vectorindex.Index {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorIndex{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedVectorIndex) Upsert(ctx context.Context, items []vectorindex.Item) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, items)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Query(ctx context.Context, q []float32, limit int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	start := time.Now()
	out, err := s.inner.Query(ctx, q, limit, filter)
	s.observe("query", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorIndex) Delete(ctx context.Context, ids []string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, ids)
	s.observe("delete", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOp(s.provider, operation, status, dur)
}
