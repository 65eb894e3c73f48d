// Package memvec is an in-process cosine-similarity index. It backs local
// runs and tests and is rebuilt from the profile table on startup.
package memvec

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

type entry struct {
	values []float32
	norm   float64
	tags   map[string]struct{}
}

type Index struct {
	log *logger.Logger
	mu  sync.RWMutex
	m   map[string]entry
}

func New(log *logger.Logger) *Index {
	return &Index{log: log.With("service", "MemoryVectorIndex"), m: map[string]entry{}}
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.m)
}

func (x *Index) Upsert(ctx context.Context, items []vectorindex.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return fmt.Errorf("vector id is required")
		}
		if len(it.Values) == 0 {
			return fmt.Errorf("vector %q has empty values", id)
		}
		vals := append([]float32(nil), it.Values...)
		tags := make(map[string]struct{}, len(it.Tags))
		for _, t := range it.Tags {
			tags[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
		x.m[id] = entry{values: vals, norm: norm(vals), tags: tags}
	}
	return nil
}

func (x *Index) Query(ctx context.Context, q []float32, limit int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if limit <= 0 {
		limit = 10
	}
	qn := norm(q)
	want := make([]string, 0, len(filter.AnyTags))
	for _, t := range filter.AnyTags {
		want = append(want, strings.ToLower(strings.TrimSpace(t)))
	}

	x.mu.RLock()
	out := make([]vectorindex.Match, 0, len(x.m))
	for id, e := range x.m {
		if len(e.values) != len(q) {
			continue
		}
		if len(want) > 0 && !hasAny(e.tags, want) {
			continue
		}
		out = append(out, vectorindex.Match{ID: id, Score: cosine(q, qn, e.values, e.norm)})
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (x *Index) Delete(ctx context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.m, id)
	}
	return nil
}

func hasAny(have map[string]struct{}, want []string) bool {
	for _, w := range want {
		if _, ok := have[w]; ok {
			return true
		}
	}
	return false
}

func norm(v []float32) float64 {
	var s float64
	for _, f := range v {
		s += float64(f) * float64(f)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
