// Package vectorindex is the nearest-neighbour contract shared by the
// Pinecone, Qdrant and in-memory backends.
package vectorindex

import "context"

type Item struct {
	ID     string
	Values []float32
	// Tags are stored as payload so queries can filter on them.
	Tags []string
}

// Match carries the backend's native similarity score, higher is better.
type Match struct {
	ID    string
	Score float64
}

type Filter struct {
	// AnyTags keeps items sharing at least one tag. Empty means no filter.
	AnyTags []string
}

func (f Filter) Empty() bool { return len(f.AnyTags) == 0 }

type Index interface {
	Upsert(ctx context.Context, items []Item) error
	Query(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
}
