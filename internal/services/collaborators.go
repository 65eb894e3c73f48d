package services

import (
	"context"
	"time"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
)

// Embedder turns text into vectors. openai.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Completer produces chat completions. openai.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (string, error)
}

// EmbeddingRefresher recomputes a profile's embedding after a material change.
type EmbeddingRefresher interface {
	RefreshEmbedding(ctx context.Context, p *types.Profile) error
}

// DefaultCallTimeout bounds a single collaborator call when none is configured.
const DefaultCallTimeout = 20 * time.Second

func callTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCallTimeout
	}
	return d
}
