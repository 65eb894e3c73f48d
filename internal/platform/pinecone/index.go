package pinecone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/platform/envutil"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

type Config struct {
	Client    ClientConfig
	IndexName string
	IndexHost string
	Namespace string
}

func ConfigFromEnv() Config {
	return Config{
		Client: ClientConfig{
			APIKey:     envutil.String("PINECONE_API_KEY", ""),
			APIVersion: envutil.String("PINECONE_API_VERSION", ""),
			BaseURL:    envutil.String("PINECONE_BASE_URL", ""),
			Timeout:    envutil.Seconds("PINECONE_TIMEOUT_SECONDS", 30*time.Second),
			MaxRetries: envutil.Int("PINECONE_MAX_RETRIES", 2),
		},
		IndexName: envutil.String("PINECONE_INDEX_NAME", ""),
		IndexHost: envutil.String("PINECONE_INDEX_HOST", ""),
		Namespace: envutil.String("PINECONE_NAMESPACE", "profiles"),
	}
}

type index struct {
	log       *logger.Logger
	pc        Client
	host      string
	namespace string
}

func NewIndex(log *logger.Logger, pc Client, cfg Config) (vectorindex.Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		if strings.TrimSpace(cfg.IndexName) == "" {
			return nil, fmt.Errorf("missing PINECONE_INDEX_NAME or PINECONE_INDEX_HOST")
		}
		desc, err := pc.DescribeIndex(context.Background(), cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", cfg.IndexName,
			"index_host", host,
		)
	}
	return &index{
		log:       log.With("service", "PineconeIndex"),
		pc:        pc,
		host:      host,
		namespace: cfg.Namespace,
	}, nil
}

func (s *index) Upsert(ctx context.Context, items []vectorindex.Item) error {
	if len(items) == 0 {
		return nil
	}
	vectors := make([]Vector, 0, len(items))
	for _, it := range items {
		v := Vector{ID: it.ID, Values: it.Values}
		if len(it.Tags) > 0 {
			v.Metadata = map[string]any{"tags": lowerAll(it.Tags)}
		}
		vectors = append(vectors, v)
	}
	_, err := s.pc.UpsertVectors(ctx, s.host, UpsertRequest{Namespace: s.namespace, Vectors: vectors})
	return err
}

func (s *index) Query(ctx context.Context, q []float32, limit int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	req := QueryRequest{
		Namespace: s.namespace,
		Vector:    q,
		TopK:      limit,
	}
	if !filter.Empty() {
		req.Filter = map[string]any{"tags": map[string]any{"$in": lowerAll(filter.AnyTags)}}
	}
	resp, err := s.pc.Query(ctx, s.host, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorindex.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, vectorindex.Match{ID: m.ID, Score: m.Score})
	}
	return out, nil
}

func (s *index) Delete(ctx context.Context, ids []string) error {
	return s.pc.DeleteVectors(ctx, s.host, DeleteRequest{Namespace: s.namespace, IDs: ids})
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
