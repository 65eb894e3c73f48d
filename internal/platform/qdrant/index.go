package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/platform/ctxutil"
	"github.com/yungbote/superconnector-backend/internal/platform/httpx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

const (
	payloadProfileIDKey = "profile_id"
	payloadTagsKey      = "tags"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespace = uuid.MustParse("6a3d5b7e-8f1c-4c2a-9e55-1d2b0c7f4a10")

type index struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewIndex(log *logger.Logger, cfg Config) (vectorindex.Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &index{
		log:     log.With("service", "QdrantIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	if err := s.verifyCollection(context.Background()); err != nil {
		return nil, err
	}
	log.Info("Qdrant vector index selected", "url", s.baseURL, "collection", cfg.Collection, "vector_dim", cfg.VectorDim)
	return s, nil
}

func (s *index) Upsert(ctx context.Context, items []vectorindex.Item) error {
	if len(items) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return fmt.Errorf("qdrant upsert: vector id is required")
		}
		if len(it.Values) != s.cfg.VectorDim {
			return fmt.Errorf("qdrant upsert: vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(it.Values))
		}
		points = append(points, map[string]any{
			"id":     pointID(id),
			"vector": it.Values,
			"payload": map[string]any{
				payloadProfileIDKey: id,
				payloadTagsKey:      lowerAll(it.Tags),
			},
		})
	}
	return s.doJSON(ctx, "upsert", http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *index) Query(ctx context.Context, q []float32, limit int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	if len(q) != s.cfg.VectorDim {
		return nil, fmt.Errorf("qdrant query: dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q))
	}
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       q,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if !filter.Empty() {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{"key": payloadTagsKey, "match": map[string]any{"any": lowerAll(filter.AnyTags)}},
			},
		}
	}
	var raw []searchResultItem
	if err := s.doJSON(ctx, "query", http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]vectorindex.Match, 0, len(raw))
	for _, item := range raw {
		id, _ := item.Payload[payloadProfileIDKey].(string)
		if strings.TrimSpace(id) == "" {
			continue
		}
		out = append(out, vectorindex.Match{ID: id, Score: item.Score})
	}
	return out, nil
}

func (s *index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			points = append(points, pointID(id))
		}
	}
	return s.doJSON(ctx, "delete", http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": points}, nil)
}

func (s *index) verifyCollection(ctx context.Context) error {
	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, "verify", http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	if size := result.Config.Params.Vectors.Size; size != 0 && size != s.cfg.VectorDim {
		return fmt.Errorf("qdrant collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size)
	}
	return nil
}

func (s *index) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("qdrant %s: encode: %w", op, err)
		}
		payload = b
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("qdrant %s: read: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s: %w", op, &httpx.StatusError{Provider: "qdrant", StatusCode: resp.StatusCode, Body: truncateBody(raw)})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("qdrant %s: decode envelope: %w", op, err)
	}
	if msg := parseEnvelopeStatus(env.Status); msg != "" {
		return fmt.Errorf("qdrant %s: %s", op, msg)
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("qdrant %s: decode result: %w", op, err)
	}
	return nil
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") || strings.EqualFold(str, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (s *index) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

// pointID maps a profile id onto a stable Qdrant point UUID.
func pointID(id string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(id)).String()
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
