package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

func TestIndexUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/profiles/points" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	err := s.Upsert(context.Background(), []vectorindex.Item{{ID: "p-1", Values: []float32{1, 2, 3}, Tags: []string{"AI"}}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points=%v", captured["points"])
	}
	first, _ := points[0].(map[string]any)
	if first["id"] != pointID("p-1") {
		t.Fatalf("point id=%v", first["id"])
	}
	payload, _ := first["payload"].(map[string]any)
	if payload[payloadProfileIDKey] != "p-1" {
		t.Fatalf("payload=%v", payload)
	}
}

func TestIndexQueryKeepsRawScoresAndFilter(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": pointID("p-2"), "score": 0.42, "payload": map[string]any{"profile_id": "p-2"}},
			{"id": "orphan", "score": 0.40, "payload": map[string]any{}},
		}), nil
	})
	got, err := s.Query(context.Background(), []float32{1, 0, 0}, 4, vectorindex.Filter{AnyTags: []string{"Fintech"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p-2" || got[0].Score != 0.42 {
		t.Fatalf("Query=%+v", got)
	}
	if _, ok := captured["filter"]; !ok {
		t.Fatalf("expected filter in request")
	}
}

func TestIndexQueryDimensionMismatch(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	if _, err := s.Query(context.Background(), []float32{1}, 4, vectorindex.Filter{}); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		cfg  Config
		code ConfigErrorCode
	}{
		{Config{}, ConfigErrorMissingURL},
		{Config{URL: "qdrant:6333"}, ConfigErrorInvalidURL},
		{Config{URL: "http://q:6333"}, ConfigErrorMissingCollection},
		{Config{URL: "http://q:6333", Collection: "c"}, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		err := ValidateConfig(tc.cfg)
		var ce *ConfigError
		if !errors.As(err, &ce) || ce.Code != tc.code {
			t.Fatalf("ValidateConfig(%+v)=%v want %s", tc.cfg, err, tc.code)
		}
	}
	if err := ValidateConfig(Config{URL: "http://q:6333", Collection: "c", VectorDim: 3}); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func newTestIndex(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *index {
	t.Helper()
	return &index{
		log:     logger.Nop(),
		cfg:     Config{Collection: "profiles", VectorDim: 3},
		baseURL: "http://qdrant.local",
		http:    &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
