package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, Model: "m", EmbedModel: "e", MaxRetries: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Fatalf("missing auth header")
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2,2]},{"index":0,"embedding":[1,1]}]}`))
	})
	out, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(out) != 2 || out[0][0] != 1 || out[1][0] != 2 {
		t.Fatalf("Embed: %v", out)
	}
}

func TestCompleteSendsSystemAndMessages(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" hello "}}]}`))
	})
	temp := 0.3
	text, err := c.Complete(context.Background(), CompletionRequest{
		System:      "sys",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   50,
		Temperature: &temp,
	})
	if err != nil || text != "hello" {
		t.Fatalf("Complete: text=%q err=%v", text, err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.MaxTokens != 50 {
		t.Fatalf("request=%+v", got)
	}
}

func TestCompleteSurfacesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	})
	if _, err := c.GenerateText(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
