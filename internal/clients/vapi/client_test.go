package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func TestStartCallPostsCustomer(t *testing.T) {
	var got startCallBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/call/phone" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer vk" {
			t.Fatalf("auth=%q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"call-1","status":"queued"}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "vk", BaseURL: srv.URL, AssistantID: "asst", PhoneNumberID: "pn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	call, err := c.StartCall(context.Background(), StartCallRequest{Number: "whatsapp:+15551230000", Name: "Ada"})
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if call.ID != "call-1" {
		t.Fatalf("call=%+v", call)
	}
	if got.Customer.Number != "+15551230000" || got.Customer.Name != "Ada" || got.AssistantID != "asst" || got.PhoneNumberID != "pn" {
		t.Fatalf("body=%+v", got)
	}
	if got.AssistantOverrides != nil {
		t.Fatalf("expected no overrides")
	}
}

func TestStartCallSurfacesClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad number"}`))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{APIKey: "vk", BaseURL: srv.URL, AssistantID: "a", PhoneNumberID: "p", MaxRetries: 3})
	if _, err := c.StartCall(context.Background(), StartCallRequest{Number: "+1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRequiresAssistant(t *testing.T) {
	if _, err := New(logger.Nop(), Config{APIKey: "vk", PhoneNumberID: "p"}); err == nil {
		t.Fatalf("expected error")
	}
}
