package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func TestSendBuildsMailRequest(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer sg" {
			t.Fatalf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("X-Message-Id", "m-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "sg", BaseURL: srv.URL, DefaultFromEmail: "hi@sc.test", DefaultFromName: "SC"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(context.Background(), SendEmailRequest{To: EmailAddress{Email: "a@b.com", Name: "Ada"}, Text: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "m-1" || res.StatusCode != http.StatusAccepted {
		t.Fatalf("result=%+v", res)
	}
	if got.From.Email != "hi@sc.test" || got.Personalizations[0].To[0].Email != "a@b.com" || got.Content[0].Value != "hello" {
		t.Fatalf("request=%+v", got)
	}
	if got.Subject != "A message from SC" {
		t.Fatalf("subject=%q", got.Subject)
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	c, _ := New(logger.Nop(), Config{APIKey: "sg", DefaultFromEmail: "hi@sc.test"})
	if _, err := c.Send(context.Background(), SendEmailRequest{Text: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}
