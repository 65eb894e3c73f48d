package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
)

const waFrom = "whatsapp:+15550005000"

func (h *harness) whatsapp(t *testing.T, body string) *AssistantReply {
	t.Helper()
	reply, err := h.assistant.HandleInbound(h.ctx, InboundMessage{From: waFrom, Body: body, ProfileName: "Max"})
	if err != nil {
		t.Fatalf("HandleInbound(%q): %v", body, err)
	}
	return reply
}

func TestWhatsAppOnboardingAsksThenSavesEmail(t *testing.T) {
	h := newHarness(t)

	first := h.whatsapp(t, "hello")
	if first.Step != "ask_email" || !strings.Contains(first.Text, "Hey Max!") {
		t.Fatalf("unexpected first reply: %+v", first)
	}

	saved := h.whatsapp(t, "sure, it's Max@Example.com")
	if saved.Step != "save_email" || !strings.Contains(saved.Text, "Max@Example.com") {
		t.Fatalf("unexpected email reply: %+v", saved)
	}
	prof, err := h.profiles.GetByIdentity(h.ctx, saved.IdentityID)
	if err != nil || prof == nil {
		t.Fatalf("profile missing: %v", err)
	}
	if prof.Email != "Max@Example.com" || prof.Name != "Max" {
		t.Fatalf("unexpected profile: %+v", prof)
	}
	ident, err := h.identities.GetByID(h.ctx, saved.IdentityID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if ident.EmailValue() != "max@example.com" || ident.WhatsAppValue() != "+15550005000" {
		t.Fatalf("identity not filled: %+v", ident)
	}

	hist, err := h.conversations.GetHistory(h.ctx, saved.IdentityID, 20)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != 4 {
		t.Fatalf("messages=%d want 4", len(hist))
	}
	sum, err := h.memory.GetSummary(h.ctx, saved.IdentityID)
	if err != nil || sum == nil || sum.InteractionCount != 2 {
		t.Fatalf("summary not maintained: %+v err=%v", sum, err)
	}
}

func TestWhatsAppGreetingAndChat(t *testing.T) {
	h := newHarness(t)
	h.whatsapp(t, "max@example.com")

	greet := h.whatsapp(t, "Hi")
	if greet.Step != "greeting" || !strings.Contains(greet.Text, "I'm Eli") {
		t.Fatalf("new user greeting: %+v", greet)
	}

	fallback := h.whatsapp(t, "who should I meet in fintech?")
	if fallback.Step != "chat" || fallback.Text != replyChatFallback {
		t.Fatalf("chat without completer should use the canned reply: %+v", fallback)
	}

	h.completer.Err = nil
	h.completer.Reply = "I know two fintech founders you'd like."
	chat := h.whatsapp(t, "anyone else?")
	if chat.Text != "I know two fintech founders you'd like." {
		t.Fatalf("unexpected chat reply: %+v", chat)
	}
	var req = h.completer.Requests[len(h.completer.Requests)-2]
	if !strings.Contains(req.System, "Max") {
		t.Fatalf("system prompt should name the user: %q", req.System)
	}
	if n := len(req.Messages); n == 0 || n > assistantContextTurns+1 {
		t.Fatalf("context size=%d", n)
	}
	lastMsg := req.Messages[len(req.Messages)-1]
	if lastMsg.Role != "user" || lastMsg.Content != "anyone else?" {
		t.Fatalf("last context message should be the inbound text: %+v", lastMsg)
	}
	for _, m := range req.Messages[:len(req.Messages)-1] {
		if m.Content == "anyone else?" {
			t.Fatalf("inbound text duplicated in context")
		}
	}

	back := h.whatsapp(t, "hey")
	if !strings.Contains(back.Text, "Welcome back Max!") {
		t.Fatalf("returning user greeting: %+v", back)
	}
}

func TestWhatsAppCallMe(t *testing.T) {
	h := newHarness(t)
	h.whatsapp(t, "max@example.com")

	reply := h.whatsapp(t, "can you call me now?")
	if reply.Step != "call" || reply.Text != replyCalling {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(h.voice.Requests) != 1 || h.voice.Requests[0].Number != "+15550005000" {
		t.Fatalf("voice provider not called: %+v", h.voice.Requests)
	}
}

func TestWhatsAppLastCallQuestion(t *testing.T) {
	h := newHarness(t)
	h.whatsapp(t, "max@example.com")

	none := h.whatsapp(t, "what did we cover in our last call?")
	if none.Step != "last_call" || none.Text != replyNoCalls {
		t.Fatalf("no calls yet: %+v", none)
	}

	if _, err := h.calls.StoreCallSummary(h.ctx, CallReport{CallID: "vapi-wa", Phone: "+15550005000", Summary: "Mapped out fundraising", DurationSeconds: 300}); err != nil {
		t.Fatalf("StoreCallSummary: %v", err)
	}
	got := h.whatsapp(t, "what did we cover in our last call?")
	if !strings.Contains(got.Text, "Mapped out fundraising") {
		t.Fatalf("reply should recap the call: %+v", got)
	}
}

func TestWhatsAppConsentReplyTakesPriority(t *testing.T) {
	h := newHarness(t)
	first := h.whatsapp(t, "max@example.com")
	requester := h.person(t, "+15550005001", types.ProfileFields{Name: strp("Nia")})

	if _, err := h.intros.Propose(h.ctx, requester.Profile.ID, first.ProfileID, "shared interest in robotics"); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	reply := h.whatsapp(t, "Yes please")
	if reply.Step != "consent_reply" || reply.Text != replyConsented {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	pending, err := h.intros.GetPendingFor(h.ctx, first.ProfileID)
	if err != nil || len(pending) != 0 {
		t.Fatalf("no intro should remain pending: %+v err=%v", pending, err)
	}
}

func TestWhatsAppRejectsEmptyMessage(t *testing.T) {
	h := newHarness(t)
	if _, err := h.assistant.HandleInbound(h.ctx, InboundMessage{From: waFrom, Body: "   "}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestHumanizeAgo(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second: "0 minutes ago",
		time.Minute:      "1 minute ago",
		5 * time.Minute:  "5 minutes ago",
		3 * time.Hour:    "3 hours ago",
		72 * time.Hour:   "3 days ago",
	}
	for d, want := range cases {
		if got := humanizeAgo(d); got != want {
			t.Fatalf("humanizeAgo(%s)=%q want %q", d, got, want)
		}
	}
}
