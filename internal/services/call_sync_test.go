package services

import (
	"errors"
	"strings"
	"testing"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/services/servicetest"
)

func TestStoreCallSummaryForUnknownCaller(t *testing.T) {
	h := newHarness(t)

	call, err := h.calls.StoreCallSummary(h.ctx, CallReport{
		CallID:          "vapi-1",
		Phone:           "+15550004000",
		Transcript:      "user: hi\nassistant: hello",
		Summary:         "Wants intros to climate VCs",
		DurationSeconds: 185,
		Turns: []CallTurn{
			{Role: "user", Content: "I need climate investors"},
			{Role: "assistant", Content: "I know a few"},
		},
	})
	if err != nil {
		t.Fatalf("StoreCallSummary: %v", err)
	}
	if call.Status != types.CallCompleted || call.DurationSeconds != 185 {
		t.Fatalf("unexpected call: %+v", call)
	}

	prof, err := h.profiles.GetByPhone(h.ctx, "+15550004000")
	if err != nil || prof == nil {
		t.Fatalf("placeholder profile missing: %v", err)
	}
	if prof.Name != "User" {
		t.Fatalf("placeholder name=%q", prof.Name)
	}
	if prof.LastCallAt == nil || !strings.HasPrefix(prof.LastCallSummary, "Wants intros to climate VCs") {
		t.Fatalf("profile call fields not updated: %+v", prof)
	}
	if !strings.Contains(prof.LastCallSummary, "Key points discussed: I need climate investors") {
		t.Fatalf("summary should carry what the caller said: %q", prof.LastCallSummary)
	}
	if len(prof.CallHistory) != 1 || prof.CallHistory[0].CallID != "vapi-1" {
		t.Fatalf("call history not appended: %+v", prof.CallHistory)
	}

	hist, err := h.conversations.GetHistory(h.ctx, prof.IdentityID, 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("messages=%d want 3", len(hist))
	}
	var summaryMsg *types.Message
	for _, m := range hist {
		if m.Meta().Type == "call-summary" {
			summaryMsg = m
		}
	}
	if summaryMsg == nil || summaryMsg.Content != "[Call 3 min] Wants intros to climate VCs" {
		t.Fatalf("summary message missing or wrong: %+v", summaryMsg)
	}

	sum, err := h.memory.GetSummary(h.ctx, prof.IdentityID)
	if err != nil || sum == nil {
		t.Fatalf("rolling summary not written: %v", err)
	}
}

func TestStoreCallSummaryUpdatesExistingCall(t *testing.T) {
	h := newHarness(t)
	h.person(t, "+15550004001", types.ProfileFields{Name: strp("Ivy")})

	ok, err := h.calls.SyncCallEvent(h.ctx, CallEvent{CallID: "vapi-2", Phone: "+15550004001", EventType: CallEventStarted})
	if err != nil || !ok {
		t.Fatalf("SyncCallEvent: ok=%v err=%v", ok, err)
	}
	if _, err := h.calls.StoreCallSummary(h.ctx, CallReport{CallID: "vapi-2", Phone: "+15550004001", DurationSeconds: 60}); err != nil {
		t.Fatalf("StoreCallSummary: %v", err)
	}
	stored, err := h.callRepo.GetByCallID(dbctx.Background(h.ctx), "vapi-2")
	if err != nil || stored == nil {
		t.Fatalf("call missing: %v", err)
	}
	if stored.Status != types.CallCompleted || stored.Summary != "Call completed (1 minutes)" || stored.Name != "Ivy" {
		t.Fatalf("unexpected call: %+v", stored)
	}
}

func TestSyncCallEvent(t *testing.T) {
	h := newHarness(t)

	ok, err := h.calls.SyncCallEvent(h.ctx, CallEvent{CallID: "vapi-3", Phone: "+15550004999", EventType: CallEventStarted})
	if err != nil || ok {
		t.Fatalf("unknown phone should be skipped: ok=%v err=%v", ok, err)
	}
	if _, err := h.calls.SyncCallEvent(h.ctx, CallEvent{Phone: "+1555"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("missing call id: want ErrValidation, got %v", err)
	}

	p := h.person(t, "+15550004002", types.ProfileFields{Name: strp("Jo")})
	events := []CallEvent{
		{CallID: "vapi-3", Phone: "+15550004002", EventType: CallEventStarted},
		{CallID: "vapi-3", Phone: "+15550004002", EventType: CallEventTranscript, UserMessage: "hello there", Transcript: "hello there"},
		{CallID: "vapi-3", Phone: "+15550004002", EventType: CallEventTranscript, AssistantMessage: "hi Jo"},
		{CallID: "vapi-3", Phone: "+15550004002", EventType: CallEventEnded},
	}
	for _, ev := range events {
		if ok, err := h.calls.SyncCallEvent(h.ctx, ev); err != nil || !ok {
			t.Fatalf("SyncCallEvent(%s): ok=%v err=%v", ev.EventType, ok, err)
		}
	}

	call, err := h.callRepo.GetByCallID(dbctx.Background(h.ctx), "vapi-3")
	if err != nil || call == nil {
		t.Fatalf("call missing: %v", err)
	}
	if call.Status != types.CallCompleted || call.Transcript != "hello there" || call.EndedAt == nil {
		t.Fatalf("unexpected call: %+v", call)
	}

	hist, err := h.conversations.GetHistory(h.ctx, p.Identity.ID, 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("messages=%d want 2", len(hist))
	}
	if hist[0].Direction != types.DirectionInbound || hist[0].Channel != types.ChannelPhone {
		t.Fatalf("user speech should be inbound phone: %+v", hist[0])
	}
	if hist[1].Direction != types.DirectionOutbound {
		t.Fatalf("assistant speech should be outbound: %+v", hist[1])
	}
}

func TestCallContext(t *testing.T) {
	h := newHarness(t)
	missing, err := h.calls.CallContext(h.ctx, "+15550004998")
	if err != nil || missing.Found {
		t.Fatalf("unknown phone: %+v err=%v", missing, err)
	}

	p := h.person(t, "+15550004003", types.ProfileFields{Name: strp("Kim"), LastCallSummary: strp("Discussed hiring")})
	if _, err := h.conversations.Append(h.ctx, p.Identity.ID, types.ChannelWhatsApp, types.DirectionInbound, "any news?", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := h.calls.CallContext(h.ctx, "+15550004003")
	if err != nil {
		t.Fatalf("CallContext: %v", err)
	}
	if !got.Found || got.UserName != "Kim" {
		t.Fatalf("unexpected context: %+v", got)
	}
	for _, want := range []string{"Last call: Discussed hiring", "User: any news?"} {
		if !strings.Contains(got.ConversationHistory, want) {
			t.Fatalf("history missing %q:\n%s", want, got.ConversationHistory)
		}
	}
}

func TestStartOutboundCall(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550004004", types.ProfileFields{Name: strp("Lee")})

	call, err := h.calls.StartOutboundCall(h.ctx, p.Profile, "whatsapp:+15550004004")
	if err != nil {
		t.Fatalf("StartOutboundCall: %v", err)
	}
	if call.Status != types.CallInitiated || call.PhoneNumber != "+15550004004" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if len(h.voice.Requests) != 1 || h.voice.Requests[0].Name != "Lee" {
		t.Fatalf("voice provider not called: %+v", h.voice.Requests)
	}

	h.voice.Err = servicetest.ErrUnavailable
	if _, err := h.calls.StartOutboundCall(h.ctx, p.Profile, "+15550004004"); !errors.Is(err, errs.ErrDispatchFailure) {
		t.Fatalf("want ErrDispatchFailure, got %v", err)
	}
}
