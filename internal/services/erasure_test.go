package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/domain/errs"
)

func TestEraseRemovesEverything(t *testing.T) {
	h := newHarness(t)
	a, b := introPair(t, h)
	if _, err := h.intros.Propose(h.ctx, a.Profile.ID, b.Profile.ID, ""); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if _, err := h.calls.StoreCallSummary(h.ctx, CallReport{CallID: "vapi-erase", Phone: "+15550000002", Summary: "chat", DurationSeconds: 30}); err != nil {
		t.Fatalf("StoreCallSummary: %v", err)
	}
	before := h.index.Len()

	rep, err := h.erasure.Erase(h.ctx, b.Identity.ID)
	if err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if rep.Identities != 1 || rep.Profiles != 1 || rep.Intros != 1 || rep.Calls != 1 || rep.Summaries != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	// Consent request plus the call summary line.
	if rep.Messages != 2 {
		t.Fatalf("messages=%d want 2", rep.Messages)
	}
	if h.index.Len() != before-1 {
		t.Fatalf("vector not removed: before=%d after=%d", before, h.index.Len())
	}

	if _, err := h.identities.GetByID(h.ctx, b.Identity.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("identity should be gone, got %v", err)
	}
	if p, err := h.profiles.GetByID(h.ctx, b.Profile.ID); err != nil || p != nil {
		t.Fatalf("profile should be gone: %+v err=%v", p, err)
	}
	if li, err := h.conversations.LastInteractionSummary(h.ctx, "+15550000002"); err != nil || li.HasHistory {
		t.Fatalf("history should be gone: %+v err=%v", li, err)
	}

	// The other side keeps its own data.
	if p, err := h.profiles.GetByID(h.ctx, a.Profile.ID); err != nil || p == nil {
		t.Fatalf("requester profile should remain: err=%v", err)
	}
	stats, err := h.intros.GetStats(h.ctx)
	if err != nil || stats.Total != 0 {
		t.Fatalf("intros referencing the erased profile should be gone: %+v err=%v", stats, err)
	}

	if _, err := h.erasure.Erase(h.ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown identity: want ErrNotFound, got %v", err)
	}
}
