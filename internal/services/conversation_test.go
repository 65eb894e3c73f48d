package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
)

func TestAppendValidatesInput(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001000", types.ProfileFields{})

	cases := []struct {
		name      string
		identity  uuid.UUID
		channel   types.Channel
		direction types.Direction
		content   string
		want      error
	}{
		{"bad channel", p.Identity.ID, types.Channel("fax"), types.DirectionInbound, "hi", errs.ErrValidation},
		{"bad direction", p.Identity.ID, types.ChannelSMS, types.Direction("sideways"), "hi", errs.ErrValidation},
		{"blank content", p.Identity.ID, types.ChannelSMS, types.DirectionInbound, "   ", errs.ErrValidation},
		{"unknown identity", uuid.New(), types.ChannelSMS, types.DirectionInbound, "hi", errs.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.conversations.Append(h.ctx, tc.identity, tc.channel, tc.direction, tc.content, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHistoryIsChronologicalAcrossChannels(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001001", types.ProfileFields{})
	entries := []struct {
		ch  types.Channel
		dir types.Direction
		txt string
	}{
		{types.ChannelWhatsApp, types.DirectionInbound, "first"},
		{types.ChannelPhone, types.DirectionOutbound, "second"},
		{types.ChannelEmail, types.DirectionOutbound, "third"},
	}
	for _, e := range entries {
		if _, err := h.conversations.Append(h.ctx, p.Identity.ID, e.ch, e.dir, e.txt, nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	hist, err := h.conversations.GetHistory(h.ctx, p.Identity.ID, 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != 3 || hist[0].Content != "first" || hist[2].Content != "third" {
		t.Fatalf("unexpected history order: %+v", hist)
	}

	last2, err := h.conversations.GetHistory(h.ctx, p.Identity.ID, 2)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(last2) != 2 || last2[0].Content != "second" || last2[1].Content != "third" {
		t.Fatalf("limit should keep the newest messages in ascending order: %+v", last2)
	}
}

func TestUnifiedIncludesCallSummaries(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001002", types.ProfileFields{Name: strp("Dana")})
	if _, err := h.conversations.Append(h.ctx, p.Identity.ID, types.ChannelWhatsApp, types.DirectionInbound, "hello", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := h.calls.StoreCallSummary(h.ctx, CallReport{
		CallID:          "call-1",
		Phone:           "+15550001002",
		Summary:         "Talked about hiring",
		DurationSeconds: 120,
	}); err != nil {
		t.Fatalf("StoreCallSummary: %v", err)
	}

	unified, err := h.conversations.GetUnified(h.ctx, p.Identity.ID, 50)
	if err != nil {
		t.Fatalf("GetUnified: %v", err)
	}
	var sawSummary bool
	for _, e := range unified {
		if e.Role == "system" && strings.HasPrefix(e.Content, "[Call Summary] ") {
			sawSummary = true
		}
	}
	if !sawSummary {
		t.Fatalf("unified view missing call summary: %+v", unified)
	}
	for i := 1; i < len(unified); i++ {
		if unified[i].At.Before(unified[i-1].At) {
			t.Fatalf("unified view not chronological at %d", i)
		}
	}
}

func TestLastInteractionSummary(t *testing.T) {
	h := newHarness(t)
	empty, err := h.conversations.LastInteractionSummary(h.ctx, "+15550009999")
	if err != nil {
		t.Fatalf("LastInteractionSummary: %v", err)
	}
	if empty.HasHistory {
		t.Fatalf("unknown phone should have no history")
	}

	p := h.person(t, "+15550001003", types.ProfileFields{})
	long := strings.Repeat("x", 150)
	if _, err := h.conversations.Append(h.ctx, p.Identity.ID, types.ChannelSMS, types.DirectionInbound, long, nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := h.conversations.LastInteractionSummary(h.ctx, "+15550001003")
	if err != nil {
		t.Fatalf("LastInteractionSummary: %v", err)
	}
	if !got.HasHistory || len(got.RecentContext) != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if n := len([]rune(got.RecentContext[0].Content)); n != 100 {
		t.Fatalf("context line should be truncated to 100 runes, got %d", n)
	}
}

func TestUpdateSummaryFallsBackWithoutCompleter(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001004", types.ProfileFields{})

	first, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "Asked about investors")
	if err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	if first.Summary != "Initial interaction: Asked about investors" || first.InteractionCount != 1 {
		t.Fatalf("unexpected first summary: %+v", first)
	}

	second, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "Shared email")
	if err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	want := "Initial interaction: Asked about investors\n\nLatest: Shared email"
	if second.Summary != want || second.InteractionCount != 2 {
		t.Fatalf("unexpected second summary: %+v", second)
	}

	stored, err := h.memory.GetSummary(h.ctx, p.Identity.ID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if stored == nil || stored.Summary != want {
		t.Fatalf("stored summary mismatch: %+v", stored)
	}
}

func TestUpdateSummaryUsesCompleter(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001005", types.ProfileFields{})
	h.completer.Err = nil
	h.completer.Reply = "Founder raising a seed round."

	got, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "Raising seed")
	if err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	if got.Summary != "Founder raising a seed round." {
		t.Fatalf("summary=%q", got.Summary)
	}
	if h.completer.Count() != 1 {
		t.Fatalf("completer calls=%d want 1", h.completer.Count())
	}
}

func TestHistoryLimitsAboveDefault(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001006", types.ProfileFields{})
	base := time.Now().UTC().Add(-24 * time.Hour)
	rows := make([]*types.Message, 0, 600)
	for i := 0; i < 600; i++ {
		rows = append(rows, &types.Message{
			IdentityID: p.Identity.ID,
			Channel:    types.ChannelSMS,
			Direction:  types.DirectionInbound,
			Content:    fmt.Sprintf("m%03d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}
	if _, err := h.messageRepo.Create(dbctx.Background(h.ctx), rows); err != nil {
		t.Fatalf("seed messages: %v", err)
	}

	hist, err := h.conversations.GetHistory(h.ctx, p.Identity.ID, 600)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != 600 || hist[0].Content != "m000" || hist[599].Content != "m599" {
		t.Fatalf("GetHistory(600): got %d rows", len(hist))
	}

	unified, err := h.conversations.GetUnified(h.ctx, p.Identity.ID, 550)
	if err != nil {
		t.Fatalf("GetUnified: %v", err)
	}
	if len(unified) != 550 || unified[0].Content != "m050" || unified[549].Content != "m599" {
		t.Fatalf("GetUnified(550): got %d entries", len(unified))
	}
}

func TestUpdateSummaryKeepsRawTextAndIgnoresBlank(t *testing.T) {
	h := newHarness(t)
	p := h.person(t, "+15550001007", types.ProfileFields{})

	none, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "   ")
	if err != nil {
		t.Fatalf("blank UpdateSummary: %v", err)
	}
	if none != nil {
		t.Fatalf("blank input should not create a summary: %+v", none)
	}

	if _, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "Met at demo day"); err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	got, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "  Sent deck\n")
	if err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	want := "Initial interaction: Met at demo day\n\nLatest:   Sent deck\n"
	if got.Summary != want {
		t.Fatalf("summary=%q want %q", got.Summary, want)
	}

	same, err := h.memory.UpdateSummary(h.ctx, p.Identity.ID, "\n\t")
	if err != nil {
		t.Fatalf("blank UpdateSummary: %v", err)
	}
	if same == nil || same.Summary != want || same.InteractionCount != 2 {
		t.Fatalf("blank input should leave summary untouched: %+v", same)
	}
}
