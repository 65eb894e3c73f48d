package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/superconnector-backend/internal/data/repos/testutil"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

func TestMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	id := testutil.SeedIdentity(t, ctx, db, "+15550002222")
	base := time.Now().UTC().Add(-time.Hour)
	rows := []*types.Message{
		{IdentityID: id.ID, Channel: types.ChannelPhone, Direction: types.DirectionInbound, Content: "one", CreatedAt: base},
		{IdentityID: id.ID, Channel: types.ChannelWhatsApp, Direction: types.DirectionOutbound, Content: "two", CreatedAt: base.Add(time.Minute),
			Metadata: datatypes.NewJSONType(types.MessageMetadata{Source: "twilio"})},
		{IdentityID: id.ID, Channel: types.ChannelEmail, Direction: types.DirectionInbound, Content: "three", CreatedAt: base.Add(2 * time.Minute)},
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.ListByIdentity(dbc, id.ID, 2)
	if err != nil {
		t.Fatalf("ListByIdentity: %v", err)
	}
	if len(got) != 2 || got[0].Content != "two" || got[1].Content != "three" {
		t.Fatalf("ListByIdentity: unexpected order %v", contents(got))
	}
	if got[0].Meta().Source != "twilio" {
		t.Fatalf("metadata lost: %+v", got[0].Meta())
	}

	n, err := repo.CountByIdentity(dbc, id.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountByIdentity: n=%d err=%v", n, err)
	}
	deleted, err := repo.DeleteByIdentity(dbc, id.ID)
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteByIdentity: n=%d err=%v", deleted, err)
	}
}

func TestSummaryRepoCompareAndSwap(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSummaryRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	id := testutil.SeedIdentity(t, ctx, db, "+15550003333")
	now := time.Now().UTC()
	created, err := repo.Create(dbc, &types.ConversationSummary{IdentityID: id.ID, Summary: "s1", LastInteraction: now, InteractionCount: 1})
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	again, err := repo.Create(dbc, &types.ConversationSummary{IdentityID: id.ID, Summary: "other", LastInteraction: now, InteractionCount: 1})
	if err != nil || again {
		t.Fatalf("Create twice: created=%v err=%v", again, err)
	}

	ok, err := repo.ReplaceIfCount(dbc, id.ID, 1, "s2", now)
	if err != nil || !ok {
		t.Fatalf("ReplaceIfCount: ok=%v err=%v", ok, err)
	}
	stale, err := repo.ReplaceIfCount(dbc, id.ID, 1, "s3", now)
	if err != nil || stale {
		t.Fatalf("ReplaceIfCount stale: ok=%v err=%v", stale, err)
	}

	got, err := repo.GetByIdentity(dbc, id.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByIdentity: %+v err=%v", got, err)
	}
	if got.Summary != "s2" || got.InteractionCount != 2 {
		t.Fatalf("GetByIdentity: summary=%q count=%d", got.Summary, got.InteractionCount)
	}
}

func contents(ms []*types.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Content)
	}
	return out
}

func TestMessageRepoSeqBreaksTimestampTies(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	id := testutil.SeedIdentity(t, ctx, db, "+15550004444")
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for _, content := range []string{"a", "b", "c", "d"} {
		row := &types.Message{IdentityID: id.ID, Channel: types.ChannelSMS, Direction: types.DirectionInbound, Content: content, CreatedAt: at}
		if _, err := repo.Create(dbc, []*types.Message{row}); err != nil {
			t.Fatalf("Create(%s): %v", content, err)
		}
	}

	got, err := repo.ListByIdentity(dbc, id.ID, 10)
	if err != nil {
		t.Fatalf("ListByIdentity: %v", err)
	}
	if want := "a,b,c,d"; strings.Join(contents(got), ",") != want {
		t.Fatalf("order: want=%s got=%v", want, contents(got))
	}
	for i, m := range got {
		if m.Seq != int64(i+1) {
			t.Fatalf("seq[%d]=%d want %d", i, m.Seq, i+1)
		}
	}
	maxSeq, err := repo.GetMaxSeq(dbc, id.ID)
	if err != nil || maxSeq != 4 {
		t.Fatalf("GetMaxSeq: n=%d err=%v", maxSeq, err)
	}
}

func TestMessageRepoLimitAboveDefault(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMessageRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	id := testutil.SeedIdentity(t, ctx, db, "+15550005555")
	base := time.Now().UTC().Add(-24 * time.Hour)
	rows := make([]*types.Message, 0, 600)
	for i := 0; i < 600; i++ {
		rows = append(rows, &types.Message{
			IdentityID: id.ID,
			Channel:    types.ChannelWhatsApp,
			Direction:  types.DirectionInbound,
			Content:    fmt.Sprintf("m%03d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		limit int
		want  int
		first string
	}{
		{0, 50, "m550"},
		{120, 120, "m480"},
		{600, 600, "m000"},
		{MaxListLimit + 500, 600, "m000"},
	}
	for _, tc := range cases {
		got, err := repo.ListByIdentity(dbc, id.ID, tc.limit)
		if err != nil {
			t.Fatalf("ListByIdentity(%d): %v", tc.limit, err)
		}
		if len(got) != tc.want {
			t.Fatalf("ListByIdentity(%d): want %d rows got %d", tc.limit, tc.want, len(got))
		}
		if got[0].Content != tc.first || got[len(got)-1].Content != "m599" {
			t.Fatalf("ListByIdentity(%d): window %s..%s", tc.limit, got[0].Content, got[len(got)-1].Content)
		}
	}
}
