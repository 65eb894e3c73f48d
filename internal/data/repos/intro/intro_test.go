package intro

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/superconnector-backend/internal/data/repos/testutil"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
)

func TestIntroRepoCreateIsIdempotentPerPair(t *testing.T) {
	db := testutil.DB(t)
	repo := NewIntroRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	_, p1 := testutil.SeedPerson(t, ctx, db, "+15550000001", testutil.ProfileSeed{Name: "A"})
	_, p2 := testutil.SeedPerson(t, ctx, db, "+15550000002", testutil.ProfileSeed{Name: "B"})

	first, created, err := repo.Create(dbc, &types.Intro{FromProfileID: p1.ID, ToProfileID: p2.ID, Reason: "co-founder search"})
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	second, created, err := repo.Create(dbc, &types.Intro{FromProfileID: p1.ID, ToProfileID: p2.ID, Reason: "other"})
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}
	if created || second.ID != first.ID || second.Reason != "co-founder search" {
		t.Fatalf("Create again: created=%v got=%+v", created, second)
	}

	// Reverse direction is a different intro.
	rev, created, err := repo.Create(dbc, &types.Intro{FromProfileID: p2.ID, ToProfileID: p1.ID})
	if err != nil || !created || rev.ID == first.ID {
		t.Fatalf("Create reverse: created=%v err=%v", created, err)
	}
}

func TestIntroRepoTransitions(t *testing.T) {
	db := testutil.DB(t)
	repo := NewIntroRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	_, p1 := testutil.SeedPerson(t, ctx, db, "+15550000011", testutil.ProfileSeed{Name: "A"})
	_, p2 := testutil.SeedPerson(t, ctx, db, "+15550000012", testutil.ProfileSeed{Name: "B"})
	_, p3 := testutil.SeedPerson(t, ctx, db, "+15550000013", testutil.ProfileSeed{Name: "C"})

	now := time.Now().UTC()
	older := testutil.SeedIntro(t, ctx, db, p1.ID, p2.ID, types.IntroConsentSent, now.Add(-time.Hour))
	newer := testutil.SeedIntro(t, ctx, db, p3.ID, p2.ID, types.IntroPendingConsent, now)
	testutil.SeedIntro(t, ctx, db, p2.ID, p1.ID, types.IntroDeclined, now)

	pending, err := repo.ListPendingFor(dbc, p2.ID)
	if err != nil {
		t.Fatalf("ListPendingFor: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != newer.ID || pending[1].ID != older.ID {
		t.Fatalf("ListPendingFor: unexpected %+v", pending)
	}

	ok, err := repo.Transition(dbc, older.ID, types.IntroConsentSent, types.IntroConsented, now)
	if err != nil || !ok {
		t.Fatalf("Transition: ok=%v err=%v", ok, err)
	}
	// Stale from-status is rejected without error.
	ok, err = repo.Transition(dbc, older.ID, types.IntroConsentSent, types.IntroDeclined, now)
	if err != nil || ok {
		t.Fatalf("Transition stale: ok=%v err=%v", ok, err)
	}
	if _, err := repo.Transition(dbc, older.ID, types.IntroConsentSent, types.IntroCompleted, now); err == nil {
		t.Fatalf("Transition: expected illegal edge error")
	}

	got, err := repo.GetByID(dbc, older.ID)
	if err != nil || got.Status != types.IntroConsented || got.ConsentedAt == nil {
		t.Fatalf("GetByID: %+v err=%v", got, err)
	}

	n, err := repo.CountByStatus(dbc, types.IntroDeclined)
	if err != nil || n != 1 {
		t.Fatalf("CountByStatus: n=%d err=%v", n, err)
	}
	byStatus, err := repo.ListByStatus(dbc, types.IntroConsented, 10)
	if err != nil || len(byStatus) != 1 {
		t.Fatalf("ListByStatus: len=%d err=%v", len(byStatus), err)
	}

	deleted, err := repo.DeleteByProfile(dbc, p2.ID)
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteByProfile: n=%d err=%v", deleted, err)
	}
}
