package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/data/repos/testutil"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/services/servicetest"
)

func seedMatchPool(t *testing.T, h *harness) (src, near, mid, far *types.Profile) {
	t.Helper()
	_, src = testutil.SeedPerson(t, h.ctx, h.db, "+15550002000", testutil.ProfileSeed{
		Name: "Src", Asks: []string{"Fundraising"}, Tags: []string{"fintech"}, Embedding: []float32{1, 0, 0},
	})
	_, near = testutil.SeedPerson(t, h.ctx, h.db, "+15550002001", testutil.ProfileSeed{
		Name: "Near", Offers: []string{"fundraising advice"}, Tags: []string{"Fintech"}, Embedding: []float32{0.9, 0.1, 0},
	})
	_, mid = testutil.SeedPerson(t, h.ctx, h.db, "+15550002002", testutil.ProfileSeed{
		Name: "Mid", Tags: []string{"ai"}, Embedding: []float32{0.5, 0.5, 0},
	})
	_, far = testutil.SeedPerson(t, h.ctx, h.db, "+15550002003", testutil.ProfileSeed{
		Name: "Far", Tags: []string{"ai"}, Embedding: []float32{0, 1, 0},
	})
	n, err := h.matches.Reindex(h.ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 4 {
		t.Fatalf("reindexed %d vectors, want 4", n)
	}
	return src, near, mid, far
}

func TestTopKRanksAndExcludesSelf(t *testing.T) {
	h := newHarness(t)
	src, near, mid, _ := seedMatchPool(t, h)

	got, err := h.matches.TopK(h.ctx, src.ID, 2, nil)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
	if got[0].Profile.ID != near.ID || got[1].Profile.ID != mid.ID {
		t.Fatalf("unexpected order: %s, %s", got[0].Profile.Name, got[1].Profile.Name)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("scores not descending: %v %v", got[0].Score, got[1].Score)
	}
	want := "They offer: fundraising advice. Common interests: fintech"
	if got[0].Reason != want {
		t.Fatalf("reason=%q want %q", got[0].Reason, want)
	}
	if got[1].Reason != DefaultMatchReason {
		t.Fatalf("reason=%q want default", got[1].Reason)
	}

	all, err := h.matches.TopK(h.ctx, src.ID, 10, nil)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len=%d want 3", len(all))
	}
	for _, m := range all {
		if m.Profile.ID == src.ID {
			t.Fatalf("source profile returned as its own match")
		}
	}
}

func TestTopKFiltersByTag(t *testing.T) {
	h := newHarness(t)
	src, _, mid, far := seedMatchPool(t, h)

	got, err := h.matches.TopK(h.ctx, src.ID, 5, []string{"AI"})
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(got) != 2 || got[0].Profile.ID != mid.ID || got[1].Profile.ID != far.ID {
		t.Fatalf("unexpected filtered matches: %+v", got)
	}
}

func TestTopKUnknownProfile(t *testing.T) {
	h := newHarness(t)
	if _, err := h.matches.TopK(h.ctx, uuid.New(), 3, nil); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestTopKComputesMissingEmbedding(t *testing.T) {
	h := newHarness(t)
	a := h.person(t, "+15550002100", types.ProfileFields{Name: strp("Ana"), Asks: listp("design partners"), Tags: listp("devtools")})
	b := h.person(t, "+15550002101", types.ProfileFields{Name: strp("Ben"), Offers: listp("design partners"), Tags: listp("devtools")})

	stored, err := h.profiles.GetByID(h.ctx, a.Profile.ID)
	if err != nil || !stored.HasEmbedding() {
		t.Fatalf("profile write should store an embedding: %v", err)
	}
	got, err := h.matches.TopK(h.ctx, a.Profile.ID, 3, nil)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(got) != 1 || got[0].Profile.ID != b.Profile.ID {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestEmbeddingFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	_, p := testutil.SeedPerson(t, h.ctx, h.db, "+15550002200", testutil.ProfileSeed{Name: "NoVec"})
	h.embedder.Err = servicetest.ErrUnavailable

	if _, err := h.matches.TopK(h.ctx, p.ID, 3, nil); !errors.Is(err, errs.ErrEmbeddingUnavailable) {
		t.Fatalf("TopK: want ErrEmbeddingUnavailable, got %v", err)
	}
	if _, err := h.matches.SearchByQuery(h.ctx, "climate founders", 5); !errors.Is(err, errs.ErrEmbeddingUnavailable) {
		t.Fatalf("SearchByQuery: want ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestSearchByQuery(t *testing.T) {
	h := newHarness(t)
	h.person(t, "+15550002300", types.ProfileFields{Name: strp("Quinn"), Headline: strp("climate hardware founder")})
	h.person(t, "+15550002301", types.ProfileFields{Name: strp("Rae"), Headline: strp("pastry chef")})

	got, err := h.matches.SearchByQuery(h.ctx, "climate hardware founder", 1)
	if err != nil {
		t.Fatalf("SearchByQuery: %v", err)
	}
	if len(got) != 1 || got[0].Profile.Name != "Quinn" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if _, err := h.matches.SearchByQuery(h.ctx, "  ", 5); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank query: want ErrValidation, got %v", err)
	}
}

func TestProfileEmbeddingText(t *testing.T) {
	p := &types.Profile{Name: "Ann", Role: "CTO", Asks: []string{"hiring"}, Offers: []string{"mentoring"}, Tags: []string{"ai"}}
	want := "Ann | CTO | needs: hiring | offers: mentoring | ai"
	if got := ProfileEmbeddingText(p); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
