package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func TestIntroGraphWithoutClientIsNoop(t *testing.T) {
	g := NewIntroGraph(nil, logger.Nop())
	in := &types.Intro{ID: uuid.New(), Status: types.IntroConsented}
	from := &types.Profile{ID: uuid.New()}
	to := &types.Profile{ID: uuid.New()}
	if err := g.UpsertIntro(context.Background(), in, from, to); err != nil {
		t.Fatalf("UpsertIntro: %v", err)
	}
	if err := g.DeletePerson(context.Background(), from.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
}
