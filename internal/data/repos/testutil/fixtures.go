package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedIdentity(tb testing.TB, ctx context.Context, tx *gorm.DB, phone string) *types.Identity {
	tb.Helper()
	now := time.Now().UTC()
	id := &types.Identity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if phone != "" {
		p := phone
		id.Phone = &p
	}
	if err := tx.WithContext(ctx).Create(id).Error; err != nil {
		tb.Fatalf("seed identity: %v", err)
	}
	return id
}

type ProfileSeed struct {
	Name              string
	Role              string
	Company           string
	Asks              []string
	Offers            []string
	Tags              []string
	PreferredChannels []string
	Embedding         []float32
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, identityID uuid.UUID, seed ProfileSeed) *types.Profile {
	tb.Helper()
	now := time.Now().UTC()
	name := seed.Name
	if name == "" {
		name = "User"
	}
	p := &types.Profile{
		ID:                uuid.New(),
		IdentityID:        identityID,
		Name:              name,
		Role:              seed.Role,
		Company:           seed.Company,
		Asks:              datatypes.JSONSlice[string](seed.Asks),
		Offers:            datatypes.JSONSlice[string](seed.Offers),
		Tags:              datatypes.JSONSlice[string](seed.Tags),
		PreferredChannels: datatypes.JSONSlice[string](seed.PreferredChannels),
		Embedding:         datatypes.JSONSlice[float32](seed.Embedding),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

// SeedPerson creates an identity with a phone and a profile for it.
func SeedPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, phone string, seed ProfileSeed) (*types.Identity, *types.Profile) {
	tb.Helper()
	id := SeedIdentity(tb, ctx, tx, phone)
	return id, SeedProfile(tb, ctx, tx, id.ID, seed)
}

func SeedIntro(tb testing.TB, ctx context.Context, tx *gorm.DB, from, to uuid.UUID, status types.IntroStatus, createdAt time.Time) *types.Intro {
	tb.Helper()
	in := &types.Intro{
		ID:            uuid.New(),
		FromProfileID: from,
		ToProfileID:   to,
		Status:        status,
		Reason:        "seed",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := tx.WithContext(ctx).Create(in).Error; err != nil {
		tb.Fatalf("seed intro: %v", err)
	}
	return in
}
