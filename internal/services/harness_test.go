package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/graph"
	"github.com/yungbote/superconnector-backend/internal/data/repos"
	"github.com/yungbote/superconnector-backend/internal/data/repos/testutil"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/memvec"
	"github.com/yungbote/superconnector-backend/internal/services/servicetest"
)

type harness struct {
	ctx context.Context
	db  *gorm.DB

	identityRepo repos.IdentityRepo
	profileRepo  repos.ProfileRepo
	messageRepo  repos.MessageRepo
	summaryRepo  repos.SummaryRepo
	introRepo    repos.IntroRepo
	callRepo     repos.CallRepo

	embedder   *servicetest.Embedder
	completer  *servicetest.Completer
	dispatcher *servicetest.Dispatcher
	queue      *servicetest.Queue
	voice      *servicetest.Voice
	index      *memvec.Index
	clock      time.Time

	identities    IdentityService
	profiles      ProfileService
	conversations ConversationService
	memory        MemoryService
	matches       MatchService
	intros        IntroService
	calls         CallSyncService
	assistant     WhatsAppAssistant
	erasure       ErasureService
}

// newHarness wires every service over a private SQLite database. The
// completer fails unless a test sets Reply.
func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	h := &harness{
		ctx:          context.Background(),
		db:           db,
		identityRepo: repos.NewIdentityRepo(db, log),
		profileRepo:  repos.NewProfileRepo(db, log),
		messageRepo:  repos.NewMessageRepo(db, log),
		summaryRepo:  repos.NewSummaryRepo(db, log),
		introRepo:    repos.NewIntroRepo(db, log),
		callRepo:     repos.NewCallRepo(db, log),
		embedder:     &servicetest.Embedder{},
		completer:    &servicetest.Completer{Err: servicetest.ErrUnavailable},
		dispatcher:   &servicetest.Dispatcher{},
		queue:        servicetest.NewQueue(),
		voice:        &servicetest.Voice{},
		index:        memvec.New(log),
		clock:        time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	introGraph := graph.NewIntroGraph(nil, log)

	h.identities = NewIdentityService(db, log, h.identityRepo)
	h.matches = NewMatchService(log, h.profileRepo, h.embedder, h.index, time.Second)
	h.profiles = NewProfileService(db, log, h.identityRepo, h.profileRepo, h.matches, h.completer, time.Second)
	h.conversations = NewConversationService(log, h.identityRepo, h.profileRepo, h.messageRepo, h.callRepo)
	h.memory = NewMemoryService(log, h.summaryRepo, h.profileRepo, h.completer, time.Second)
	h.intros = NewIntroService(log, IntroServiceDeps{
		IntroRepo:      h.introRepo,
		ProfileRepo:    h.profileRepo,
		Conversations:  h.conversations,
		Dispatcher:     h.dispatcher,
		Queue:          h.queue,
		Graph:          introGraph,
		DefaultChannel: types.ChannelWhatsApp,
		Now:            func() time.Time { return h.clock },
	})
	h.calls = NewCallSyncService(log, CallSyncDeps{
		Identities:    h.identities,
		Profiles:      h.profiles,
		Conversations: h.conversations,
		Memory:        h.memory,
		CallRepo:      h.callRepo,
		Voice:         h.voice,
		Timeout:       time.Second,
	})
	h.assistant = NewWhatsAppAssistant(log, WhatsAppAssistantDeps{
		Identities:    h.identities,
		Profiles:      h.profiles,
		Conversations: h.conversations,
		Memory:        h.memory,
		Intros:        h.intros,
		Calls:         h.calls,
		Completer:     h.completer,
		Timeout:       time.Second,
	})
	h.erasure = NewErasureService(db, log, ErasureDeps{
		IdentityRepo: h.identityRepo,
		ProfileRepo:  h.profileRepo,
		MessageRepo:  h.messageRepo,
		SummaryRepo:  h.summaryRepo,
		IntroRepo:    h.introRepo,
		CallRepo:     h.callRepo,
		Matches:      h.matches,
		Graph:        introGraph,
	})
	return h
}

type person struct {
	Identity *types.Identity
	Profile  *types.Profile
}

// person creates an identity and profile through the services, so the
// embedding and vector index are populated.
func (h *harness) person(t *testing.T, phone string, f types.ProfileFields) person {
	t.Helper()
	ident, err := h.identities.Resolve(h.ctx, types.Identifiers{Phone: phone})
	if err != nil {
		t.Fatalf("Resolve(%s): %v", phone, err)
	}
	if f.Name == nil {
		name := "User " + phone
		f.Name = &name
	}
	p, err := h.profiles.Upsert(h.ctx, ident.ID, f)
	if err != nil {
		t.Fatalf("Upsert(%s): %v", phone, err)
	}
	return person{Identity: ident, Profile: p}
}

func strp(s string) *string { return &s }

func listp(v ...string) *[]string { return &v }
