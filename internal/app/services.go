package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/graph"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/services"
)

type Services struct {
	Identities    services.IdentityService
	Profiles      services.ProfileService
	Conversations services.ConversationService
	Memory        services.MemoryService
	Matches       services.MatchService
	Dispatcher    services.Dispatcher
	Intros        services.IntroService
	Calls         services.CallSyncService
	Assistant     services.WhatsAppAssistant
	Erasure       services.ErasureService
	IntroGraph    graph.IntroGraph
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	timeout := cfg.ExternalCallTimeout
	introGraph := graph.NewIntroGraph(c.Neo4j, log)

	identities := services.NewIdentityService(db, log, r.Identity)
	matches := services.NewMatchService(log, r.Profile, c.OpenAI, c.Vector, timeout)
	profiles := services.NewProfileService(db, log, r.Identity, r.Profile, matches, c.OpenAI, timeout)
	conversations := services.NewConversationService(log, r.Identity, r.Profile, r.Message, r.Call)
	memory := services.NewMemoryService(log, r.Summary, r.Profile, c.OpenAI, timeout)
	dispatcher := services.NewDispatcher(log, c.Twilio, c.SendGrid, timeout)

	intros := services.NewIntroService(log, services.IntroServiceDeps{
		IntroRepo:      r.Intro,
		ProfileRepo:    r.Profile,
		Conversations:  conversations,
		Dispatcher:     dispatcher,
		Queue:          c.DeferredQueue,
		Graph:          introGraph,
		DefaultChannel: cfg.DefaultChannel,
	})

	calls := services.NewCallSyncService(log, services.CallSyncDeps{
		Identities:    identities,
		Profiles:      profiles,
		Conversations: conversations,
		Memory:        memory,
		CallRepo:      r.Call,
		Voice:         c.Vapi,
		Timeout:       timeout,
	})

	assistant := services.NewWhatsAppAssistant(log, services.WhatsAppAssistantDeps{
		Identities:    identities,
		Profiles:      profiles,
		Conversations: conversations,
		Memory:        memory,
		Intros:        intros,
		Calls:         calls,
		Completer:     c.OpenAI,
		Timeout:       timeout,
	})

	erasure := services.NewErasureService(db, log, services.ErasureDeps{
		IdentityRepo: r.Identity,
		ProfileRepo:  r.Profile,
		MessageRepo:  r.Message,
		SummaryRepo:  r.Summary,
		IntroRepo:    r.Intro,
		CallRepo:     r.Call,
		Matches:      matches,
		Graph:        introGraph,
	})

	return Services{
		Identities:    identities,
		Profiles:      profiles,
		Conversations: conversations,
		Memory:        memory,
		Matches:       matches,
		Dispatcher:    dispatcher,
		Intros:        intros,
		Calls:         calls,
		Assistant:     assistant,
		Erasure:       erasure,
		IntroGraph:    introGraph,
	}
}
