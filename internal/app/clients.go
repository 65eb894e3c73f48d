package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/superconnector-backend/internal/clients/redis"
	"github.com/yungbote/superconnector-backend/internal/clients/twilio"
	"github.com/yungbote/superconnector-backend/internal/clients/vapi"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/neo4jdb"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
	"github.com/yungbote/superconnector-backend/internal/platform/sendgrid"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

// Clients holds the external collaborators. Every field except Vector may be
// nil; the services degrade per collaborator when one is missing.
type Clients struct {
	OpenAI         openai.Client
	Twilio         twilio.Client
	SendGrid       sendgrid.Client
	Vapi           vapi.Client
	Neo4j          *neo4jdb.Client
	DeferredQueue  redis.DeferredQueue
	Vector         vectorindex.Index
	VectorProvider string
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if c, err := openai.New(log, cfg.OpenAI); err != nil {
		log.Warn("OpenAI client disabled; completions fall back and matching is unavailable", "error", err)
	} else {
		out.OpenAI = c
	}

	if c, err := twilio.New(log, cfg.Twilio); err != nil {
		log.Warn("Twilio client disabled; SMS and WhatsApp delivery unavailable", "error", err)
	} else {
		out.Twilio = c
	}

	if c, err := sendgrid.New(log, cfg.SendGrid); err != nil {
		log.Warn("SendGrid client disabled; email delivery unavailable", "error", err)
	} else {
		out.SendGrid = c
	}

	if c, err := vapi.New(log, cfg.Vapi); err != nil {
		log.Warn("Vapi client disabled; outbound calls unavailable", "error", err)
	} else {
		out.Vapi = c
	}

	neo, err := neo4jdb.New(log, cfg.Neo4j)
	if err != nil {
		log.Warn("Neo4j unavailable; intro graph disabled", "error", err)
	} else if neo == nil {
		log.Info("NEO4J_URI not set; intro graph disabled")
	} else {
		out.Neo4j = neo
	}

	q, err := redis.NewDeferredQueue(log, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable; quiet-hours deferral disabled", "error", err)
	} else if q == nil {
		log.Info("REDIS_ADDR not set; quiet-hours deferral disabled")
	} else {
		out.DeferredQueue = q
	}

	idx, provider, err := resolveVectorIndex(log, cfg)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init vector index: %w", err)
	}
	out.Vector = idx
	out.VectorProvider = provider

	return out, nil
}

func (c Clients) Close() {
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
	if c.DeferredQueue != nil {
		_ = c.DeferredQueue.Close()
	}
}
