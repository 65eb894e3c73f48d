package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/neo4jdb"
)

// IntroGraph projects intros into a (:Person)-[:INTRODUCED]->(:Person) graph.
// A nil client makes every call a no-op.
type IntroGraph interface {
	UpsertIntro(ctx context.Context, in *types.Intro, from, to *types.Profile) error
	DeletePerson(ctx context.Context, profileID uuid.UUID) error
}

type introGraph struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewIntroGraph(client *neo4jdb.Client, baseLog *logger.Logger) IntroGraph {
	return &introGraph{client: client, log: baseLog.With("graph", "IntroGraph")}
}

func (g *introGraph) enabled() bool {
	return g != nil && g.client != nil && g.client.Driver != nil
}

func (g *introGraph) session(ctx context.Context) neo4j.SessionWithContext {
	return g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.client.Database,
	})
}

func (g *introGraph) UpsertIntro(ctx context.Context, in *types.Intro, from, to *types.Profile) error {
	if !g.enabled() || in == nil || from == nil || to == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	session := g.session(ctx)
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT person_id_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE`, nil); err != nil {
		g.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (a:Person {id: $from_id})
SET a.name = $from_name, a.company = $from_company, a.synced_at = $synced_at
MERGE (b:Person {id: $to_id})
SET b.name = $to_name, b.company = $to_company, b.synced_at = $synced_at
MERGE (a)-[r:INTRODUCED {intro_id: $intro_id}]->(b)
SET r.status = $status,
    r.reason = $reason,
    r.created_at = $created_at,
    r.updated_at = $updated_at,
    r.synced_at = $synced_at
`, map[string]any{
			"from_id":      from.ID.String(),
			"from_name":    from.Name,
			"from_company": from.Company,
			"to_id":        to.ID.String(),
			"to_name":      to.Name,
			"to_company":   to.Company,
			"intro_id":     in.ID.String(),
			"status":       string(in.Status),
			"reason":       in.Reason,
			"created_at":   in.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updated_at":   in.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":    now,
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (g *introGraph) DeletePerson(ctx context.Context, profileID uuid.UUID) error {
	if !g.enabled() || profileID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := g.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (p:Person {id: $id}) DETACH DELETE p`, map[string]any{"id": profileID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}
