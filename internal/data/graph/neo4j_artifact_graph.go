package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/platform/neo4jdb"
)

// Neo4jArtifactGraph mirrors artifacts, links, and context groups into Neo4j
// and serves the candidate query. The mirror is best-effort: Postgres stays
// authoritative, and callers treat every write here as non-fatal.
type Neo4jArtifactGraph struct {
	client *neo4jdb.Client
	log    *logger.Logger

	candidateWindow time.Duration
}

func NewNeo4jArtifactGraph(client *neo4jdb.Client, baseLog *logger.Logger, candidateWindow time.Duration) *Neo4jArtifactGraph {
	if candidateWindow <= 0 {
		candidateWindow = 30 * 24 * time.Hour
	}
	return &Neo4jArtifactGraph{
		client:          client,
		log:             baseLog.With("store", "Neo4jArtifactGraph"),
		candidateWindow: candidateWindow,
	}
}

func (g *Neo4jArtifactGraph) enabled() bool {
	return g != nil && g.client != nil && g.client.Driver != nil
}

func (g *Neo4jArtifactGraph) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: g.client.Database,
	})
}

func (g *Neo4jArtifactGraph) MirrorArtifact(ctx context.Context, a *types.Artifact) error {
	if !g.enabled() || a == nil || a.ID == uuid.Nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (a:Artifact {id: $id})
			SET a.tenant_id = $tenant_id,
			    a.platform = $platform,
			    a.type = $type,
			    a.occurred_at = datetime($occurred_at),
			    a.synced_at = datetime($synced_at)
		`, map[string]any{
			"id":          a.ID.String(),
			"tenant_id":   a.TenantID.String(),
			"platform":    a.Platform,
			"type":        a.Type,
			"occurred_at": a.OccurredAt.UTC().Format(time.RFC3339Nano),
			"synced_at":   time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return fmt.Errorf("neo4j artifact mirror: %w", err)
	}
	return nil
}

// CandidateIDs returns same-tenant artifacts inside the trailing window that
// are not the artifact itself and not already linked to it, newest first.
func (g *Neo4jArtifactGraph) CandidateIDs(ctx context.Context, artifactID, tenantID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if !g.enabled() {
		return nil, fmt.Errorf("neo4j graph store disabled")
	}
	if limit <= 0 {
		limit = 25
	}
	since := time.Now().UTC().Add(-g.candidateWindow)

	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Artifact {tenant_id: $tenant_id})
			WHERE c.id <> $id
			  AND c.occurred_at >= datetime($since)
			  AND NOT (c)-[:RELATES_TO]-(:Artifact {id: $id})
			RETURN c.id AS id
			ORDER BY c.occurred_at DESC
			LIMIT $limit
		`, map[string]any{
			"id":        artifactID.String(),
			"tenant_id": tenantID.String(),
			"since":     since.Format(time.RFC3339Nano),
			"limit":     limit,
		})
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			if raw, ok := res.Record().Get("id"); ok {
				if s, ok := raw.(string); ok {
					ids = append(ids, s)
				}
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j candidate query: %w", err)
	}

	rawIDs, _ := rows.([]string)
	out := make([]uuid.UUID, 0, len(rawIDs))
	for _, s := range rawIDs {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (g *Neo4jArtifactGraph) MirrorEdge(ctx context.Context, link *types.ArtifactLink) error {
	if !g.enabled() || link == nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (s:Artifact {id: $source_id})
			MATCH (t:Artifact {id: $target_id})
			MERGE (s)-[r:RELATES_TO]->(t)
			SET r.confidence = $confidence,
			    r.relationship_type = $relationship_type,
			    r.discovery_method = $discovery_method,
			    r.synced_at = datetime($synced_at)
		`, map[string]any{
			"source_id":         link.SourceID.String(),
			"target_id":         link.TargetID.String(),
			"confidence":        link.ConfidenceScore,
			"relationship_type": link.RelationshipType,
			"discovery_method":  link.DiscoveryMethod,
			"synced_at":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return fmt.Errorf("neo4j edge mirror: %w", err)
	}
	return nil
}

// MirrorGroupChange rewrites a group's node and full membership edge set.
func (g *Neo4jArtifactGraph) MirrorGroupChange(ctx context.Context, group *types.ContextGroup, memberIDs []uuid.UUID) error {
	if !g.enabled() || group == nil {
		return nil
	}
	ids := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		ids = append(ids, id.String())
	}

	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (cg:ContextGroup {id: $id})
			SET cg.tenant_id = $tenant_id,
			    cg.name = $name,
			    cg.coherence = $coherence,
			    cg.synced_at = datetime($synced_at)
			WITH cg
			OPTIONAL MATCH (cg)<-[old:MEMBER_OF]-(:Artifact)
			DELETE old
			WITH DISTINCT cg
			UNWIND $member_ids AS mid
			MATCH (a:Artifact {id: mid})
			MERGE (a)-[:MEMBER_OF]->(cg)
		`, map[string]any{
			"id":         group.ID.String(),
			"tenant_id":  group.TenantID.String(),
			"name":       group.Name,
			"coherence":  group.CoherenceScore,
			"member_ids": ids,
			"synced_at":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return fmt.Errorf("neo4j group mirror: %w", err)
	}
	return nil
}

func (g *Neo4jArtifactGraph) RemoveGroup(ctx context.Context, groupID uuid.UUID) error {
	if !g.enabled() || groupID == uuid.Nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (cg:ContextGroup {id: $id})
			DETACH DELETE cg
		`, map[string]any{"id": groupID.String()})
	})
	if err != nil {
		return fmt.Errorf("neo4j group remove: %w", err)
	}
	return nil
}
