package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
	"github.com/yungbote/kgconsolidate/internal/platform/neo4jdb"
)

var relTypes = map[string]string{
	types.LinkSubTopic:            "SUB_TOPIC",
	types.LinkSemanticallySimilar: "SEMANTICALLY_SIMILAR",
	types.LinkExtends:             "EXTENDS",
}

// RelType maps a link type to its relationship label. Unknown types share
// KG_LINK and keep the original name in the link_type property.
func RelType(linkType string) string {
	if r, ok := relTypes[linkType]; ok {
		return r
	}
	return "KG_LINK"
}

type records struct {
	nodes   []map[string]any
	topics  []map[string]any
	members []map[string]any
	rels    map[string][]map[string]any
}

func buildRecords(graphID string, g types.Graph, now string) records {
	out := records{rels: map[string][]map[string]any{}}
	for _, n := range g.Nodes {
		out.nodes = append(out.nodes, map[string]any{
			"graph_id":    graphID,
			"id":          n.ID,
			"name":        n.Name,
			"description": n.Description,
			"urls":        append([]string{}, n.URLs...),
			"synced_at":   now,
		})
	}
	for _, t := range g.HighLevelTopics {
		out.topics = append(out.topics, map[string]any{
			"graph_id":  graphID,
			"id":        t.ID,
			"name":      t.Name,
			"size":      int64(len(t.SubTopics)),
			"synced_at": now,
		})
		for _, m := range t.SubTopics {
			out.members = append(out.members, map[string]any{"topic_id": t.ID, "node_id": m})
		}
	}
	for _, l := range g.Links {
		rec := map[string]any{
			"from_id":       l.Source,
			"to_id":         l.Target,
			"link_type":     l.Type,
			"bidirectional": l.Bidirectional(),
			"urls":          append([]string{}, l.URLs...),
			"synced_at":     now,
		}
		if l.SimilarityScore != nil {
			rec["similarity"] = *l.SimilarityScore
		}
		rel := RelType(l.Type)
		out.rels[rel] = append(out.rels[rel], rec)
	}
	return out
}

// UpsertConsolidatedGraph writes g under graphID. Nodes are keyed by
// (graph_id, id) so several graphs can share one database. Nothing is deleted.
func UpsertConsolidatedGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, graphID string, g types.Graph) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return fmt.Errorf("neo4j graph sync: missing graphID")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	recs := buildRecords(graphID, g, time.Now().UTC().Format(time.RFC3339Nano))

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT kg_node_key IF NOT EXISTS FOR (n:KGNode) REQUIRE (n.graph_id, n.id) IS UNIQUE`,
		`CREATE CONSTRAINT kg_topic_key IF NOT EXISTS FOR (t:KGTopic) REQUIRE (t.graph_id, t.id) IS UNIQUE`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
			continue
		}
		_, _ = res.Consume(ctx)
	}

	run := func(tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return err
		}
		_, err = res.Consume(ctx)
		return err
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(recs.nodes) > 0 {
			if err := run(tx, `
UNWIND $nodes AS n
MERGE (k:KGNode {graph_id: n.graph_id, id: n.id})
SET k += n
`, map[string]any{"nodes": recs.nodes}); err != nil {
				return nil, err
			}
		}
		for rel, rows := range recs.rels {
			// rel comes from relTypes or is KG_LINK, never from input.
			cypher := fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:KGNode {graph_id: $graph_id, id: r.from_id})
MATCH (b:KGNode {graph_id: $graph_id, id: r.to_id})
MERGE (a)-[e:%s {link_type: r.link_type}]->(b)
SET e += r
`, rel)
			if err := run(tx, cypher, map[string]any{"rels": rows, "graph_id": graphID}); err != nil {
				return nil, err
			}
		}
		if len(recs.topics) > 0 {
			if err := run(tx, `
UNWIND $topics AS t
MERGE (k:KGTopic {graph_id: t.graph_id, id: t.id})
SET k += t
`, map[string]any{"topics": recs.topics}); err != nil {
				return nil, err
			}
		}
		if len(recs.members) > 0 {
			if err := run(tx, `
UNWIND $members AS m
MATCH (t:KGTopic {graph_id: $graph_id, id: m.topic_id})
MATCH (n:KGNode {graph_id: $graph_id, id: m.node_id})
MERGE (n)-[:IN_TOPIC]->(t)
`, map[string]any{"members": recs.members, "graph_id": graphID}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j graph sync: %w", err)
	}
	if log != nil {
		log.Info("neo4j graph synced",
			"graph_id", graphID,
			"nodes", len(recs.nodes),
			"links", len(g.Links),
			"topics", len(recs.topics),
		)
	}
	return nil
}
