package neo4jgraph

import (
	"context"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/wellspring/core"
)

const upsertConceptsCypher = `
UNWIND $nodes AS n
MERGE (c:Concept {id: n.id})
SET c += n
`

const upsertPracticesCypher = `
UNWIND $nodes AS n
MERGE (p:Practice {id: n.id})
SET p += n
`

const appendReferencesCypher = `
UNWIND $edges AS e
MERGE (d:Document {id: e.source_id})
MERGE (c:Concept {id: e.target_id})
ON CREATE SET c.name = e.target, c.kind = "concept"
MERGE (d)-[r:REFERENCES {id: e.id}]->(c)
SET r.created_at = e.created_at
`

// MirrorWeave writes one woven batch. A nil client is a no-op.
func (c *Client) MirrorWeave(ctx context.Context, nodes []*core.GraphNode, edges []*core.GraphEdge) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	concepts, practices := nodeParams(nodes)
	refs := edgeParams(edges)
	if len(concepts) == 0 && len(practices) == 0 && len(refs) == 0 {
		return nil
	}

	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		batches := []struct {
			cypher string
			key    string
			rows   []map[string]any
		}{
			{upsertConceptsCypher, "nodes", concepts},
			{upsertPracticesCypher, "nodes", practices},
			{appendReferencesCypher, "edges", refs},
		}
		for _, b := range batches {
			if len(b.rows) == 0 {
				continue
			}
			res, err := tx.Run(ctx, b.cypher, map[string]any{b.key: b.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("mirrored graph batch",
		"concepts", len(concepts),
		"practices", len(practices),
		"edges", len(refs))
	return nil
}

func formatID(id core.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// nodeParams splits nodes by kind into Cypher parameter rows.
func nodeParams(nodes []*core.GraphNode) (concepts, practices []map[string]any) {
	for _, n := range nodes {
		if n == nil || n.Name == "" {
			continue
		}
		row := map[string]any{
			"id":            formatID(n.Id),
			"name":          n.Name,
			"kind":          string(n.Kind),
			"tag":           string(n.Tag),
			"introduced_by": formatID(n.IntroducedBy),
			"updated_at":    n.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
		// Only the shared projection ever reaches the mirror
		if n.Contributor != nil {
			row["contributor_name"] = n.Contributor.DisplayName
			row["contributor_role"] = n.Contributor.Role
		}
		if len(n.Contributors) > 0 {
			names := make([]string, 0, len(n.Contributors))
			for _, c := range n.Contributors {
				if c.DisplayName != "" {
					names = append(names, c.DisplayName)
				}
			}
			row["contributor_names"] = names
		}

		switch n.Kind {
		case core.NodeKindPractice:
			practices = append(practices, row)
		default:
			concepts = append(concepts, row)
		}
	}
	return concepts, practices
}

// edgeParams converts reference edges into Cypher parameter rows.
func edgeParams(edges []*core.GraphEdge) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e == nil || e.TargetConcept == "" {
			continue
		}
		rows = append(rows, map[string]any{
			"id":         formatID(e.Id),
			"source_id":  formatID(e.SourceDocumentID),
			"target":     e.TargetConcept,
			"target_id":  formatID(core.IDFromContent(core.NodeTuple(core.NodeKindConcept, e.TargetConcept))),
			"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return rows
}
