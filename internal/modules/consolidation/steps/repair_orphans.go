package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type RepairOrphansDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
}

type RepairOrphansInput struct {
	Graph     types.Graph
	Config    config.RepairConfig
	BatchSize int
	// SkipSemantic limits the repair to structural parent links.
	SkipSemantic bool
}

type ParentAssignment struct {
	Child      string  `json:"child"`
	Parent     string  `json:"parent"`
	Similarity float64 `json:"similarity"`
}

type RepairOrphansOutput struct {
	Graph           types.Graph        `json:"-"`
	StructuralAdded int                `json:"structural_added"`
	Orphans         int                `json:"orphans"`
	SemanticAdded   int                `json:"semantic_added"`
	Unresolved      []string           `json:"unresolved"`
	Assignments     []ParentAssignment `json:"assignments,omitempty"`
}

// RepairOrphans closes the id hierarchy. Every node whose dot-path parent exists
// gets a "sub topic" link from that parent. Nodes below the root level that still
// have no incoming "sub topic" link are given the most similar strictly shallower
// node as parent, if one reaches ParentThreshold and is not already linked to them.
func RepairOrphans(ctx context.Context, deps RepairOrphansDeps, in RepairOrphansInput) (RepairOrphansOutput, error) {
	out := RepairOrphansOutput{Unresolved: []string{}}
	if deps.Log == nil || (deps.Embedder == nil && !in.SkipSemantic) {
		return out, fmt.Errorf("repair_orphans: missing deps")
	}
	log := deps.Log.With("stage", "repair_orphans")
	cfg := in.Config
	g := in.Graph.Clone()
	idx := g.NodeIndex()

	type edge struct{ from, to string }
	subTopic := map[edge]bool{}
	hasParent := map[string]bool{}
	for _, l := range g.Links {
		if l.Type == types.LinkSubTopic {
			subTopic[edge{l.Source, l.Target}] = true
			hasParent[l.Target] = true
		}
	}

	for _, n := range g.Nodes {
		parent, ok := kg.ParentID(n.ID)
		if !ok {
			continue
		}
		if _, exists := idx[parent]; !exists {
			continue
		}
		if subTopic[edge{parent, n.ID}] {
			continue
		}
		g.Links = append(g.Links, kg.NewSubTopicLink(parent, n.ID))
		subTopic[edge{parent, n.ID}] = true
		hasParent[n.ID] = true
		out.StructuralAdded++
	}

	orphans := []int{}
	for i, n := range g.Nodes {
		if kg.Depth(n.ID) > 0 && !hasParent[n.ID] {
			orphans = append(orphans, i)
		}
	}
	out.Orphans = len(orphans)

	if len(orphans) > 0 && !in.SkipSemantic {
		m, err := nodeMatrix(ctx, deps.Embedder, g.Nodes, in.BatchSize)
		if err != nil {
			return out, fmt.Errorf("repair_orphans: %w", err)
		}
		linked := g.LinkedPairs()
		for _, i := range orphans {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			child := g.Nodes[i].ID
			depth := kg.Depth(child)
			found := false
			for _, nb := range m.Ranked(i, cfg.ParentThreshold) {
				cand := g.Nodes[nb.Index].ID
				if kg.Depth(cand) >= depth || linked[kg.Pair(cand, child)] {
					continue
				}
				l := kg.NewSubTopicLink(cand, child)
				s := nb.Score
				l.SimilarityScore = &s
				g.Links = append(g.Links, l)
				linked[kg.Pair(cand, child)] = true
				out.SemanticAdded++
				out.Assignments = append(out.Assignments, ParentAssignment{Child: child, Parent: cand, Similarity: nb.Score})
				found = true
				break
			}
			if !found {
				out.Unresolved = append(out.Unresolved, child)
			}
		}
	} else {
		for _, i := range orphans {
			out.Unresolved = append(out.Unresolved, g.Nodes[i].ID)
		}
	}

	out.Graph = g
	log.Info("hierarchy orphans repaired",
		"structural_added", out.StructuralAdded,
		"orphans", out.Orphans,
		"semantic_added", out.SemanticAdded,
		"unresolved", len(out.Unresolved),
	)
	return out, nil
}
