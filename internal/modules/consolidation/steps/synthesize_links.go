package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/textsim"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type SynthesizeLinksDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
}

type SynthesizeLinksInput struct {
	Graph     types.Graph
	Config    config.LinkConfig
	BatchSize int
}

type SynthesizeLinksOutput struct {
	Graph             types.Graph `json:"-"`
	Nodes             int         `json:"nodes"`
	Candidates        int         `json:"candidates"`
	Added             int         `json:"added"`
	SkippedExisting   int         `json:"skipped_existing"`
	SkippedHierarchy  int         `json:"skipped_hierarchy"`
	SkippedKeyword    int         `json:"skipped_keyword"`
	SkippedCapped     int         `json:"skipped_capped"`
	InvalidEmbeddings int         `json:"invalid_embeddings"`
}

// SynthesizeLinks proposes semantically_similar edges from embedding similarity.
//
// For each node in order, neighbors at or above the minimum similarity are walked
// best first. Hierarchically related nodes and, when enabled, nodes sharing no
// keyword are passed over; the first K remaining neighbors are the candidates. A
// candidate becomes an edge unless the pair is already linked (any type, either
// direction) or either endpoint has reached the degree cap. Existing
// semantically_similar edges count toward the cap, so re-running on the output adds
// nothing.
func SynthesizeLinks(ctx context.Context, deps SynthesizeLinksDeps, in SynthesizeLinksInput) (SynthesizeLinksOutput, error) {
	out := SynthesizeLinksOutput{}
	if deps.Log == nil || deps.Embedder == nil {
		return out, fmt.Errorf("synthesize_links: missing deps")
	}
	log := deps.Log.With("stage", "synthesize_links")
	cfg := in.Config
	g := in.Graph.Clone()
	out.Nodes = len(g.Nodes)
	if len(g.Nodes) < 2 {
		out.Graph = g
		return out, nil
	}

	m, err := nodeMatrix(ctx, deps.Embedder, g.Nodes, in.BatchSize)
	if err != nil {
		return out, fmt.Errorf("synthesize_links: %w", err)
	}
	out.InvalidEmbeddings = invalidCount(m)

	idx := g.NodeIndex()
	linked := g.LinkedPairs()
	degree := semanticDegrees(g, idx)

	var keywords []map[string]bool
	if cfg.KeywordFilter {
		keywords = make([]map[string]bool, len(g.Nodes))
		for i, n := range g.Nodes {
			keywords[i] = textsim.Keywords(kg.Text(n))
		}
	}

	for i := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !m.Valid(i) || degree[i] >= cfg.DegreeCap {
			continue
		}
		src := g.Nodes[i].ID
		taken := 0
		for _, nb := range m.Ranked(i, cfg.MinSimilarity) {
			if taken >= cfg.TopK || degree[i] >= cfg.DegreeCap {
				break
			}
			j := nb.Index
			dst := g.Nodes[j].ID
			if kg.HierarchicallyRelated(src, dst) {
				out.SkippedHierarchy++
				continue
			}
			if keywords != nil && !textsim.SharesKeyword(keywords[i], keywords[j]) {
				out.SkippedKeyword++
				continue
			}
			taken++
			out.Candidates++
			pk := kg.Pair(src, dst)
			if linked[pk] {
				out.SkippedExisting++
				continue
			}
			if degree[j] >= cfg.DegreeCap {
				out.SkippedCapped++
				continue
			}
			g.Links = append(g.Links, kg.NewSemanticLink(src, dst, nb.Score))
			linked[pk] = true
			degree[i]++
			degree[j]++
			out.Added++
		}
	}

	out.Graph = g
	log.Info("semantic links synthesized",
		"nodes", out.Nodes,
		"candidates", out.Candidates,
		"added", out.Added,
		"skipped_existing", out.SkippedExisting,
		"skipped_hierarchy", out.SkippedHierarchy,
		"skipped_keyword", out.SkippedKeyword,
		"skipped_capped", out.SkippedCapped,
		"invalid_embeddings", out.InvalidEmbeddings,
	)
	return out, nil
}
