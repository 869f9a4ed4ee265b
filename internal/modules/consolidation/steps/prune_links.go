package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type PruneLinksDeps struct {
	Log *logger.Logger
}

type PruneLinksInput struct {
	Graph  types.Graph
	Config config.PruneConfig
}

type PruneLinksOutput struct {
	Graph            types.Graph `json:"-"`
	SemanticBefore   int         `json:"semantic_before"`
	SemanticAfter    int         `json:"semantic_after"`
	RemovedHierarchy int         `json:"removed_hierarchy"`
	RemovedOverCap   int         `json:"removed_over_cap"`
	CrossTopic       int         `json:"cross_topic"`
	WithinTopic      int         `json:"within_topic"`
}

// PruneLinks thins semantically_similar links. Links that duplicate the id hierarchy
// are removed, then each node keeps at most MaxPerNode semantic links, preferring
// links that cross topic boundaries and then higher similarity. Other link types are
// untouched and surviving links keep their document order.
func PruneLinks(ctx context.Context, deps PruneLinksDeps, in PruneLinksInput) (PruneLinksOutput, error) {
	out := PruneLinksOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("prune_links: missing deps")
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	log := deps.Log.With("stage", "prune_links")
	g := in.Graph.Clone()
	maxPer := in.Config.MaxPerNode

	topicOf := g.TopicOf()
	clusterOf := func(id string) string {
		if ti, ok := topicOf[id]; ok {
			return g.HighLevelTopics[ti].ID
		}
		return id
	}

	type candidate struct {
		at    int
		cross bool
		score float64
	}
	cands := []candidate{}
	drop := map[int]bool{}
	for i, l := range g.Links {
		if l.Type != types.LinkSemanticallySimilar {
			continue
		}
		out.SemanticBefore++
		if kg.HierarchicallyRelated(l.Source, l.Target) {
			drop[i] = true
			out.RemovedHierarchy++
			continue
		}
		cross := len(g.HighLevelTopics) > 0 && clusterOf(l.Source) != clusterOf(l.Target)
		cands = append(cands, candidate{at: i, cross: cross, score: score(l)})
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].cross != cands[b].cross {
			return cands[a].cross
		}
		return cands[a].score > cands[b].score
	})

	count := map[string]int{}
	for _, c := range cands {
		l := g.Links[c.at]
		if count[l.Source] >= maxPer || count[l.Target] >= maxPer {
			drop[c.at] = true
			out.RemovedOverCap++
			continue
		}
		count[l.Source]++
		count[l.Target]++
		if c.cross {
			out.CrossTopic++
		} else {
			out.WithinTopic++
		}
	}

	links := make([]types.Link, 0, len(g.Links)-len(drop))
	for i, l := range g.Links {
		if drop[i] {
			continue
		}
		links = append(links, l)
	}
	g.Links = links
	out.SemanticAfter = out.SemanticBefore - out.RemovedHierarchy - out.RemovedOverCap
	out.Graph = g

	log.Info("semantic links pruned",
		"before", out.SemanticBefore,
		"after", out.SemanticAfter,
		"removed_hierarchy", out.RemovedHierarchy,
		"removed_over_cap", out.RemovedOverCap,
	)
	return out, nil
}
