package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

// Components returns the connected components of the undirected view of g as node
// indices. Members ascend; components are ordered by size, largest first, then by
// their lowest member.
func Components(g types.Graph) [][]int {
	adj := undirectedAdjacency(g, g.NodeIndex())
	seen := make([]bool, len(g.Nodes))
	out := [][]int{}
	for start := range g.Nodes {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []int{start}
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range adj[cur] {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				comp = append(comp, nb)
				queue = append(queue, nb)
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return len(out[a]) > len(out[b])
	})
	return out
}

type BridgeComponentsDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
}

type BridgeComponentsInput struct {
	Graph     types.Graph
	Config    config.RepairConfig
	BatchSize int
}

type Bridge struct {
	Size       int     `json:"size"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

type UnbridgedComponent struct {
	Size int    `json:"size"`
	Node string `json:"node"`
	// Best is the highest similarity found, if any node pair was comparable.
	Best *float64 `json:"best,omitempty"`
}

type BridgeComponentsOutput struct {
	Graph      types.Graph          `json:"-"`
	Components int                  `json:"components"`
	MainSize   int                  `json:"main_size"`
	Skipped    bool                 `json:"skipped"`
	Bridged    []Bridge             `json:"bridged"`
	Unbridged  []UnbridgedComponent `json:"unbridged"`
}

// BridgeComponents attaches every non-main component to the largest one through
// the single most similar (component node, main node) pair, when that similarity
// reaches BridgeThreshold. Nothing happens unless there are more than
// MinComponents components.
func BridgeComponents(ctx context.Context, deps BridgeComponentsDeps, in BridgeComponentsInput) (BridgeComponentsOutput, error) {
	out := BridgeComponentsOutput{Bridged: []Bridge{}, Unbridged: []UnbridgedComponent{}}
	if deps.Log == nil || deps.Embedder == nil {
		return out, fmt.Errorf("bridge_components: missing deps")
	}
	log := deps.Log.With("stage", "bridge_components")
	cfg := in.Config
	g := in.Graph.Clone()

	comps := Components(g)
	out.Components = len(comps)
	if len(comps) > 0 {
		out.MainSize = len(comps[0])
	}
	if len(comps) <= cfg.MinComponents || len(comps) < 2 {
		out.Skipped = true
		out.Graph = g
		log.Info("graph well connected; nothing to bridge", "components", out.Components)
		return out, nil
	}

	m, err := nodeMatrix(ctx, deps.Embedder, g.Nodes, in.BatchSize)
	if err != nil {
		return out, fmt.Errorf("bridge_components: %w", err)
	}

	main := comps[0]
	for _, comp := range comps[1:] {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cm := m.Cross(comp, main)
		ci, mi, sim, ok := cm.Best()
		if !ok {
			out.Unbridged = append(out.Unbridged, UnbridgedComponent{Size: len(comp), Node: g.Nodes[comp[0]].ID})
			continue
		}
		src, dst := g.Nodes[comp[ci]].ID, g.Nodes[main[mi]].ID
		if sim < cfg.BridgeThreshold {
			best := sim
			out.Unbridged = append(out.Unbridged, UnbridgedComponent{Size: len(comp), Node: src, Best: &best})
			continue
		}
		g.Links = append(g.Links, kg.NewSemanticLink(src, dst, sim))
		out.Bridged = append(out.Bridged, Bridge{Size: len(comp), Source: src, Target: dst, Similarity: sim})
	}

	out.Graph = g
	log.Info("components bridged",
		"components", out.Components,
		"main_size", out.MainSize,
		"bridged", len(out.Bridged),
		"unbridged", len(out.Unbridged),
	)
	for _, u := range out.Unbridged {
		log.Debug("component left unbridged", "size", u.Size, "node", u.Node)
	}
	return out, nil
}
