package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/textsim"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

const (
	DedupeActionMerge        = "merge"
	DedupeActionDisambiguate = "disambiguate"
)

type DedupeNodesDeps struct {
	Log *logger.Logger
}

type DedupeNodesInput struct {
	Graph  types.Graph
	Config config.DedupeConfig
}

// DedupeDecision records what happened to one group of same-named nodes.
type DedupeDecision struct {
	Name       string   `json:"name"`
	Canonical  string   `json:"canonical"`
	Action     string   `json:"action"`
	Similarity float64  `json:"similarity"`
	Merged     []string `json:"merged,omitempty"`
	Renamed    []string `json:"renamed,omitempty"`
	Discarded  []string `json:"discarded,omitempty"`
}

type DedupeNodesOutput struct {
	Graph          types.Graph      `json:"-"`
	Groups         int              `json:"groups"`
	Merged         int              `json:"merged"`
	Renamed        int              `json:"renamed"`
	Discarded      int              `json:"discarded"`
	LinksRemapped  int              `json:"links_remapped"`
	LinksDropped   int              `json:"links_dropped"`
	TopicRefsFixed int              `json:"topic_refs_fixed"`
	Decisions      []DedupeDecision `json:"decisions,omitempty"`
}

// DedupeNodes collapses nodes that share a normalized name. A group whose
// descriptions are all alike is merged into its best-documented member; otherwise
// each other member is renamed apart, or discarded when its description is too thin
// to stand on its own.
func DedupeNodes(ctx context.Context, deps DedupeNodesDeps, in DedupeNodesInput) (DedupeNodesOutput, error) {
	out := DedupeNodesOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("dedupe_nodes: missing deps")
	}
	log := deps.Log.With("stage", "dedupe_nodes")
	cfg := in.Config
	g := in.Graph.Clone()

	groups := map[string][]int{}
	order := []string{}
	for i, n := range g.Nodes {
		key := kg.NormalizedName(n.Name)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	remap := map[string]string{}
	discard := map[string]bool{}

	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		out.Groups++

		ranked := append([]int(nil), members...)
		sort.SliceStable(ranked, func(a, b int) bool {
			return canonicalScore(g.Nodes[ranked[a]]) > canonicalScore(g.Nodes[ranked[b]])
		})
		canon := ranked[0]

		descs := make([]string, len(ranked))
		for i, idx := range ranked {
			descs[i] = g.Nodes[idx].Description
		}
		sim := textsim.MinPairwise(descs)

		dec := DedupeDecision{Name: g.Nodes[canon].Name, Canonical: g.Nodes[canon].ID, Similarity: sim}
		if sim >= cfg.MergeThreshold {
			dec.Action = DedupeActionMerge
			mergeInto(&g.Nodes[canon], g.Nodes, ranked[1:])
			for _, idx := range ranked[1:] {
				remap[g.Nodes[idx].ID] = g.Nodes[canon].ID
				dec.Merged = append(dec.Merged, g.Nodes[idx].ID)
				out.Merged++
			}
		} else {
			dec.Action = DedupeActionDisambiguate
			canonLen := utf8.RuneCountInString(strings.TrimSpace(g.Nodes[canon].Description))
			for k, idx := range ranked[1:] {
				n := &g.Nodes[idx]
				l := utf8.RuneCountInString(strings.TrimSpace(n.Description))
				if l < cfg.DiscardFloor && float64(l) < cfg.DiscardRatio*float64(canonLen) {
					discard[n.ID] = true
					dec.Discarded = append(dec.Discarded, n.ID)
					out.Discarded++
					continue
				}
				n.Name = fmt.Sprintf("%s (Concept %d - ID %s)", n.Name, k+1, n.ID)
				dec.Renamed = append(dec.Renamed, n.ID)
				out.Renamed++
			}
		}
		out.Decisions = append(out.Decisions, dec)
	}

	if len(remap) == 0 && len(discard) == 0 {
		out.Graph = g
		log.Info("node dedup done", "groups", out.Groups, "renamed", out.Renamed)
		return out, nil
	}

	nodes := make([]types.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, merged := remap[n.ID]; merged || discard[n.ID] {
			continue
		}
		nodes = append(nodes, n)
	}
	g.Nodes = nodes

	links := make([]types.Link, 0, len(g.Links))
	for _, l := range g.Links {
		if discard[l.Source] || discard[l.Target] {
			out.LinksDropped++
			continue
		}
		changed := false
		if to, ok := remap[l.Source]; ok {
			l.Source = to
			changed = true
		}
		if to, ok := remap[l.Target]; ok {
			l.Target = to
			changed = true
		}
		if l.Source == l.Target {
			out.LinksDropped++
			continue
		}
		if changed {
			out.LinksRemapped++
		}
		links = append(links, l)
	}
	g.Links = links

	for ti := range g.HighLevelTopics {
		t := &g.HighLevelTopics[ti]
		subs := make([]string, 0, len(t.SubTopics))
		for _, id := range t.SubTopics {
			if discard[id] {
				out.TopicRefsFixed++
				continue
			}
			if to, ok := remap[id]; ok {
				id = to
				out.TopicRefsFixed++
			}
			subs = append(subs, id)
		}
		t.SubTopics = dedupeStrings(subs)
	}

	out.Graph = g
	log.Info("node dedup done",
		"groups", out.Groups,
		"merged", out.Merged,
		"renamed", out.Renamed,
		"discarded", out.Discarded,
		"links_remapped", out.LinksRemapped,
		"links_dropped", out.LinksDropped,
	)
	return out, nil
}

func canonicalScore(n types.Node) int {
	return utf8.RuneCountInString(strings.TrimSpace(n.Description)) + 10*len(n.URLs)
}

// mergeInto folds the nodes at idxs into canon: urls are unioned in rank order and
// any description text canon does not already contain is appended under a marker.
func mergeInto(canon *types.Node, nodes []types.Node, idxs []int) {
	desc := strings.TrimSpace(canon.Description)
	for _, idx := range idxs {
		other := nodes[idx]
		canon.URLs = unionStrings(canon.URLs, other.URLs...)
		d := strings.TrimSpace(other.Description)
		if d == "" || strings.Contains(desc, d) {
			continue
		}
		if desc == "" {
			desc = d
			continue
		}
		desc = desc + "\n\n--- merged from " + other.ID + " ---\n" + d
	}
	canon.Description = desc
}
