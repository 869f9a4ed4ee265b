package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/similarity"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/textsim"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type AnalyzeDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
}

type AnalyzeInput struct {
	Graph     types.Graph
	Config    config.AnalysisConfig
	BatchSize int
}

type AnalyzeOutput struct {
	Nodes                int                        `json:"nodes"`
	Similarity           similarity.Stats           `json:"similarity"`
	Cooccurrence         textsim.CooccurrenceReport `json:"keyword_cooccurrence"`
	LowSimilarityParents []ParentSimilarity         `json:"low_similarity_parents"`
}

// ParentSimilarity is a dot-path parent and child whose embeddings disagree.
type ParentSimilarity struct {
	Parent string  `json:"parent"`
	Child  string  `json:"child"`
	Score  float64 `json:"score"`
}

// Analyze reports the similarity distribution and keyword overlap of a graph, the
// inputs for choosing link and merge thresholds. The graph is not modified.
func Analyze(ctx context.Context, deps AnalyzeDeps, in AnalyzeInput) (AnalyzeOutput, error) {
	out := AnalyzeOutput{Nodes: len(in.Graph.Nodes)}
	if deps.Log == nil || deps.Embedder == nil {
		return out, fmt.Errorf("analyze: missing deps")
	}
	log := deps.Log.With("stage", "analyze")
	m, err := nodeMatrix(ctx, deps.Embedder, in.Graph.Nodes, in.BatchSize)
	if err != nil {
		return out, fmt.Errorf("analyze: %w", err)
	}
	out.Similarity = similarity.Distribution(m)
	out.Cooccurrence = textsim.CooccurrenceSample(nodeTexts(in.Graph.Nodes), in.Config.CooccurrencePairs, in.Config.Seed)
	out.LowSimilarityParents = lowSimilarityParents(in.Graph, m, in.Config.ParentFloor)
	log.Info("similarity analyzed",
		"nodes", out.Nodes,
		"pairs", out.Similarity.Pairs,
		"mean", out.Similarity.Mean,
		"keyword_rate", out.Cooccurrence.Rate,
		"low_similarity_parents", len(out.LowSimilarityParents),
	)
	return out, nil
}

// lowSimilarityParents lists every child whose dot-path parent exists and scores
// below floor against it, weakest first. Pairs without usable vectors are skipped.
func lowSimilarityParents(g types.Graph, m *similarity.Matrix, floor float64) []ParentSimilarity {
	idx := g.NodeIndex()
	out := []ParentSimilarity{}
	for i, n := range g.Nodes {
		parent, ok := kg.ParentID(n.ID)
		if !ok {
			continue
		}
		j, ok := idx[parent]
		if !ok || !m.Comparable(i, j) {
			continue
		}
		if s := m.At(i, j); s < floor {
			out = append(out, ParentSimilarity{Parent: parent, Child: n.ID, Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out
}

type DegreeBin struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type GraphStats struct {
	Nodes            int            `json:"nodes"`
	Links            int            `json:"links"`
	LinksByType      map[string]int `json:"links_by_type"`
	DegreeMin        int            `json:"degree_min"`
	DegreeMax        int            `json:"degree_max"`
	DegreeMean       float64        `json:"degree_mean"`
	DegreeMedian     float64        `json:"degree_median"`
	DegreeBins       []DegreeBin    `json:"degree_bins"`
	Isolated         int            `json:"isolated"`
	Components       int            `json:"components"`
	LargestComponent int            `json:"largest_component"`
	Topics           int            `json:"topics"`
	NodesInTopics    int            `json:"nodes_in_topics"`
	Orphans          int            `json:"orphans"`
	Conflicts        int            `json:"conflicts"`
	DuplicateNames   []NameGroup    `json:"duplicate_names"`
	TopInDegree      []NodeDegree   `json:"top_in_degree"`
}

// NameGroup is every node id whose normalized name is Name.
type NameGroup struct {
	Name string   `json:"name"`
	IDs  []string `json:"ids"`
}

type NodeDegree struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InDegree int    `json:"in_degree"`
}

const topInDegree = 10

var degreeBuckets = []struct {
	label    string
	low, max int
}{
	{"0-2", 0, 2}, {"3-5", 3, 5}, {"6-10", 6, 10}, {"11-20", 11, 20}, {"21-100", 21, 100}, {"100+", 101, -1},
}

// Stats summarizes the structure of g. Degree counts every link touching a node;
// orphans are nodes whose dot-path parent exists without a "sub topic" link to them.
func Stats(g types.Graph) GraphStats {
	st := GraphStats{Nodes: len(g.Nodes), Links: len(g.Links), LinksByType: map[string]int{}}
	idx := g.NodeIndex()
	deg := make([]int, len(g.Nodes))
	in := make([]int, len(g.Nodes))
	subTopic := map[types.PairKey]bool{}
	for _, l := range g.Links {
		st.LinksByType[l.Type]++
		if i, ok := idx[l.Source]; ok {
			deg[i]++
		}
		if j, ok := idx[l.Target]; ok {
			deg[j]++
			in[j]++
		}
		if l.Type == types.LinkSubTopic {
			subTopic[types.PairKey{A: l.Source, B: l.Target}] = true
		}
	}

	st.DegreeBins = make([]DegreeBin, len(degreeBuckets))
	for i, b := range degreeBuckets {
		st.DegreeBins[i].Label = b.label
	}
	if len(deg) > 0 {
		sorted := append([]int(nil), deg...)
		sort.Ints(sorted)
		st.DegreeMin = sorted[0]
		st.DegreeMax = sorted[len(sorted)-1]
		sum := 0
		for _, d := range sorted {
			sum += d
			if d == 0 {
				st.Isolated++
			}
			for i, b := range degreeBuckets {
				if d >= b.low && (b.max < 0 || d <= b.max) {
					st.DegreeBins[i].Count++
					break
				}
			}
		}
		st.DegreeMean = float64(sum) / float64(len(sorted))
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			st.DegreeMedian = float64(sorted[mid])
		} else {
			st.DegreeMedian = float64(sorted[mid-1]+sorted[mid]) / 2
		}
	}

	comps := Components(g)
	st.Components = len(comps)
	if len(comps) > 0 {
		st.LargestComponent = len(comps[0])
	}
	st.Topics = len(g.HighLevelTopics)
	st.NodesInTopics = len(g.TopicOf())
	for _, n := range g.Nodes {
		parent, ok := kg.ParentID(n.ID)
		if !ok {
			continue
		}
		if _, exists := idx[parent]; exists && !subTopic[types.PairKey{A: parent, B: n.ID}] {
			st.Orphans++
		}
	}
	st.Conflicts = len(FindConflicts(g))
	st.DuplicateNames = duplicateNames(g)
	st.TopInDegree = topByInDegree(g, in, topInDegree)
	return st
}

func duplicateNames(g types.Graph) []NameGroup {
	byName := map[string][]string{}
	order := []string{}
	for _, n := range g.Nodes {
		key := kg.NormalizedName(n.Name)
		if key == "" {
			continue
		}
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = append(byName[key], n.ID)
	}
	out := []NameGroup{}
	for _, key := range order {
		if len(byName[key]) > 1 {
			out = append(out, NameGroup{Name: key, IDs: byName[key]})
		}
	}
	return out
}

// topByInDegree returns up to k nodes with incoming links, highest first and
// document order among ties.
func topByInDegree(g types.Graph, in []int, k int) []NodeDegree {
	out := []NodeDegree{}
	for i, n := range g.Nodes {
		if in[i] > 0 {
			out = append(out, NodeDegree{ID: n.ID, Name: n.Name, InDegree: in[i]})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].InDegree > out[b].InDegree })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
