package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/cluster"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/naming"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type BuildClustersDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
	// Namer defaults to keyword naming.
	Namer naming.Namer
}

type BuildClustersInput struct {
	Graph     types.Graph
	Config    config.ClusterConfig
	BatchSize int
}

type ClusterReport struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int    `json:"size"`
	NameSource string `json:"name_source"`
}

type BuildClustersOutput struct {
	Graph           types.Graph     `json:"-"`
	Clusters        []ClusterReport `json:"clusters"`
	Kept            int             `json:"kept"`
	DroppedSmall    int             `json:"dropped_small"`
	Unclustered     int             `json:"unclustered"`
	NamedByService  int             `json:"named_by_service"`
	NamedByKeywords int             `json:"named_by_keywords"`
}

// BuildClusters replaces high_level_topics with average-linkage clusters cut at
// distance 1 - SimilarityThreshold. Clusters below MinSize are not topics; their
// members stay ordinary nodes.
func BuildClusters(ctx context.Context, deps BuildClustersDeps, in BuildClustersInput) (BuildClustersOutput, error) {
	out := BuildClustersOutput{Clusters: []ClusterReport{}}
	if deps.Log == nil || deps.Embedder == nil {
		return out, fmt.Errorf("build_clusters: missing deps")
	}
	log := deps.Log.With("stage", "build_clusters")
	cfg := in.Config
	g := in.Graph.Clone()
	namer := deps.Namer
	if namer == nil {
		namer = naming.KeywordNamer{Words: 3}
	}

	var groups [][]int
	if len(g.Nodes) > 0 {
		m, err := nodeMatrix(ctx, deps.Embedder, g.Nodes, in.BatchSize)
		if err != nil {
			return out, fmt.Errorf("build_clusters: %w", err)
		}
		merges := cluster.AverageLinkage(m.Len(), func(i, j int) float64 {
			if !m.Comparable(i, j) {
				return 2
			}
			return 1 - m.At(i, j)
		})
		groups = cluster.Cut(m.Len(), merges, 1-cfg.SimilarityThreshold)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	kept := make([][]int, 0, len(groups))
	for _, grp := range groups {
		if len(grp) < cfg.MinSize {
			out.DroppedSmall++
			out.Unclustered += len(grp)
			continue
		}
		kept = append(kept, grp)
	}
	sort.SliceStable(kept, func(a, b int) bool {
		if len(kept[a]) != len(kept[b]) {
			return len(kept[a]) > len(kept[b])
		}
		return kept[a][0] < kept[b][0]
	})

	summaries := make([]naming.Summary, len(kept))
	for ci, grp := range kept {
		s := naming.Summary{Names: make([]string, len(grp)), Texts: make([]string, len(grp))}
		for k, idx := range grp {
			s.Names[k] = g.Nodes[idx].Name
			s.Texts[k] = g.Nodes[idx].Description
		}
		summaries[ci] = s
	}
	results := namer.Name(ctx, summaries)
	if len(results) != len(summaries) {
		log.Warn("namer returned wrong result count; using keyword names", "want", len(summaries), "got", len(results))
		results = naming.KeywordNamer{Words: 3}.Name(ctx, summaries)
	}
	names := naming.Dedupe(results)

	topics := make([]types.HighLevelTopic, 0, len(kept))
	for ci, grp := range kept {
		t := types.HighLevelTopic{
			ID:        fmt.Sprintf("topic-%d", ci+1),
			Name:      names[ci].Name,
			SubTopics: make([]string, len(grp)),
		}
		for k, idx := range grp {
			t.SubTopics[k] = g.Nodes[idx].ID
		}
		topics = append(topics, t)
		out.Clusters = append(out.Clusters, ClusterReport{ID: t.ID, Name: t.Name, Size: len(grp), NameSource: names[ci].Source})
		if names[ci].Source == naming.SourceService {
			out.NamedByService++
		} else {
			out.NamedByKeywords++
		}
	}
	g.HighLevelTopics = topics
	out.Kept = len(topics)
	out.Graph = g

	log.Info("clusters built",
		"nodes", len(g.Nodes),
		"kept", out.Kept,
		"dropped_small", out.DroppedSmall,
		"unclustered", out.Unclustered,
		"named_by_service", out.NamedByService,
	)
	return out, nil
}
