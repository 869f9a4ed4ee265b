package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type MergeSmallClustersDeps struct {
	Log      *logger.Logger
	Embedder embed.Provider
}

type MergeSmallClustersInput struct {
	Graph     types.Graph
	Config    config.ClusterConfig
	BatchSize int
}

type ClusterMerge struct {
	From       string  `json:"from"`
	Into       string  `json:"into"`
	Similarity float64 `json:"similarity"`
	Moved      int     `json:"moved"`
	Merged     bool    `json:"merged"`
}

type MergeSmallClustersOutput struct {
	Graph  types.Graph    `json:"-"`
	Small  int            `json:"small"`
	Large  int            `json:"large"`
	Merged int            `json:"merged"`
	Kept   int            `json:"kept"`
	Report []ClusterMerge `json:"report"`
}

// MergeSmallClusters folds every topic with fewer than SmallSize members into the
// large topic with the best mean member similarity, when that mean reaches
// MergeThreshold. All means are computed against the topics as they were on input,
// so the result does not depend on topic order.
func MergeSmallClusters(ctx context.Context, deps MergeSmallClustersDeps, in MergeSmallClustersInput) (MergeSmallClustersOutput, error) {
	out := MergeSmallClustersOutput{Report: []ClusterMerge{}}
	if deps.Log == nil || deps.Embedder == nil {
		return out, fmt.Errorf("merge_small_clusters: missing deps")
	}
	log := deps.Log.With("stage", "merge_small_clusters")
	cfg := in.Config
	g := in.Graph.Clone()

	idx := g.NodeIndex()
	members := make([][]int, len(g.HighLevelTopics))
	small, large := []int{}, []int{}
	for ti, t := range g.HighLevelTopics {
		for _, id := range t.SubTopics {
			if i, ok := idx[id]; ok {
				members[ti] = append(members[ti], i)
			}
		}
		if len(t.SubTopics) < cfg.SmallSize {
			small = append(small, ti)
		} else {
			large = append(large, ti)
		}
	}
	out.Small, out.Large = len(small), len(large)
	if len(small) == 0 || len(large) == 0 {
		out.Kept = len(small)
		out.Graph = g
		log.Info("no small clusters to merge", "small", out.Small, "large", out.Large)
		return out, nil
	}

	m, err := nodeMatrix(ctx, deps.Embedder, g.Nodes, in.BatchSize)
	if err != nil {
		return out, fmt.Errorf("merge_small_clusters: %w", err)
	}

	type choice struct {
		into int
		sim  float64
		ok   bool
	}
	best := make([]choice, len(small))
	for si, s := range small {
		for _, l := range large {
			mean, ok := m.Cross(members[s], members[l]).Mean()
			if !ok {
				continue
			}
			if !best[si].ok || mean > best[si].sim {
				best[si] = choice{into: l, sim: mean, ok: true}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	remove := map[int]bool{}
	for si, s := range small {
		c := best[si]
		if !c.ok {
			out.Kept++
			continue
		}
		rep := ClusterMerge{From: g.HighLevelTopics[s].ID, Into: g.HighLevelTopics[c.into].ID, Similarity: c.sim}
		if c.sim < cfg.MergeThreshold {
			out.Kept++
			out.Report = append(out.Report, rep)
			continue
		}
		target := &g.HighLevelTopics[c.into]
		before := len(target.SubTopics)
		target.SubTopics = unionStrings(target.SubTopics, g.HighLevelTopics[s].SubTopics...)
		rep.Moved = len(target.SubTopics) - before
		rep.Merged = true
		remove[s] = true
		out.Merged++
		out.Report = append(out.Report, rep)
	}

	topics := make([]types.HighLevelTopic, 0, len(g.HighLevelTopics)-len(remove))
	for ti, t := range g.HighLevelTopics {
		if remove[ti] {
			continue
		}
		topics = append(topics, t)
	}
	g.HighLevelTopics = topics
	out.Graph = g

	log.Info("small clusters merged",
		"small", out.Small,
		"large", out.Large,
		"merged", out.Merged,
		"kept", out.Kept,
	)
	return out, nil
}
