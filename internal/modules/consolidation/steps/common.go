package steps

import (
	"context"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/similarity"
)

// nodeMatrix embeds every node and builds the full similarity matrix.
func nodeMatrix(ctx context.Context, p embed.Provider, nodes []types.Node, batchSize int) (*similarity.Matrix, error) {
	vecs, err := embed.Nodes(ctx, p, nodes, batchSize)
	if err != nil {
		return nil, err
	}
	return similarity.Build(ctx, vecs)
}

func invalidCount(m *similarity.Matrix) int {
	n := 0
	for i := 0; i < m.Len(); i++ {
		if !m.Valid(i) {
			n++
		}
	}
	return n
}

// semanticDegrees counts semantically_similar links touching each node index.
func semanticDegrees(g types.Graph, idx map[string]int) []int {
	deg := make([]int, len(g.Nodes))
	for _, l := range g.Links {
		if l.Type != types.LinkSemanticallySimilar {
			continue
		}
		if i, ok := idx[l.Source]; ok {
			deg[i]++
		}
		if j, ok := idx[l.Target]; ok {
			deg[j]++
		}
	}
	return deg
}

// undirectedAdjacency lists neighbor indices per node over every link type.
func undirectedAdjacency(g types.Graph, idx map[string]int) [][]int {
	adj := make([][]int, len(g.Nodes))
	for _, l := range g.Links {
		i, okI := idx[l.Source]
		j, okJ := idx[l.Target]
		if !okI || !okJ || i == j {
			continue
		}
		adj[i] = append(adj[i], j)
		adj[j] = append(adj[j], i)
	}
	return adj
}

func score(l types.Link) float64 {
	if l.SimilarityScore == nil {
		return 0
	}
	return *l.SimilarityScore
}

func unionStrings(dst []string, src ...string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, s := range dst {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range src {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupeStrings(in []string) []string {
	return unionStrings(nil, in...)
}

func nodeTexts(nodes []types.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = kg.Text(n)
	}
	return out
}
