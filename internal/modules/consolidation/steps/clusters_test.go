package steps

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/naming"
)

func clusterGraph() (types.Graph, map[string][]float32) {
	g := types.Graph{}
	vecs := map[string][]float32{}
	add := func(id, name string, v []float32) {
		g.Nodes = append(g.Nodes, node(id, name))
		vecs[name] = v
	}
	add("a1", "neural network basics", []float32{1, 0, 0, 0})
	add("b1", "reverb tails", []float32{0, 1, 0, 0})
	add("a2", "neural network training", []float32{0.95, 0.05, 0, 0})
	add("b2", "reverb plates", []float32{0.05, 0.95, 0, 0})
	add("a3", "neural network layers", []float32{0.9, 0, 0.1, 0})
	add("b3", "reverb rooms", []float32{0, 0.9, 0, 0.1})
	add("c1", "tax forms", []float32{0, 0, 0, 1})
	return g, vecs
}

type scriptedNamer struct {
	calls int
}

func (s *scriptedNamer) Name(_ context.Context, clusters []naming.Summary) []naming.Result {
	out := make([]naming.Result, len(clusters))
	for i := range clusters {
		s.calls++
		out[i] = naming.Result{Name: "Cluster Label", Source: naming.SourceService}
	}
	return out
}

func TestBuildClustersThresholdCut(t *testing.T) {
	g, vecs := clusterGraph()
	g.HighLevelTopics = []types.HighLevelTopic{{ID: "old", Name: "Old", SubTopics: []string{"c1"}}}
	out, err := BuildClusters(context.Background(), BuildClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs)}, BuildClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)

	require.Equal(t, 2, out.Kept)
	require.Equal(t, 1, out.DroppedSmall)
	require.Equal(t, 1, out.Unclustered)
	require.Equal(t, 2, out.NamedByKeywords)

	topics := out.Graph.HighLevelTopics
	require.Len(t, topics, 2)
	require.Equal(t, "topic-1", topics[0].ID)
	require.Equal(t, []string{"a1", "a2", "a3"}, topics[0].SubTopics)
	require.Equal(t, "topic-2", topics[1].ID)
	require.Equal(t, []string{"b1", "b2", "b3"}, topics[1].SubTopics)
	require.Contains(t, topics[0].Name, "Network")
	require.Contains(t, topics[1].Name, "Reverb")
	require.NotEqual(t, topics[0].Name, topics[1].Name)
	require.Len(t, out.Graph.Nodes, 7, "unclustered nodes stay in the graph")
}

func TestBuildClustersServiceNamesAreDeduplicated(t *testing.T) {
	g, vecs := clusterGraph()
	namer := &scriptedNamer{}
	out, err := BuildClusters(context.Background(), BuildClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs), Namer: namer}, BuildClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)
	require.Equal(t, 2, namer.calls)
	require.Equal(t, 2, out.NamedByService)
	require.Equal(t, "Cluster Label", out.Graph.HighLevelTopics[0].Name)
	require.Equal(t, "Cluster Label (2)", out.Graph.HighLevelTopics[1].Name)
}

type flakyGenerator struct{ n int }

func (f *flakyGenerator) GenerateText(_ context.Context, _ string, _ string) (string, error) {
	f.n++
	if f.n == 1 {
		return "Machine Learning Foundations", nil
	}
	return "", errors.New("503 service unavailable")
}

func TestBuildClustersNamingFallsBack(t *testing.T) {
	g, vecs := clusterGraph()
	namer := naming.NewServiceNamer(&flakyGenerator{}, testLog(), naming.ServiceOptions{RequestsPerMinute: 60000})
	out, err := BuildClusters(context.Background(), BuildClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs), Namer: namer}, BuildClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)
	require.Equal(t, 1, out.NamedByService)
	require.Equal(t, 1, out.NamedByKeywords)
	require.Equal(t, "Machine Learning Foundations", out.Graph.HighLevelTopics[0].Name)
	require.Contains(t, out.Graph.HighLevelTopics[1].Name, "Reverb")
}

func mergeGraph() (types.Graph, map[string][]float32) {
	g := types.Graph{}
	vecs := map[string][]float32{}
	large := types.HighLevelTopic{ID: "large", Name: "Large"}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("L%d", i)
		g.Nodes = append(g.Nodes, node(id, id))
		vecs[id] = []float32{1, 0.01 * float32(i), 0, 0}
		large.SubTopics = append(large.SubTopics, id)
	}
	near := types.HighLevelTopic{ID: "near", Name: "Near", SubTopics: []string{"N1", "N2"}}
	far := types.HighLevelTopic{ID: "far", Name: "Far", SubTopics: []string{"F1", "F2"}}
	for _, id := range []string{"N1", "N2"} {
		g.Nodes = append(g.Nodes, node(id, id))
		vecs[id] = []float32{0.9, 0.1, 0, 0}
	}
	for _, id := range []string{"F1", "F2"} {
		g.Nodes = append(g.Nodes, node(id, id))
		vecs[id] = []float32{0, 0, 1, 0}
	}
	g.HighLevelTopics = []types.HighLevelTopic{near, large, far}
	return g, vecs
}

func TestMergeSmallClusters(t *testing.T) {
	g, vecs := mergeGraph()
	out, err := MergeSmallClusters(context.Background(), MergeSmallClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs)}, MergeSmallClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)
	require.Equal(t, 2, out.Small)
	require.Equal(t, 1, out.Large)
	require.Equal(t, 1, out.Merged)
	require.Equal(t, 1, out.Kept)

	topics := out.Graph.HighLevelTopics
	require.Len(t, topics, 2)
	require.Equal(t, "large", topics[0].ID)
	require.Len(t, topics[0].SubTopics, 12)
	require.Equal(t, "far", topics[1].ID)
	require.Len(t, g.HighLevelTopics, 3, "input graph must not change")
}

func TestMergeSmallClustersOrderIndependent(t *testing.T) {
	g, vecs := mergeGraph()
	reversed := g.Clone()
	for i, j := 0, len(reversed.HighLevelTopics)-1; i < j; i, j = i+1, j-1 {
		reversed.HighLevelTopics[i], reversed.HighLevelTopics[j] = reversed.HighLevelTopics[j], reversed.HighLevelTopics[i]
	}
	deps := MergeSmallClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs)}
	a, err := MergeSmallClusters(context.Background(), deps, MergeSmallClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)
	b, err := MergeSmallClusters(context.Background(), deps, MergeSmallClustersInput{Graph: reversed, Config: defaults().Cluster})
	require.NoError(t, err)

	members := func(g types.Graph) map[string][]string {
		out := map[string][]string{}
		for _, t := range g.HighLevelTopics {
			out[t.ID] = t.SubTopics
		}
		return out
	}
	ma, mb := members(a.Graph), members(b.Graph)
	require.Len(t, mb, len(ma))
	for id, subs := range ma {
		require.ElementsMatch(t, subs, mb[id])
	}
}

func TestMergeSmallClustersSmallIntoSmallNever(t *testing.T) {
	g, vecs := mergeGraph()
	g.HighLevelTopics = g.HighLevelTopics[2:]
	g.HighLevelTopics = append(g.HighLevelTopics, types.HighLevelTopic{ID: "near", SubTopics: []string{"N1", "N2"}})
	out, err := MergeSmallClusters(context.Background(), MergeSmallClustersDeps{Log: testLog(), Embedder: vectorEmbedder(vecs)}, MergeSmallClustersInput{Graph: g, Config: defaults().Cluster})
	require.NoError(t, err)
	require.Zero(t, out.Merged)
	require.Len(t, out.Graph.HighLevelTopics, 2)
}
