package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
)

func TestPruneLinksCapsAndDropsHierarchy(t *testing.T) {
	g := types.Graph{
		Nodes: []types.Node{node("X", "x"), node("A", "a"), node("B", "b"), node("C", "c"), node("D", "d"), node("1.1", "e"), node("1.2", "f")},
		Links: []types.Link{
			kg.NewSemanticLink("X", "A", 0.9),
			kg.NewSemanticLink("X", "B", 0.6),
			kg.NewSemanticLink("C", "X", 0.8),
			kg.NewSemanticLink("X", "D", 0.7),
			kg.NewSemanticLink("1.1", "1.2", 0.95),
			link("X", "1.1", types.LinkSubTopic),
		},
	}
	out, err := PruneLinks(context.Background(), PruneLinksDeps{Log: testLog()}, PruneLinksInput{Graph: g, Config: config.PruneConfig{MaxPerNode: 3}})
	require.NoError(t, err)
	require.Equal(t, 5, out.SemanticBefore)
	require.Equal(t, 3, out.SemanticAfter)
	require.Equal(t, 1, out.RemovedHierarchy)
	require.Equal(t, 1, out.RemovedOverCap)
	require.False(t, hasLink(out.Graph, "X", "B", types.LinkSemanticallySimilar), "weakest link goes")
	require.True(t, hasLink(out.Graph, "X", "1.1", types.LinkSubTopic))
	requireDegreeAtMost(t, out.Graph, 3)

	// Document order is kept.
	require.Equal(t, "A", out.Graph.Links[0].Target)
	require.Equal(t, "C", out.Graph.Links[1].Source)
}

func TestPruneLinksPrefersCrossTopic(t *testing.T) {
	g := types.Graph{
		Nodes: []types.Node{node("X", "x"), node("A", "a"), node("B", "b")},
		Links: []types.Link{
			kg.NewSemanticLink("X", "A", 0.95),
			kg.NewSemanticLink("X", "B", 0.5),
		},
		HighLevelTopics: []types.HighLevelTopic{
			{ID: "t1", Name: "One", SubTopics: []string{"X", "A"}},
			{ID: "t2", Name: "Two", SubTopics: []string{"B"}},
		},
	}
	out, err := PruneLinks(context.Background(), PruneLinksDeps{Log: testLog()}, PruneLinksInput{Graph: g, Config: config.PruneConfig{MaxPerNode: 1}})
	require.NoError(t, err)
	require.True(t, hasLink(out.Graph, "X", "B", types.LinkSemanticallySimilar))
	require.False(t, hasLink(out.Graph, "X", "A", types.LinkSemanticallySimilar))
	require.Equal(t, 1, out.CrossTopic)
	require.Zero(t, out.WithinTopic)
}
