package steps

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	types "github.com/yungbote/kgconsolidate/internal/domain"
)

func TestDedupeNodesMergesSameConcept(t *testing.T) {
	desc := "A mixer combines several audio signals into one output with per channel level control."
	a := types.Node{ID: "A", Name: "Mixer", Description: desc, URLs: []string{"https://a.example/1"}}
	b := types.Node{ID: "B", Name: "mixer ", Description: desc, URLs: []string{"https://b.example/1", "https://a.example/1"}}
	c := node("C", "Audio")
	g := types.Graph{
		Nodes: []types.Node{a, c, b},
		Links: []types.Link{
			link("C", "B", types.LinkSubTopic),
			link("A", "B", types.LinkExtends),
		},
	}

	out, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: g, Config: defaults().Dedupe})
	require.NoError(t, err)
	require.Equal(t, 1, out.Groups)
	require.Equal(t, 1, out.Merged)
	require.Zero(t, out.Renamed)
	require.Zero(t, out.Discarded)

	require.Len(t, out.Graph.Nodes, 2)
	kept := out.Graph.Nodes[out.Graph.NodeIndex()["B"]]
	require.Equal(t, "B", kept.ID, "more urls win canonical")
	require.ElementsMatch(t, []string{"https://a.example/1", "https://b.example/1"}, kept.URLs)

	require.Len(t, out.Graph.Links, 1, "A->B became a self loop and is dropped")
	require.Equal(t, "C", out.Graph.Links[0].Source)
	require.Equal(t, "B", out.Graph.Links[0].Target)
	require.Equal(t, 1, out.LinksDropped)
	requireNoDangling(t, out.Graph)

	// Input is not touched.
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Links, 2)
}

func TestDedupeNodesMergeAppendsDistinctDescriptions(t *testing.T) {
	cfg := defaults().Dedupe
	cfg.MergeThreshold = 0
	g := types.Graph{Nodes: []types.Node{
		{ID: "1", Name: "Gain", Description: "Gain is amplification of a signal measured in decibels."},
		{ID: "2", Name: "gain", Description: "Staging gain between devices."},
	}}
	out, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: g, Config: cfg})
	require.NoError(t, err)
	require.Len(t, out.Graph.Nodes, 1)
	d := out.Graph.Nodes[0].Description
	require.True(t, strings.HasPrefix(d, "Gain is amplification"))
	require.Contains(t, d, "--- merged from 2 ---")
	require.Contains(t, d, "Staging gain between devices.")
}

func TestDedupeNodesAllEmptyDescriptionsMerge(t *testing.T) {
	g := types.Graph{
		Nodes: []types.Node{
			{ID: "x", Name: "Reverb", URLs: []string{"u1"}},
			{ID: "y", Name: "REVERB", URLs: []string{"u2"}},
			{ID: "z", Name: "reverb", URLs: []string{"u1", "u3"}},
		},
		HighLevelTopics: []types.HighLevelTopic{{ID: "t", Name: "Effects", SubTopics: []string{"x", "y", "z"}}},
	}
	out, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: g, Config: defaults().Dedupe})
	require.NoError(t, err)
	require.Equal(t, 2, out.Merged)
	require.Len(t, out.Graph.Nodes, 1)
	require.Equal(t, "z", out.Graph.Nodes[0].ID, "two urls beat one")
	require.Equal(t, []string{"u1", "u3", "u2"}, out.Graph.Nodes[0].URLs)
	require.Equal(t, []string{"z"}, out.Graph.HighLevelTopics[0].SubTopics)
	require.Equal(t, 1.0, out.Decisions[0].Similarity)
}

func TestDedupeNodesDisambiguates(t *testing.T) {
	long := "A filter removes or attenuates selected frequency bands from an electronic signal path."
	medium := "Photo effects applied to pictures before they are shared online."
	g := types.Graph{
		Nodes: []types.Node{
			{ID: "f1", Name: "Filter", Description: long},
			{ID: "f2", Name: "filter", Description: "Coffee paper."},
			{ID: "f3", Name: "FILTER", Description: medium},
			node("other", "Signal"),
		},
		Links: []types.Link{
			link("f2", "other", types.LinkExtends),
			link("other", "f3", types.LinkSubTopic),
		},
	}
	out, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: g, Config: defaults().Dedupe})
	require.NoError(t, err)
	require.Equal(t, 1, out.Renamed)
	require.Equal(t, 1, out.Discarded)
	require.Zero(t, out.Merged)
	require.Equal(t, DedupeActionDisambiguate, out.Decisions[0].Action)
	require.Less(t, out.Decisions[0].Similarity, 0.8)

	idx := out.Graph.NodeIndex()
	require.NotContains(t, idx, "f2")
	require.Equal(t, "Filter", out.Graph.Nodes[idx["f1"]].Name)
	require.Equal(t, "FILTER (Concept 1 - ID f3)", out.Graph.Nodes[idx["f3"]].Name)
	require.Equal(t, 1, out.LinksDropped)
	require.True(t, hasLink(out.Graph, "other", "f3", types.LinkSubTopic))
	requireNoDangling(t, out.Graph)

	// Renamed nodes no longer collide.
	again, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: out.Graph, Config: defaults().Dedupe})
	require.NoError(t, err)
	require.Zero(t, again.Groups)
}

func TestDedupeNodesKeepsLongThinDescriptions(t *testing.T) {
	// Short absolute length alone is not enough to discard.
	g := types.Graph{Nodes: []types.Node{
		{ID: "a", Name: "Bus", Description: "Signal routing path."},
		{ID: "b", Name: "bus", Description: "Public vehicle"},
	}}
	out, err := DedupeNodes(context.Background(), DedupeNodesDeps{Log: testLog()}, DedupeNodesInput{Graph: g, Config: defaults().Dedupe})
	require.NoError(t, err)
	require.Equal(t, 1, out.Renamed)
	require.Zero(t, out.Discarded)
}

func TestDedupeNodesMissingDeps(t *testing.T) {
	_, err := DedupeNodes(context.Background(), DedupeNodesDeps{}, DedupeNodesInput{})
	require.Error(t, err)
}
