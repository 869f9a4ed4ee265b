package steps

import (
	"testing"

	"github.com/stretchr/testify/require"

	types "github.com/yungbote/kgconsolidate/internal/domain"
)

func duplicateIDGraph() types.Graph {
	return types.Graph{
		Nodes: []types.Node{
			{ID: "1", Name: "Mixer", Description: "console", URLs: []string{"u1"}},
			{ID: "2", Name: "Reverb", URLs: []string{}},
			{ID: "1", Name: "Compressor", Description: "dynamics processor for audio", URLs: []string{"u2"}},
		},
		Links: []types.Link{link("2", "1", types.LinkExtends)},
	}
}

func TestResolveDuplicateID(t *testing.T) {
	groups := duplicateIDGraph().DuplicateIDs()
	require.Len(t, groups, 1)
	group := groups[0]

	t.Run("keep_first", func(t *testing.T) {
		out, removed, err := ResolveDuplicateID(duplicateIDGraph(), group, IDKeepFirst)
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		require.Len(t, out.Nodes, 2)
		require.Equal(t, "Mixer", out.Nodes[out.NodeIndex()["1"]].Name)
	})

	t.Run("keep_last", func(t *testing.T) {
		out, removed, err := ResolveDuplicateID(duplicateIDGraph(), group, IDKeepLast)
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		require.Len(t, out.Nodes, 2)
		require.Equal(t, "Compressor", out.Nodes[out.NodeIndex()["1"]].Name)
	})

	t.Run("merge", func(t *testing.T) {
		out, removed, err := ResolveDuplicateID(duplicateIDGraph(), group, IDMerge)
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		require.Len(t, out.Nodes, 2)
		merged := out.Nodes[out.NodeIndex()["1"]]
		require.Equal(t, "Mixer", merged.Name)
		require.Equal(t, []string{"u1", "u2"}, merged.URLs)
		require.Contains(t, merged.Description, "console")
		require.Contains(t, merged.Description, "dynamics processor for audio")
	})

	t.Run("reassign", func(t *testing.T) {
		out, renumbered, err := ResolveDuplicateID(duplicateIDGraph(), group, IDReassign)
		require.NoError(t, err)
		require.Equal(t, 1, renumbered)
		require.Len(t, out.Nodes, 3)
		require.Equal(t, "1", out.Nodes[0].ID)
		// "2" is taken, so the last segment moves on to 3.
		require.Equal(t, "3", out.Nodes[2].ID)
		require.Equal(t, "Compressor", out.Nodes[2].Name)
		require.Empty(t, out.DuplicateIDs())
		require.True(t, hasLink(out, "2", "1", types.LinkExtends))
	})

	t.Run("input untouched", func(t *testing.T) {
		in := duplicateIDGraph()
		_, _, err := ResolveDuplicateID(in, group, IDMerge)
		require.NoError(t, err)
		require.Len(t, in.Nodes, 3)
		require.Equal(t, []string{"u1"}, in.Nodes[0].URLs)
	})
}

func TestResolveDuplicateIDRejects(t *testing.T) {
	g := duplicateIDGraph()
	_, _, err := ResolveDuplicateID(g, types.DuplicateIDGroup{ID: "2"}, IDKeepFirst)
	require.Error(t, err)
	_, _, err = ResolveDuplicateID(g, types.DuplicateIDGroup{ID: "1"}, IDResolution("drop"))
	require.Error(t, err)

	_, err = ParseIDResolution("nope")
	require.Error(t, err)
	r, err := ParseIDResolution(" Reassign ")
	require.NoError(t, err)
	require.Equal(t, IDReassign, r)
}

func TestNextFreeID(t *testing.T) {
	taken := map[string]bool{"1.2": true, "1.3": true, "misc": true}
	require.Equal(t, "1.4", nextFreeID("1.2", taken))
	require.Equal(t, "misc.1", nextFreeID("misc", taken))
	require.Equal(t, "7", nextFreeID("6", taken))
}
