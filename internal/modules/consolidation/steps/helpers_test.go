package steps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

// vectorEmbedder returns fixed vectors keyed by node text; unknown texts fall back
// to keyword hashing.
func vectorEmbedder(vecs map[string][]float32) *embed.StaticProvider {
	p := embed.NewStaticProvider(4)
	p.Vectors = vecs
	return p
}

func node(id, name string) types.Node {
	return types.Node{ID: id, Name: name, URLs: []string{}}
}

func link(src, dst, typ string) types.Link {
	return types.Link{Source: src, Target: dst, Type: typ, URLs: []string{}}
}

func testLog() *logger.Logger { return logger.Nop() }

func defaults() config.Engine { return config.Default() }

func countType(g types.Graph, typ string) int {
	n := 0
	for _, l := range g.Links {
		if l.Type == typ {
			n++
		}
	}
	return n
}

func hasLink(g types.Graph, src, dst, typ string) bool {
	for _, l := range g.Links {
		if l.Source == src && l.Target == dst && l.Type == typ {
			return true
		}
	}
	return false
}

func requireNoDangling(t *testing.T, g types.Graph) {
	t.Helper()
	idx := g.NodeIndex()
	for _, l := range g.Links {
		_, okS := idx[l.Source]
		_, okT := idx[l.Target]
		require.Truef(t, okS && okT, "dangling link %s -> %s", l.Source, l.Target)
	}
}

func requireDegreeAtMost(t *testing.T, g types.Graph, max int) {
	t.Helper()
	deg := map[string]int{}
	for _, l := range g.Links {
		if l.Type != types.LinkSemanticallySimilar {
			continue
		}
		deg[l.Source]++
		deg[l.Target]++
	}
	for id, d := range deg {
		require.LessOrEqualf(t, d, max, "node %s has %d semantic links", id, d)
	}
}

func requireSymmetricOnce(t *testing.T, g types.Graph) {
	t.Helper()
	seen := map[types.PairKey]bool{}
	for _, l := range g.Links {
		if l.Type != types.LinkSemanticallySimilar {
			continue
		}
		pk := kg.Pair(l.Source, l.Target)
		require.Falsef(t, seen[pk], "pair %v carries more than one semantic link", pk)
		seen[pk] = true
	}
}
