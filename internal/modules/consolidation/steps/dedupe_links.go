package steps

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type Resolution string

const (
	ResolveKeepFirst  Resolution = "keep_first"
	ResolveKeepLast   Resolution = "keep_last"
	ResolveDeleteBoth Resolution = "delete_both"
	ResolveKeepAll    Resolution = "keep_all"
)

func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(s))); r {
	case ResolveKeepFirst, ResolveKeepLast, ResolveDeleteBoth, ResolveKeepAll:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resolution %q (want keep_first, keep_last, delete_both or keep_all)", s)
	}
}

// Conflict is a node pair joined by links of more than one type.
type Conflict struct {
	A     string       `json:"a"`
	B     string       `json:"b"`
	Types []string     `json:"types"`
	Links []types.Link `json:"links"`
}

func (c Conflict) Pair() types.PairKey { return kg.Pair(c.A, c.B) }

type DedupeLinksDeps struct {
	Log *logger.Logger
}

type DedupeLinksInput struct {
	Graph types.Graph
}

type DedupeLinksOutput struct {
	Graph               types.Graph `json:"-"`
	Before              int         `json:"before"`
	After               int         `json:"after"`
	ExactDuplicates     int         `json:"exact_duplicates"`
	ReversedCollapsed   int         `json:"reversed_collapsed"`
	MarkedBidirectional int         `json:"marked_bidirectional"`
	Conflicts           []Conflict  `json:"conflicts"`
}

type typedPair struct {
	pair types.PairKey
	typ  string
}

// DedupeLinks collapses links that repeat the same relationship. Same type and same
// direction is an exact duplicate; same type in the opposite direction is folded into
// the first-seen edge, which becomes bidirectional. Links of different types between
// one pair are never collapsed; they come back as conflicts.
func DedupeLinks(ctx context.Context, deps DedupeLinksDeps, in DedupeLinksInput) (DedupeLinksOutput, error) {
	out := DedupeLinksOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("dedupe_links: missing deps")
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	log := deps.Log.With("stage", "dedupe_links")
	g := in.Graph.Clone()
	out.Before = len(g.Links)

	kept := make([]types.Link, 0, len(g.Links))
	first := map[typedPair]int{}
	for _, l := range g.Links {
		key := typedPair{pair: kg.Pair(l.Source, l.Target), typ: l.Type}
		at, seen := first[key]
		if !seen {
			first[key] = len(kept)
			kept = append(kept, l)
			continue
		}
		k := &kept[at]
		k.URLs = unionStrings(k.URLs, l.URLs...)
		if l.SimilarityScore != nil && (k.SimilarityScore == nil || *l.SimilarityScore > *k.SimilarityScore) {
			v := *l.SimilarityScore
			k.SimilarityScore = &v
		}
		if k.Source == l.Source {
			out.ExactDuplicates++
			if l.Bidirectional() && !k.Bidirectional() {
				setBidirectional(k)
			}
			continue
		}
		out.ReversedCollapsed++
		if !k.Bidirectional() {
			setBidirectional(k)
			out.MarkedBidirectional++
		}
	}
	for i := range kept {
		if kept[i].Type == types.LinkSemanticallySimilar && kept[i].IsBidirectional == nil {
			setBidirectional(&kept[i])
			out.MarkedBidirectional++
		}
	}
	g.Links = kept
	out.After = len(kept)
	out.Conflicts = FindConflicts(g)
	out.Graph = g

	log.Info("link dedup done",
		"before", out.Before,
		"after", out.After,
		"exact_duplicates", out.ExactDuplicates,
		"reversed_collapsed", out.ReversedCollapsed,
		"conflicts", len(out.Conflicts),
	)
	for _, c := range out.Conflicts {
		log.Warn("conflicting link types", "a", c.A, "b", c.B, "types", strings.Join(c.Types, ","))
	}
	return out, nil
}

func setBidirectional(l *types.Link) {
	b := true
	l.IsBidirectional = &b
}

// FindConflicts lists every pair with links of more than one type, in order of the
// pair's first link.
func FindConflicts(g types.Graph) []Conflict {
	byPair := map[types.PairKey][]types.Link{}
	order := []types.PairKey{}
	for _, l := range g.Links {
		pk := kg.Pair(l.Source, l.Target)
		if _, ok := byPair[pk]; !ok {
			order = append(order, pk)
		}
		byPair[pk] = append(byPair[pk], l.Clone())
	}
	out := []Conflict{}
	for _, pk := range order {
		links := byPair[pk]
		if len(links) < 2 {
			continue
		}
		typs := []string{}
		for _, l := range links {
			typs = append(typs, l.Type)
		}
		typs = dedupeStrings(typs)
		if len(typs) < 2 {
			continue
		}
		out = append(out, Conflict{A: links[0].Source, B: links[0].Target, Types: typs, Links: links})
	}
	return out
}

// ResolveConflict applies a resolution to every link between the conflict's pair.
// keep_first and keep_last keep one link by document order.
func ResolveConflict(g types.Graph, c Conflict, r Resolution) (types.Graph, int, error) {
	switch r {
	case ResolveKeepFirst, ResolveKeepLast, ResolveDeleteBoth, ResolveKeepAll:
	default:
		return g, 0, fmt.Errorf("resolve_conflict: unknown resolution %q", r)
	}
	out := g.Clone()
	if r == ResolveKeepAll {
		return out, 0, nil
	}
	pk := c.Pair()
	matches := []int{}
	for i, l := range out.Links {
		if kg.Pair(l.Source, l.Target) == pk {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return out, 0, fmt.Errorf("resolve_conflict: no links between %s and %s", c.A, c.B)
	}
	keep := -1
	switch r {
	case ResolveKeepFirst:
		keep = matches[0]
	case ResolveKeepLast:
		keep = matches[len(matches)-1]
	}
	links := make([]types.Link, 0, len(out.Links))
	removed := 0
	for i, l := range out.Links {
		if kg.Pair(l.Source, l.Target) == pk && i != keep {
			removed++
			continue
		}
		links = append(links, l)
	}
	out.Links = links
	return out, removed, nil
}
