package steps

import (
	"fmt"
	"strconv"
	"strings"

	types "github.com/yungbote/kgconsolidate/internal/domain"
)

type IDResolution string

const (
	IDKeepFirst IDResolution = "keep_first"
	IDKeepLast  IDResolution = "keep_last"
	IDMerge     IDResolution = "merge"
	IDReassign  IDResolution = "reassign"
)

func ParseIDResolution(s string) (IDResolution, error) {
	switch r := IDResolution(strings.ToLower(strings.TrimSpace(s))); r {
	case IDKeepFirst, IDKeepLast, IDMerge, IDReassign:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resolution %q (want keep_first, keep_last, merge or reassign)", s)
	}
}

// ResolveDuplicateID settles every node carrying group.ID. keep_first and keep_last
// keep one node by document order, merge folds the others into the first, and
// reassign gives each later node a fresh id. Links and topic members keep pointing
// at group.ID. The count is nodes removed, or nodes renumbered for reassign.
func ResolveDuplicateID(g types.Graph, group types.DuplicateIDGroup, r IDResolution) (types.Graph, int, error) {
	switch r {
	case IDKeepFirst, IDKeepLast, IDMerge, IDReassign:
	default:
		return g, 0, fmt.Errorf("resolve_duplicate_id: unknown resolution %q", r)
	}
	out := g.Clone()
	matches := []int{}
	for i, n := range out.Nodes {
		if n.ID == group.ID {
			matches = append(matches, i)
		}
	}
	if len(matches) < 2 {
		return out, 0, fmt.Errorf("resolve_duplicate_id: id %q is not repeated", group.ID)
	}

	if r == IDReassign {
		taken := make(map[string]bool, len(out.Nodes))
		for _, n := range out.Nodes {
			taken[n.ID] = true
		}
		for _, idx := range matches[1:] {
			id := nextFreeID(group.ID, taken)
			taken[id] = true
			out.Nodes[idx].ID = id
		}
		return out, len(matches) - 1, nil
	}

	keep := matches[0]
	if r == IDKeepLast {
		keep = matches[len(matches)-1]
	}
	if r == IDMerge {
		mergeInto(&out.Nodes[keep], out.Nodes, matches[1:])
	}
	nodes := make([]types.Node, 0, len(out.Nodes)-len(matches)+1)
	for i, n := range out.Nodes {
		if n.ID == group.ID && i != keep {
			continue
		}
		nodes = append(nodes, n)
	}
	out.Nodes = nodes
	return out, len(matches) - 1, nil
}

// nextFreeID bumps the last dotted segment of id until the result is unused.
// A non-numeric last segment gets a ".1" child instead.
func nextFreeID(id string, taken map[string]bool) string {
	prefix, last := "", id
	if i := strings.LastIndex(id, "."); i >= 0 {
		prefix, last = id[:i+1], id[i+1:]
	}
	n, err := strconv.Atoi(last)
	if err != nil || n < 0 {
		prefix, n = id+".", 0
	}
	for {
		n++
		cand := prefix + strconv.Itoa(n)
		if !taken[cand] {
			return cand
		}
	}
}
