package kg

import (
	"encoding/json"
	"fmt"
	"io"
)

// Graph is one snapshot of the concept graph. Node order is meaningful: it is the
// enumeration order used to break ties between equally scored candidates.
type Graph struct {
	Nodes           []Node
	Links           []Link
	HighLevelTopics []HighLevelTopic
	Extra           map[string]json.RawMessage
}

func (g Graph) MarshalJSON() ([]byte, error) {
	nodes := g.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	links := g.Links
	if links == nil {
		links = []Link{}
	}
	fields := []field{{"nodes", nodes}, {"links", links}}
	if g.HighLevelTopics != nil {
		fields = append(fields, field{"high_level_topics", g.HighLevelTopics})
	}
	return marshalFields(fields, g.Extra)
}

func (g *Graph) UnmarshalJSON(data []byte) error {
	known, extra, err := splitFields(data, "nodes", "links", "high_level_topics")
	if err != nil {
		return err
	}
	out := Graph{Extra: extra, Nodes: []Node{}, Links: []Link{}}
	if raw, ok := known["nodes"]; ok {
		if err := json.Unmarshal(raw, &out.Nodes); err != nil {
			return fmt.Errorf("nodes: %w", err)
		}
	}
	if raw, ok := known["links"]; ok {
		if err := json.Unmarshal(raw, &out.Links); err != nil {
			return fmt.Errorf("links: %w", err)
		}
	}
	if raw, ok := known["high_level_topics"]; ok {
		if err := json.Unmarshal(raw, &out.HighLevelTopics); err != nil {
			return fmt.Errorf("high_level_topics: %w", err)
		}
		if out.HighLevelTopics == nil {
			out.HighLevelTopics = []HighLevelTopic{}
		}
	}
	*g = out
	return nil
}

// Decode reads a graph document.
func Decode(r io.Reader) (Graph, error) {
	var g Graph
	dec := json.NewDecoder(r)
	if err := dec.Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode graph: %w", err)
	}
	return g, nil
}

// Encode writes a graph document with two-space indentation.
func Encode(w io.Writer, g Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// Clone deep copies the graph so a stage can work without aliasing its input.
func (g Graph) Clone() Graph {
	out := Graph{Extra: cloneExtra(g.Extra)}
	out.Nodes = make([]Node, len(g.Nodes))
	for i := range g.Nodes {
		out.Nodes[i] = g.Nodes[i].Clone()
	}
	out.Links = make([]Link, len(g.Links))
	for i := range g.Links {
		out.Links[i] = g.Links[i].Clone()
	}
	if g.HighLevelTopics != nil {
		out.HighLevelTopics = make([]HighLevelTopic, len(g.HighLevelTopics))
		for i := range g.HighLevelTopics {
			out.HighLevelTopics[i] = g.HighLevelTopics[i].Clone()
		}
	}
	return out
}

// NodeIndex maps node id to its position in Nodes.
func (g Graph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = i
		}
	}
	return idx
}

// LinkedPairs returns every unordered pair joined by at least one link of any type.
func (g Graph) LinkedPairs() map[PairKey]bool {
	out := make(map[PairKey]bool, len(g.Links))
	for _, l := range g.Links {
		out[Pair(l.Source, l.Target)] = true
	}
	return out
}

type SanitizeReport struct {
	NodesDropped   int `json:"nodes_dropped"`
	DuplicateIDs   int `json:"duplicate_ids"`
	LinksDangling  int `json:"links_dangling"`
	LinksSelfLoops int `json:"links_self_loops"`
	TopicRefsFixed int `json:"topic_refs_fixed"`

	// DuplicateGroups lists every node that shared an id, the dropped ones included.
	DuplicateGroups []DuplicateIDGroup `json:"duplicate_id_groups,omitempty"`
}

// DuplicateIDGroup is every node carrying one id, in document order.
type DuplicateIDGroup struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
}

// DuplicateIDs groups the nodes that share a non-empty id, ordered by first occurrence.
func (g Graph) DuplicateIDs() []DuplicateIDGroup {
	byID := map[string][]Node{}
	order := []string{}
	for _, n := range g.Nodes {
		if n.ID == "" {
			continue
		}
		if _, ok := byID[n.ID]; !ok {
			order = append(order, n.ID)
		}
		byID[n.ID] = append(byID[n.ID], n.Clone())
	}
	var out []DuplicateIDGroup
	for _, id := range order {
		if len(byID[id]) > 1 {
			out = append(out, DuplicateIDGroup{ID: id, Nodes: byID[id]})
		}
	}
	return out
}

func (r SanitizeReport) Total() int {
	return r.NodesDropped + r.DuplicateIDs + r.LinksDangling + r.LinksSelfLoops + r.TopicRefsFixed
}

// Sanitize returns a copy of g without nodes lacking an id, without repeated ids
// (first occurrence wins), without links whose endpoints are missing or equal, and
// with topic members restricted to existing nodes. Every removal is counted, and
// repeated ids are reported with all of their nodes.
func (g Graph) Sanitize() (Graph, SanitizeReport) {
	rep := SanitizeReport{}
	out := Graph{Extra: cloneExtra(g.Extra)}
	seen := make(map[string]bool, len(g.Nodes))
	out.Nodes = make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			rep.NodesDropped++
			continue
		}
		if seen[n.ID] {
			rep.DuplicateIDs++
			continue
		}
		seen[n.ID] = true
		out.Nodes = append(out.Nodes, n.Clone())
	}
	if rep.DuplicateIDs > 0 {
		rep.DuplicateGroups = g.DuplicateIDs()
	}
	out.Links = make([]Link, 0, len(g.Links))
	for _, l := range g.Links {
		if !seen[l.Source] || !seen[l.Target] {
			rep.LinksDangling++
			continue
		}
		if l.Source == l.Target {
			rep.LinksSelfLoops++
			continue
		}
		out.Links = append(out.Links, l.Clone())
	}
	if g.HighLevelTopics != nil {
		out.HighLevelTopics = make([]HighLevelTopic, 0, len(g.HighLevelTopics))
		for _, t := range g.HighLevelTopics {
			c := t.Clone()
			kept := c.SubTopics[:0]
			for _, id := range c.SubTopics {
				if seen[id] {
					kept = append(kept, id)
				} else {
					rep.TopicRefsFixed++
				}
			}
			c.SubTopics = kept
			out.HighLevelTopics = append(out.HighLevelTopics, c)
		}
	}
	return out, rep
}

// TopicOf maps node id to the index of the first high-level topic listing it.
func (g Graph) TopicOf() map[string]int {
	out := map[string]int{}
	for ti, t := range g.HighLevelTopics {
		for _, id := range t.SubTopics {
			if _, ok := out[id]; !ok {
				out[id] = ti
			}
		}
	}
	return out
}
