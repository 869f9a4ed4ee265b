package kg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is a topic or term in the concept graph. Fields this package does not know
// about are kept in Extra and written back unchanged.
type Node struct {
	ID          string
	Name        string
	Description string
	URLs        []string
	Extra       map[string]json.RawMessage
}

func (n Node) MarshalJSON() ([]byte, error) {
	urls := n.URLs
	if urls == nil {
		urls = []string{}
	}
	return marshalFields([]field{
		{"id", n.ID},
		{"name", n.Name},
		{"description", n.Description},
		{"urls", urls},
	}, n.Extra)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	known, extra, err := splitFields(data, "id", "name", "description", "urls")
	if err != nil {
		return err
	}
	out := Node{Extra: extra}
	if out.ID, err = decodeID(known["id"]); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if out.Name, err = decodeString(known["name"]); err != nil {
		return fmt.Errorf("node %s: name: %w", out.ID, err)
	}
	if out.Description, err = decodeString(known["description"]); err != nil {
		return fmt.Errorf("node %s: description: %w", out.ID, err)
	}
	if out.URLs, err = decodeStrings(known["urls"]); err != nil {
		return fmt.Errorf("node %s: urls: %w", out.ID, err)
	}
	*n = out
	return nil
}

func (n Node) Clone() Node {
	out := n
	out.URLs = append([]string{}, n.URLs...)
	out.Extra = cloneExtra(n.Extra)
	return out
}

// ExtraString returns an unrecognized string field, e.g. "source" or "category".
func (n Node) ExtraString(key string) string {
	raw, ok := n.Extra[key]
	if !ok {
		return ""
	}
	s, err := decodeString(raw)
	if err != nil {
		return ""
	}
	return s
}

// NormalizedName is the identity key used for duplicate detection.
func NormalizedName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Text is the string handed to the embedding provider for a node.
func Text(n Node) string {
	name := strings.TrimSpace(n.Name)
	desc := strings.TrimSpace(n.Description)
	switch {
	case desc == "":
		return name
	case name == "":
		return desc
	default:
		return name + ". " + desc
	}
}
