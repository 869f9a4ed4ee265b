package kg

import (
	"encoding/json"
	"fmt"

	"github.com/yungbote/kgconsolidate/internal/pkg/pointers"
)

const (
	LinkSubTopic            = "sub topic"
	LinkSemanticallySimilar = "semantically_similar"
	LinkExtends             = "extends"
)

type Link struct {
	Source          string
	Target          string
	Type            string
	SimilarityScore *float64
	IsBidirectional *bool
	URLs            []string
	Extra           map[string]json.RawMessage
}

func (l Link) MarshalJSON() ([]byte, error) {
	urls := l.URLs
	if urls == nil {
		urls = []string{}
	}
	fields := []field{
		{"source", l.Source},
		{"target", l.Target},
		{"type", l.Type},
	}
	if l.SimilarityScore != nil {
		fields = append(fields, field{"similarity_score", *l.SimilarityScore})
	}
	if l.IsBidirectional != nil {
		fields = append(fields, field{"is_bidirectional", *l.IsBidirectional})
	}
	fields = append(fields, field{"urls", urls})
	return marshalFields(fields, l.Extra)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	known, extra, err := splitFields(data, "source", "target", "type", "similarity_score", "is_bidirectional", "urls")
	if err != nil {
		return err
	}
	out := Link{Extra: extra}
	if out.Source, err = decodeID(known["source"]); err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	if out.Target, err = decodeID(known["target"]); err != nil {
		return fmt.Errorf("link target: %w", err)
	}
	if out.Type, err = decodeString(known["type"]); err != nil {
		return fmt.Errorf("link %s->%s type: %w", out.Source, out.Target, err)
	}
	if raw, ok := known["similarity_score"]; ok {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("link %s->%s similarity_score: %w", out.Source, out.Target, err)
		}
		out.SimilarityScore = &f
	}
	if raw, ok := known["is_bidirectional"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("link %s->%s is_bidirectional: %w", out.Source, out.Target, err)
		}
		out.IsBidirectional = &b
	}
	if out.URLs, err = decodeStrings(known["urls"]); err != nil {
		return fmt.Errorf("link %s->%s urls: %w", out.Source, out.Target, err)
	}
	*l = out
	return nil
}

func (l Link) Clone() Link {
	out := l
	if l.SimilarityScore != nil {
		v := *l.SimilarityScore
		out.SimilarityScore = &v
	}
	if l.IsBidirectional != nil {
		v := *l.IsBidirectional
		out.IsBidirectional = &v
	}
	out.URLs = append([]string{}, l.URLs...)
	out.Extra = cloneExtra(l.Extra)
	return out
}

func (l Link) Bidirectional() bool {
	return pointers.Deref(l.IsBidirectional, false)
}

// NewSemanticLink builds a generated similarity edge. The edge is stored once and
// stands for both directions.
func NewSemanticLink(source, target string, score float64) Link {
	return Link{
		Source:          source,
		Target:          target,
		Type:            LinkSemanticallySimilar,
		SimilarityScore: pointers.Ptr(score),
		IsBidirectional: pointers.Ptr(true),
		URLs:            []string{},
	}
}

func NewSubTopicLink(parent, child string) Link {
	return Link{Source: parent, Target: child, Type: LinkSubTopic, URLs: []string{}}
}

// PairKey identifies the unordered endpoint pair of a link.
type PairKey struct {
	A, B string
}

func Pair(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}
