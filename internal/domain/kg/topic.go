package kg

import (
	"encoding/json"
	"fmt"
)

// HighLevelTopic is a derived grouping over existing nodes.
type HighLevelTopic struct {
	ID        string
	Name      string
	SubTopics []string
	Extra     map[string]json.RawMessage
}

func (t HighLevelTopic) MarshalJSON() ([]byte, error) {
	subs := t.SubTopics
	if subs == nil {
		subs = []string{}
	}
	return marshalFields([]field{
		{"id", t.ID},
		{"name", t.Name},
		{"sub_topics", subs},
	}, t.Extra)
}

func (t *HighLevelTopic) UnmarshalJSON(data []byte) error {
	known, extra, err := splitFields(data, "id", "name", "sub_topics")
	if err != nil {
		return err
	}
	out := HighLevelTopic{Extra: extra}
	if out.ID, err = decodeID(known["id"]); err != nil {
		return fmt.Errorf("topic: %w", err)
	}
	if out.Name, err = decodeString(known["name"]); err != nil {
		return fmt.Errorf("topic %s name: %w", out.ID, err)
	}
	if raw, ok := known["sub_topics"]; ok {
		var ids []json.RawMessage
		if err := json.Unmarshal(raw, &ids); err != nil {
			return fmt.Errorf("topic %s sub_topics: %w", out.ID, err)
		}
		out.SubTopics = make([]string, 0, len(ids))
		for _, r := range ids {
			id, err := decodeID(r)
			if err != nil {
				return fmt.Errorf("topic %s sub_topics: %w", out.ID, err)
			}
			out.SubTopics = append(out.SubTopics, id)
		}
	} else {
		out.SubTopics = []string{}
	}
	*t = out
	return nil
}

func (t HighLevelTopic) Clone() HighLevelTopic {
	out := t
	out.SubTopics = append([]string{}, t.SubTopics...)
	out.Extra = cloneExtra(t.Extra)
	return out
}
