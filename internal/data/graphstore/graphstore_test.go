package graphstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/platform/gcp"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type memObjects struct{ data map[string][]byte }

func (m *memObjects) Read(_ context.Context, uri string) ([]byte, error) {
	b, ok := m.data[uri]
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return b, nil
}

func (m *memObjects) Write(_ context.Context, uri string, data []byte, _ string) error {
	m.data[uri] = append([]byte{}, data...)
	return nil
}

func (m *memObjects) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memObjects) Close() error { return nil }

const doc = `{
  "nodes": [{"id": 1, "name": "Audio", "color": "red"}, {"id": "2", "name": "Video"}, {"name": "no id"}],
  "links": [{"source": 1, "target": "2", "type": "extends"}, {"source": "1", "target": "9", "type": "extends"}],
  "high_level_topics": [{"id": "t", "name": "Media", "sub_topics": ["1", "9"]}],
  "version": 3
}`

func TestLoadSanitizesAndSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(logger.Nop(), nil)
	ctx := context.Background()

	g, rep, err := s.Load(ctx, in)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Links) != 1 || rep.NodesDropped != 1 || rep.LinksDangling != 1 || rep.TopicRefsFixed != 1 {
		t.Fatalf("unexpected sanitize result: nodes=%d links=%d report=%+v", len(g.Nodes), len(g.Links), rep)
	}

	out := filepath.Join(dir, "nested", "out.json")
	if err := s.Save(ctx, out, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"color": "red"`, `"version": 3`, `"id": "1"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("saved document missing %s:\n%s", want, raw)
		}
	}
	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}

	again, rep2, err := s.Load(ctx, out)
	if err != nil || rep2.Total() != 0 || len(again.Nodes) != 2 {
		t.Fatalf("reload: %v %+v", err, rep2)
	}
}

func TestObjectStorageLocations(t *testing.T) {
	objects := &memObjects{data: map[string][]byte{}}
	s := New(logger.Nop(), objects)
	ctx := context.Background()
	g := types.Graph{Nodes: []types.Node{{ID: "a", Name: "A"}}}

	if err := s.Save(ctx, "gs://bucket/graphs/a.json", g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _, err := s.Load(ctx, "gs://bucket/graphs/a.json")
	if err != nil || len(got.Nodes) != 1 || got.Nodes[0].ID != "a" {
		t.Fatalf("Load: %v %+v", err, got)
	}

	bare := New(logger.Nop(), nil)
	if _, _, err := bare.Load(ctx, "gs://bucket/graphs/a.json"); err == nil {
		t.Fatalf("expected error without object storage")
	}
}

func TestLoadRawKeepsMalformedRecords(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := New(logger.Nop(), nil).LoadRaw(context.Background(), in)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if len(g.Links) != 2 {
		t.Fatalf("links=%d want 2", len(g.Links))
	}
	_, rep := g.Sanitize()
	if rep.LinksDangling != 1 || rep.NodesDropped != 1 {
		t.Fatalf("report=%+v", rep)
	}
}
