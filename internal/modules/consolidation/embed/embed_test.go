package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
)

type countingProvider struct {
	calls []int
	short bool
}

func (c *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, len(texts))
	n := len(texts)
	if c.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func TestBatchSplitsAndKeepsOrder(t *testing.T) {
	p := &countingProvider{}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := Batch(context.Background(), p, texts, 2)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(p.calls) != 3 || p.calls[0] != 2 || p.calls[2] != 1 {
		t.Fatalf("unexpected batches: %v", p.calls)
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Fatalf("vector %d out of order", i)
		}
	}
}

func TestBatchCountMismatch(t *testing.T) {
	_, err := Batch(context.Background(), &countingProvider{short: true}, []string{"a", "b"}, 8)
	if !errors.Is(err, domain.ErrEmbeddingCount) {
		t.Fatalf("expected ErrEmbeddingCount, got %v", err)
	}
	if _, err := Batch(context.Background(), nil, []string{"a"}, 8); !errors.Is(err, domain.ErrNoEmbedder) {
		t.Fatalf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(64)
	p.Vectors = map[string][]float32{"Fixed": {1, 2}}
	vecs, err := Nodes(context.Background(), p, []kg.Node{
		{Name: "Mixer", Description: "audio mixing desk"},
		{Name: "Mixer", Description: "audio mixing desk"},
		{Name: "Fixed"},
		{Name: "a"},
	}, 2)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			t.Fatalf("same text must embed identically")
		}
	}
	if len(vecs[2]) != 2 || vecs[2][1] != 2 {
		t.Fatalf("fixed vector not used: %v", vecs[2])
	}
	var sum float32
	for _, x := range vecs[3] {
		sum += x
	}
	if sum != 0 {
		t.Fatalf("keyword-free text should embed to zero")
	}
}

func TestCacheEmbedsEachTextOnce(t *testing.T) {
	p := &countingProvider{}
	c := NewCache(p)
	ctx := context.Background()
	if _, err := c.Embed(ctx, []string{"a", "bb", "a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	vecs, err := c.Embed(ctx, []string{"bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(p.calls) != 2 || p.calls[0] != 2 || p.calls[1] != 1 {
		t.Fatalf("unexpected provider calls: %v", p.calls)
	}
	if int(vecs[0][0]) != 2 || int(vecs[1][0]) != 3 {
		t.Fatalf("cached vectors out of order: %v", vecs)
	}
	if c.Misses() != 3 {
		t.Fatalf("expected 3 misses, got %d", c.Misses())
	}
}
