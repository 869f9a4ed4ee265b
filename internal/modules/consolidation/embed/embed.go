package embed

import (
	"context"
	"fmt"

	"github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
)

// Provider maps texts to fixed-length vectors; vector i must belong to texts[i].
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const DefaultBatchSize = 64

// Batch calls the provider synchronously in bounded batches. Any provider error or
// count mismatch fails the whole call.
func Batch(ctx context.Context, p Provider, texts []string, batchSize int) ([][]float32, error) {
	if p == nil {
		return nil, domain.ErrNoEmbedder
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors: %w", start, end, len(vecs), domain.ErrEmbeddingCount)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Nodes embeds kg.Text of every node, in node order.
func Nodes(ctx context.Context, p Provider, nodes []kg.Node, batchSize int) ([][]float32, error) {
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = kg.Text(n)
	}
	return Batch(ctx, p, texts, batchSize)
}
