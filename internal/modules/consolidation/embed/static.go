package embed

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/textsim"
)

// StaticProvider is an offline bag-of-keywords embedder: each keyword is hashed into
// one of Dim buckets. Texts sharing vocabulary get high cosine scores. Texts with no
// keywords embed to the zero vector.
type StaticProvider struct {
	Dim int
	// Vectors, when set, wins over hashing for exact text matches.
	Vectors map[string][]float32
}

func NewStaticProvider(dim int) *StaticProvider {
	if dim <= 0 {
		dim = 256
	}
	return &StaticProvider{Dim: dim}
}

func (s *StaticProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if v, ok := s.Vectors[t]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		out[i] = s.hash(t)
	}
	return out, nil
}

func (s *StaticProvider) hash(text string) []float32 {
	dim := s.Dim
	if dim <= 0 {
		dim = 256
	}
	v := make([]float32, dim)
	for w := range textsim.Keywords(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32()%uint32(dim))] += 1
	}
	return v
}
