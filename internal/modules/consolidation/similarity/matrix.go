package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	// SelfSentinel sits on the diagonal, below any real cosine score.
	SelfSentinel = -1.0
	// Excluded marks pairs involving a vector that could not be normalized.
	Excluded = -2.0
)

// Matrix is a dense symmetric cosine similarity matrix over unit vectors. It is
// read-only once built.
type Matrix struct {
	n     int
	data  []float64
	valid []bool
}

type Neighbor struct {
	Index int
	Score float64
}

// Normalize L2-normalizes each vector. Empty, zero and non-finite vectors come back
// nil with valid=false.
func Normalize(vecs [][]float32) ([][]float64, []bool) {
	unit := make([][]float64, len(vecs))
	valid := make([]bool, len(vecs))
	for i, v := range vecs {
		if len(v) == 0 {
			continue
		}
		var ss float64
		for _, x := range v {
			ss += float64(x) * float64(x)
		}
		if ss <= 0 || math.IsNaN(ss) || math.IsInf(ss, 0) {
			continue
		}
		norm := math.Sqrt(ss)
		u := make([]float64, len(v))
		for j, x := range v {
			u[j] = float64(x) / norm
		}
		unit[i] = u
		valid[i] = true
	}
	return unit, valid
}

func dimension(unit [][]float64, valid []bool) (int, error) {
	dim := -1
	for i, u := range unit {
		if !valid[i] {
			continue
		}
		if dim < 0 {
			dim = len(u)
			continue
		}
		if len(u) != dim {
			return 0, fmt.Errorf("similarity: vector %d has dimension %d, expected %d", i, len(u), dim)
		}
	}
	return dim, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Build computes the full N×N matrix. Rows are filled concurrently.
func Build(ctx context.Context, vecs [][]float32) (*Matrix, error) {
	unit, valid := Normalize(vecs)
	if _, err := dimension(unit, valid); err != nil {
		return nil, err
	}
	n := len(vecs)
	m := &Matrix{n: n, data: make([]float64, n*n), valid: valid}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m.data[i*n+i] = SelfSentinel
			for j := i + 1; j < n; j++ {
				s := Excluded
				if valid[i] && valid[j] {
					s = clamp(dot(unit[i], unit[j]))
				}
				m.data[i*n+j] = s
				m.data[j*n+i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

func (m *Matrix) Len() int { return m.n }

func (m *Matrix) Valid(i int) bool { return m.valid[i] }

// At returns S[i][j]. The diagonal holds SelfSentinel and pairs with an invalid
// vector hold Excluded.
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Comparable reports whether (i, j) carries a real similarity.
func (m *Matrix) Comparable(i, j int) bool {
	return i != j && m.valid[i] && m.valid[j]
}

// Ranked returns every comparable neighbor of i with score >= min, best first.
// Equal scores keep enumeration order.
func (m *Matrix) Ranked(i int, min float64) []Neighbor {
	if i < 0 || i >= m.n || !m.valid[i] {
		return nil
	}
	out := make([]Neighbor, 0, 16)
	row := m.data[i*m.n : (i+1)*m.n]
	for j, s := range row {
		if !m.Comparable(i, j) {
			continue
		}
		if s >= min {
			out = append(out, Neighbor{Index: j, Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// TopK returns at most k neighbors of i with score >= min.
func (m *Matrix) TopK(i, k int, min float64) []Neighbor {
	if k <= 0 {
		return nil
	}
	r := m.Ranked(i, min)
	if len(r) > k {
		r = r[:k]
	}
	return r
}

// Cross slices the rows in a against the columns in b.
func (m *Matrix) Cross(a, b []int) *CrossMatrix {
	c := &CrossMatrix{
		rows:   len(a),
		cols:   len(b),
		data:   make([]float64, len(a)*len(b)),
		validA: make([]bool, len(a)),
		validB: make([]bool, len(b)),
	}
	for x, i := range a {
		c.validA[x] = m.valid[i]
		for y, j := range b {
			s := Excluded
			if m.Comparable(i, j) {
				s = m.At(i, j)
			}
			c.data[x*c.cols+y] = s
		}
	}
	for y, j := range b {
		c.validB[y] = m.valid[j]
	}
	return c
}
