package similarity

import (
	"context"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuildSymmetricWithSentinel(t *testing.T) {
	vecs := [][]float32{{1, 0}, {1, 1}, {0, 2}, {0, 0}}
	m, err := Build(context.Background(), vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Len() != 4 {
		t.Fatalf("Len=%d", m.Len())
	}
	for i := 0; i < 4; i++ {
		if m.At(i, i) != SelfSentinel {
			t.Fatalf("diagonal %d = %v", i, m.At(i, i))
		}
		for j := 0; j < 4; j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Fatalf("not symmetric at %d,%d", i, j)
			}
		}
	}
	if !approx(m.At(0, 1), 1/math.Sqrt2) {
		t.Fatalf("S[0][1]=%v", m.At(0, 1))
	}
	if !approx(m.At(0, 2), 0) {
		t.Fatalf("S[0][2]=%v", m.At(0, 2))
	}
	if m.Valid(3) || m.At(0, 3) != Excluded {
		t.Fatalf("zero vector should fail closed: valid=%v s=%v", m.Valid(3), m.At(0, 3))
	}
	if got := m.TopK(3, 5, -1); len(got) != 0 {
		t.Fatalf("invalid row returned neighbors: %v", got)
	}
	for _, nb := range m.TopK(0, 5, -1) {
		if nb.Index == 3 || nb.Index == 0 {
			t.Fatalf("TopK leaked excluded/self index: %v", nb)
		}
	}
}

func TestBuildDimensionMismatch(t *testing.T) {
	if _, err := Build(context.Background(), [][]float32{{1, 0}, {1, 0, 0}}); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestTopKStableTies(t *testing.T) {
	vecs := [][]float32{{1, 0}, {1, 1}, {1, 1}, {1, -1}, {0, 1}}
	m, err := Build(context.Background(), vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := m.TopK(0, 3, 0.5)
	if len(got) != 3 {
		t.Fatalf("expected 3 neighbors, got %v", got)
	}
	if got[0].Index != 1 || got[1].Index != 2 || got[2].Index != 3 {
		t.Fatalf("ties must keep enumeration order: %v", got)
	}
	if got := m.TopK(0, 10, 0.8); len(got) != 0 {
		t.Fatalf("min threshold ignored: %v", got)
	}
}

func TestCrossBestAndMean(t *testing.T) {
	a := [][]float32{{1, 0}, {0, 1}}
	b := [][]float32{{0, 1}, {1, 1}, {0, 0}}
	c, err := Cross(a, b)
	if err != nil {
		t.Fatalf("Cross: %v", err)
	}
	i, j, s, ok := c.Best()
	if !ok || i != 1 || j != 0 || !approx(s, 1) {
		t.Fatalf("Best=(%d,%d,%v,%v)", i, j, s, ok)
	}
	mean, ok := c.Mean()
	want := (0 + 1/math.Sqrt2 + 1 + 1/math.Sqrt2) / 4
	if !ok || !approx(mean, want) {
		t.Fatalf("Mean=%v want %v", mean, want)
	}
}

func TestMatrixCrossMatchesRaw(t *testing.T) {
	vecs := [][]float32{{1, 0}, {1, 1}, {0, 1}, {-1, 0}}
	m, err := Build(context.Background(), vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := m.Cross([]int{0, 3}, []int{1, 2})
	raw, _ := Cross([][]float32{vecs[0], vecs[3]}, [][]float32{vecs[1], vecs[2]})
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !approx(c.At(i, j), raw.At(i, j)) {
				t.Fatalf("mismatch at %d,%d: %v vs %v", i, j, c.At(i, j), raw.At(i, j))
			}
		}
	}
}

func TestDistribution(t *testing.T) {
	vecs := [][]float32{{1, 0}, {1, 0}, {0, 1}, {0, 0}}
	m, err := Build(context.Background(), vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	st := Distribution(m)
	if st.Pairs != 3 || st.Excluded != 1 {
		t.Fatalf("pairs=%d excluded=%d", st.Pairs, st.Excluded)
	}
	if !approx(st.Max, 1) || !approx(st.Min, 0) {
		t.Fatalf("min/max=%v/%v", st.Min, st.Max)
	}
	total := 0
	for _, b := range st.Bins {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("bins hold %d values", total)
	}
	if st.Bins[len(st.Bins)-1].Count != 1 {
		t.Fatalf("1.0 must land in the last bin: %+v", st.Bins)
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{0, 1, 2, 3, 4}
	cases := map[float64]float64{0: 0, 50: 2, 90: 3.6, 100: 4}
	for p, want := range cases {
		if got := Percentile(vals, p); !approx(got, want) {
			t.Fatalf("Percentile(%v)=%v want %v", p, got, want)
		}
	}
}

func TestScoresKeepFullPrecision(t *testing.T) {
	m, err := Build(context.Background(), [][]float32{{3, 4}, {4, 3}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, b := 3.0, 4.0
	n := math.Sqrt(a*a + b*b)
	want := (a/n)*(b/n) + (b/n)*(a/n)
	if got := m.At(0, 1); got != want {
		t.Fatalf("S[0][1]=%v, want exactly %v", got, want)
	}
	// A threshold equal to the score must still admit the pair.
	if got := m.Ranked(0, want); len(got) != 1 || got[0].Index != 1 {
		t.Fatalf("Ranked at the exact threshold = %v", got)
	}
}
