package similarity

import (
	"math"
	"sort"
)

type Bin struct {
	Label string  `json:"label"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

type Stats struct {
	Pairs       int                `json:"pairs"`
	Excluded    int                `json:"excluded_vectors"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Mean        float64            `json:"mean"`
	Median      float64            `json:"median"`
	Std         float64            `json:"std"`
	Percentiles map[string]float64 `json:"percentiles"`
	Bins        []Bin              `json:"bins"`
	Suggested   map[string]float64 `json:"suggested_thresholds"`
}

var percentileLevels = []struct {
	label string
	p     float64
}{
	{"p90", 90}, {"p95", 95}, {"p99", 99}, {"p99.5", 99.5}, {"p99.9", 99.9},
}

func defaultBins() []Bin {
	return []Bin{
		{Label: "<0.0", Low: -1, High: 0},
		{Label: "0.0-0.3", Low: 0, High: 0.3},
		{Label: "0.3-0.5", Low: 0.3, High: 0.5},
		{Label: "0.5-0.7", Low: 0.5, High: 0.7},
		{Label: "0.7-0.8", Low: 0.7, High: 0.8},
		{Label: "0.8-0.9", Low: 0.8, High: 0.9},
		{Label: "0.9-1.0", Low: 0.9, High: 1.0},
	}
}

// Distribution summarizes the upper triangle of m over comparable pairs.
func Distribution(m *Matrix) Stats {
	st := Stats{Percentiles: map[string]float64{}, Bins: defaultBins(), Suggested: map[string]float64{}}
	for i := 0; i < m.n; i++ {
		if !m.valid[i] {
			st.Excluded++
		}
	}
	vals := make([]float64, 0, m.n*(m.n-1)/2+1)
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if m.Comparable(i, j) {
				vals = append(vals, m.At(i, j))
			}
		}
	}
	st.Pairs = len(vals)
	if len(vals) == 0 {
		return st
	}
	sort.Float64s(vals)
	st.Min = vals[0]
	st.Max = vals[len(vals)-1]
	var sum float64
	for _, v := range vals {
		sum += v
	}
	st.Mean = sum / float64(len(vals))
	var ss float64
	for _, v := range vals {
		d := v - st.Mean
		ss += d * d
	}
	st.Std = math.Sqrt(ss / float64(len(vals)))
	st.Median = Percentile(vals, 50)
	for _, lvl := range percentileLevels {
		st.Percentiles[lvl.label] = Percentile(vals, lvl.p)
	}
	for _, v := range vals {
		for b := range st.Bins {
			last := b == len(st.Bins)-1
			if v >= st.Bins[b].Low && (v < st.Bins[b].High || (last && v <= st.Bins[b].High)) {
				st.Bins[b].Count++
				break
			}
		}
	}
	st.Suggested["link_min_similarity"] = st.Percentiles["p95"]
	st.Suggested["merge_threshold"] = st.Percentiles["p99"]
	return st
}

// Percentile uses linear interpolation between closest ranks over sorted values.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
