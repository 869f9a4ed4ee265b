package textsim

import (
	"math"
	"regexp"
	"strings"
)

var termRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// emptyPlaceholder stands in for a missing description so two empty descriptions
// compare as identical and an empty one compares as unrelated to any real text.
const emptyPlaceholder = "no_description"

func terms(doc string) []string {
	return termRe.FindAllString(strings.ToLower(doc), -1)
}

// TFIDF holds l2-normalized tf-idf vectors for a small corpus. Idf is smoothed:
// ln((1+n)/(1+df)) + 1.
type TFIDF struct {
	vecs []map[string]float64
}

func FitTFIDF(docs []string) *TFIDF {
	tokens := make([][]string, len(docs))
	df := map[string]int{}
	for i, d := range docs {
		d = strings.TrimSpace(d)
		if d == "" {
			d = emptyPlaceholder
		}
		tokens[i] = terms(d)
		seen := map[string]bool{}
		for _, t := range tokens[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	n := float64(len(docs))
	out := &TFIDF{vecs: make([]map[string]float64, len(docs))}
	for i, toks := range tokens {
		tf := map[string]float64{}
		for _, t := range toks {
			tf[t]++
		}
		var norm float64
		for t, c := range tf {
			w := c * (math.Log((1+n)/(1+float64(df[t]))) + 1)
			tf[t] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for t := range tf {
				tf[t] /= norm
			}
		}
		out.vecs[i] = tf
	}
	return out
}

// Empty reports whether no document produced a single term.
func (m *TFIDF) Empty() bool {
	for _, v := range m.vecs {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

func (m *TFIDF) Cosine(i, j int) float64 {
	a, b := m.vecs[i], m.vecs[j]
	if len(a) > len(b) {
		a, b = b, a
	}
	var s float64
	for t, w := range a {
		s += w * b[t]
	}
	return s
}

// MinPairwise returns the smallest cosine over all distinct document pairs. Fewer
// than two documents, or a corpus with no usable terms, yields 1.0.
func MinPairwise(docs []string) float64 {
	if len(docs) < 2 {
		return 1.0
	}
	allEmpty := true
	for _, d := range docs {
		if strings.TrimSpace(d) != "" {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return 1.0
	}
	m := FitTFIDF(docs)
	if m.Empty() {
		return 1.0
	}
	min := math.Inf(1)
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if s := m.Cosine(i, j); s < min {
				min = s
			}
		}
	}
	return min
}
