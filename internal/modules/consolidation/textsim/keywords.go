package textsim

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[a-zA-Z]+`)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "are": true, "was": true, "has": true,
}

// MinKeywordLen is the shortest token counted as a content keyword.
const MinKeywordLen = 3

// Keywords extracts lowercase alphabetic tokens of at least MinKeywordLen characters,
// minus stop words.
func Keywords(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordRe.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if len(w) < MinKeywordLen || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func SharesKeyword(a, b map[string]bool) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for w := range a {
		if b[w] {
			return true
		}
	}
	return false
}

type KeywordCount struct {
	Word  string
	Count int
}

// TopKeywords ranks keywords by the number of texts they appear in. Ties are
// broken alphabetically.
func TopKeywords(texts []string, n int) []KeywordCount {
	counts := map[string]int{}
	for _, t := range texts {
		for w := range Keywords(t) {
			counts[w]++
		}
	}
	out := make([]KeywordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, KeywordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
