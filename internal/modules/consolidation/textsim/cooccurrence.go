package textsim

import "math/rand"

type CooccurrenceReport struct {
	Sampled      int     `json:"sampled_pairs"`
	Sharing      int     `json:"pairs_sharing_keyword"`
	Rate         float64 `json:"rate"`
	AvgKeywords  float64 `json:"avg_keywords_per_node"`
	NoKeywordsAt int     `json:"nodes_without_keywords"`
}

// CooccurrenceSample draws random distinct pairs from texts and measures how often a
// pair shares at least one keyword. The seed makes the sample reproducible.
func CooccurrenceSample(texts []string, pairs int, seed int64) CooccurrenceReport {
	rep := CooccurrenceReport{}
	if len(texts) == 0 {
		return rep
	}
	kws := make([]map[string]bool, len(texts))
	total := 0
	for i, t := range texts {
		kws[i] = Keywords(t)
		total += len(kws[i])
		if len(kws[i]) == 0 {
			rep.NoKeywordsAt++
		}
	}
	rep.AvgKeywords = float64(total) / float64(len(texts))
	if len(texts) < 2 || pairs <= 0 {
		return rep
	}
	rng := rand.New(rand.NewSource(seed))
	for k := 0; k < pairs; k++ {
		i := rng.Intn(len(texts))
		j := rng.Intn(len(texts) - 1)
		if j >= i {
			j++
		}
		rep.Sampled++
		if SharesKeyword(kws[i], kws[j]) {
			rep.Sharing++
		}
	}
	rep.Rate = float64(rep.Sharing) / float64(rep.Sampled)
	return rep
}
