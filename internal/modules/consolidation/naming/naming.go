package naming

import (
	"context"
	"strings"
	"unicode"

	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/textsim"
)

const (
	SourceService  = "service"
	SourceKeywords = "keywords"
)

// Summary describes one cluster to be named.
type Summary struct {
	Names []string
	Texts []string
}

type Result struct {
	Name   string
	Source string
}

// Namer returns exactly one result per summary, in order.
type Namer interface {
	Name(ctx context.Context, clusters []Summary) []Result
}

// KeywordNamer names a cluster after its most frequent member keywords.
type KeywordNamer struct {
	Words int
}

func (k KeywordNamer) Name(_ context.Context, clusters []Summary) []Result {
	out := make([]Result, len(clusters))
	for i, c := range clusters {
		out[i] = Result{Name: k.name(c), Source: SourceKeywords}
	}
	return out
}

func (k KeywordNamer) name(c Summary) string {
	words := k.Words
	if words <= 0 {
		words = 3
	}
	texts := make([]string, 0, len(c.Names)+len(c.Texts))
	texts = append(texts, c.Names...)
	texts = append(texts, c.Names...)
	texts = append(texts, c.Texts...)
	top := textsim.TopKeywords(texts, words)
	if len(top) == 0 {
		if len(c.Names) > 0 && strings.TrimSpace(c.Names[0]) != "" {
			return strings.TrimSpace(c.Names[0])
		}
		return "Miscellaneous"
	}
	parts := make([]string, len(top))
	for i, kw := range top {
		parts[i] = titleWord(kw.Word)
	}
	return strings.Join(parts, " & ")
}

func titleWord(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Dedupe suffixes repeated names with " (2)", " (3)" and so on, skipping any
// suffixed name that another cluster already carries.
func Dedupe(results []Result) []Result {
	taken := make(map[string]bool, len(results))
	for _, r := range results {
		taken[strings.ToLower(r.Name)] = true
	}
	kept := map[string]bool{}
	next := map[string]int{}
	out := make([]Result, len(results))
	for i, r := range results {
		key := strings.ToLower(r.Name)
		if !kept[key] {
			kept[key] = true
			out[i] = r
			continue
		}
		n := next[key]
		if n < 2 {
			n = 2
		}
		name := r.Name + " (" + itoa(n) + ")"
		for taken[strings.ToLower(name)] {
			n++
			name = r.Name + " (" + itoa(n) + ")"
		}
		next[key] = n + 1
		taken[strings.ToLower(name)] = true
		kept[strings.ToLower(name)] = true
		r.Name = name
		out[i] = r
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
