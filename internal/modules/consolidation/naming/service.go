package naming

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

// Generator is the slice of a generative-text client the namer needs.
type Generator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

const namingSystemPrompt = `You label clusters of related topics in a knowledge graph.
Reply with a single short descriptive label of 2 to 6 words. No quotes, no punctuation at the end, no explanation.`

// ServiceNamer asks a generative service for labels, one request per cluster, spaced
// evenly to respect a requests-per-minute budget. A failed or empty reply falls back
// to the keyword name for that cluster only.
type ServiceNamer struct {
	gen      Generator
	limiter  *rate.Limiter
	fallback KeywordNamer
	log      *logger.Logger
	maxChars int
	timeout  time.Duration
}

type ServiceOptions struct {
	RequestsPerMinute int
	MaxSummaryChars   int
	RequestTimeout    time.Duration
}

func NewServiceNamer(gen Generator, log *logger.Logger, opts ServiceOptions) *ServiceNamer {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	maxChars := opts.MaxSummaryChars
	if maxChars <= 0 {
		maxChars = 4000
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ServiceNamer{
		gen:      gen,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		fallback: KeywordNamer{Words: 3},
		log:      log.With("component", "ServiceNamer"),
		maxChars: maxChars,
		timeout:  timeout,
	}
}

func (s *ServiceNamer) Name(ctx context.Context, clusters []Summary) []Result {
	out := s.fallback.Name(ctx, clusters)
	if s.gen == nil {
		return out
	}
	for i, c := range clusters {
		if err := s.limiter.Wait(ctx); err != nil {
			s.log.Warn("naming throttled; using keyword names for the rest", "remaining", len(clusters)-i, "error", err)
			break
		}
		label, err := s.request(ctx, c)
		if err != nil {
			s.log.Warn("cluster naming failed; using keyword name", "cluster", i, "fallback", out[i].Name, "error", err)
			continue
		}
		if label == "" {
			continue
		}
		out[i] = Result{Name: label, Source: SourceService}
	}
	return out
}

func (s *ServiceNamer) request(ctx context.Context, c Summary) (string, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.gen.GenerateText(rctx, namingSystemPrompt, s.userPrompt(c))
	if err != nil {
		return "", err
	}
	return cleanLabel(raw), nil
}

func (s *ServiceNamer) userPrompt(c Summary) string {
	var b strings.Builder
	b.WriteString("Topics in this cluster:\n")
	for i, name := range c.Names {
		line := "- " + strings.TrimSpace(name)
		if i < len(c.Texts) {
			if t := strings.TrimSpace(c.Texts[i]); t != "" && t != strings.TrimSpace(name) {
				line += ": " + t
			}
		}
		if b.Len()+len(line)+1 > s.maxChars {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func cleanLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const cutset = " \t\"'`*#."
	s = strings.Trim(s, cutset)
	s = strings.TrimPrefix(s, "Label:")
	s = strings.Trim(s, cutset)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		s = strings.TrimSpace(string(r[:80]))
	}
	return s
}
