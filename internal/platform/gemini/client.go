// Package gemini adapts the Google Generative AI SDK to the engine's embedding
// and text generation interfaces.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/kgconsolidate/internal/pkg/httpx"
	"github.com/yungbote/kgconsolidate/internal/pkg/pointers"
	"github.com/yungbote/kgconsolidate/internal/platform/envutil"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

const (
	DefaultEmbedModel = "text-embedding-004"
	DefaultModel      = "gemini-2.5-flash"
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second

	// The API accepts at most 100 contents per embed call.
	maxEmbedBatch = 100
)

type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
	MaxRetries int
}

func ConfigFromEnv() Config {
	key := envutil.String("GEMINI_API_KEY", "")
	if key == "" {
		key = envutil.String("GOOGLE_API_KEY", "")
	}
	return Config{
		APIKey:     key,
		Model:      envutil.String("GEMINI_MODEL", DefaultModel),
		EmbedModel: envutil.String("GEMINI_EMBED_MODEL", DefaultEmbedModel),
		MaxRetries: envutil.Int("GEMINI_MAX_RETRIES", DefaultMaxRetries),
	}
}

type Client struct {
	client     *genai.Client
	log        *logger.Logger
	model      string
	embedModel string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		client:     gc,
		log:        log.With("service", "GeminiClient"),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		maxRetries: cfg.MaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
	}, nil
}

// Embed embeds texts in request-sized chunks, one vector per input in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		var vecs [][]float32
		err := c.retry(ctx, "embed", func() error {
			var err error
			vecs, err = c.embedBatch(ctx, texts[start:end])
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			t = " "
		}
		contents = append(contents, genai.Text(t)...)
	}
	result, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}

func (c *Client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: pointers.Ptr(float32(0.2))}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	var text string
	err := c.retry(ctx, "generate", func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
		if err != nil {
			return err
		}
		text = responseText(resp)
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty response")
		}
		return nil
	})
	return text, err
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := httpx.Backoff(attempt-1, c.baseDelay, c.maxDelay)
			c.log.Debug("retrying gemini request", "op", op, "attempt", attempt, "delay", delay.String())
			if err := httpx.Sleep(ctx, delay); err != nil {
				return err
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		c.log.Warn("gemini request failed", "op", op, "attempt", attempt, "error", err.Error())
	}
	return fmt.Errorf("all retries exhausted: %w", lastErr)
}
