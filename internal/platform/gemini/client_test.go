package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "Audio "}, {Text: "Routing"}}},
	}}}
	if got := responseText(resp); got != "Audio Routing" {
		t.Fatalf("got %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("empty response gave %q", got)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	c := &Client{log: logger.Nop(), maxRetries: 3, baseDelay: 0, maxDelay: 0}
	n := 0
	err := c.retry(context.Background(), "op", func() error {
		n++
		if n < 3 {
			return context.DeadlineExceeded
		}
		return nil
	})
	if err != nil || n != 3 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}
