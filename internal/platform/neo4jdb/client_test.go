package neo4jdb

import (
	"context"
	"testing"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

func TestNewWithoutURIIsDisabled(t *testing.T) {
	c, err := New(logger.Nop(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil client without a URI")
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("NEO4J_MAX_POOL_SIZE", "-3")
	o := OptionsFromEnv()
	if o.URI != "bolt://localhost:7687" || o.User != "neo4j" || o.MaxPool != 50 {
		t.Fatalf("unexpected options: %+v", o)
	}
}
