// Package graphstore loads and saves graph documents from local paths or gs:// URIs.
package graphstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
	"github.com/yungbote/kgconsolidate/internal/platform/gcp"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type Store struct {
	log     *logger.Logger
	objects gcp.ObjectStore
}

// New returns a store. objects may be nil; gs:// locations then fail.
func New(log *logger.Logger, objects gcp.ObjectStore) *Store {
	return &Store{log: log.With("service", "GraphStore"), objects: objects}
}

func (s *Store) read(ctx context.Context, loc string) ([]byte, error) {
	if gcp.IsURI(loc) {
		if s.objects == nil {
			return nil, fmt.Errorf("read %s: object storage not configured", loc)
		}
		return s.objects.Read(ctx, loc)
	}
	return os.ReadFile(loc)
}

// LoadRaw reads a graph document as written, without sanitizing it.
func (s *Store) LoadRaw(ctx context.Context, loc string) (types.Graph, error) {
	raw, err := s.read(ctx, loc)
	if err != nil {
		return types.Graph{}, fmt.Errorf("load %s: %w", loc, err)
	}
	g, err := kg.Decode(bytes.NewReader(raw))
	if err != nil {
		return types.Graph{}, fmt.Errorf("decode %s: %w", loc, err)
	}
	return g, nil
}

// Load reads a graph document. Malformed records are dropped and reported.
func (s *Store) Load(ctx context.Context, loc string) (types.Graph, types.SanitizeReport, error) {
	g, err := s.LoadRaw(ctx, loc)
	if err != nil {
		return types.Graph{}, types.SanitizeReport{}, err
	}
	clean, report := g.Sanitize()
	if report.Total() > 0 {
		s.log.Warn("graph sanitized on load", "location", loc, "dropped", report.Total())
	}
	s.log.Debug("graph loaded", "location", loc, "nodes", len(clean.Nodes), "links", len(clean.Links))
	return clean, report, nil
}

// Save writes a graph document. Local files are replaced atomically.
func (s *Store) Save(ctx context.Context, loc string, g types.Graph) error {
	var buf bytes.Buffer
	if err := kg.Encode(&buf, g); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if gcp.IsURI(loc) {
		if s.objects == nil {
			return fmt.Errorf("save %s: object storage not configured", loc)
		}
		return s.objects.Write(ctx, loc, buf.Bytes(), "application/json")
	}
	return writeFileAtomic(loc, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
