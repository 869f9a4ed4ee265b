package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore reads and writes whole objects addressed by gs:// URIs.
type ObjectStore interface {
	Read(ctx context.Context, uri string) ([]byte, error)
	Write(ctx context.Context, uri string, data []byte, contentType string) error
	List(ctx context.Context, prefixURI string) ([]string, error)
	Close() error
}

type objectStore struct {
	log    *logger.Logger
	client *storage.Client
	mode   ObjectStorageMode
}

func NewObjectStore(ctx context.Context, log *logger.Logger) (ObjectStore, error) {
	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewObjectStoreWithConfig(ctx, log, cfg)
}

func NewObjectStoreWithConfig(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (ObjectStore, error) {
	if log == nil {
		return nil, fmt.Errorf("gcp: logger required")
	}
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, err
	}
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	storeLog := log.With("service", "ObjectStore")
	storeLog.Info("Object storage initialized", "mode", cfg.Mode, "inferred", cfg.Inferred, "emulator_host", cfg.EmulatorHost)
	return &objectStore{log: storeLog, client: client, mode: cfg.Mode}, nil
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// The storage client picks the emulator endpoint up from the environment.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.EmulatorHost, "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Mode: string(cfg.Mode), Reason: "unsupported OBJECT_STORAGE_MODE"}
	}
}

// ParseURI splits gs://bucket/key. The key may be empty for prefix listings.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", uri)
	}
	return bucket, key, nil
}

func IsURI(s string) bool { return strings.HasPrefix(strings.TrimSpace(s), "gs://") }

func (s *objectStore) Read(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("missing object key in %q", uri)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *objectStore) Write(ctx context.Context, uri string, data []byte, contentType string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("missing object key in %q", uri)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	s.log.Debug("object written", "uri", uri, "bytes", len(data))
	return nil
}

func (s *objectStore) List(ctx context.Context, prefixURI string) ([]string, error) {
	bucket, prefix, err := ParseURI(prefixURI)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, "gs://"+bucket+"/"+attrs.Name)
	}
	return out, nil
}

func (s *objectStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
