package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

func TestParseURI(t *testing.T) {
	cases := []struct {
		in, bucket, key string
		wantErr         bool
	}{
		{"gs://graphs/run/1.json", "graphs", "run/1.json", false},
		{"gs://graphs", "graphs", "", false},
		{"gs://graphs/", "graphs", "", false},
		{"gs:///x", "", "", true},
		{"/tmp/graph.json", "", "", true},
	}
	for _, tc := range cases {
		b, k, err := ParseURI(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v", tc.in, err)
		}
		if b != tc.bucket || k != tc.key {
			t.Fatalf("%s: got %q %q", tc.in, b, k)
		}
	}
	if !IsURI("gs://a/b") || IsURI("graph.json") {
		t.Fatalf("IsURI mismatch")
	}
}

func TestObjectStoreEmulatorRoundTrip(t *testing.T) {
	if !strings.EqualFold(os.Getenv("KG_RUN_GCS_EMULATOR_INTEGRATION"), "true") {
		t.Skip("set KG_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	host := strings.TrimRight(os.Getenv("STORAGE_EMULATOR_HOST"), "/")
	if host == "" {
		host = "http://127.0.0.1:4443"
	}
	bucket := fmt.Sprintf("kg-it-%d", time.Now().UnixNano())
	createBucket(t, host, bucket)

	store, err := NewObjectStoreWithConfig(context.Background(), logger.Nop(), ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: host,
	})
	if err != nil {
		t.Fatalf("NewObjectStoreWithConfig: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	uri := "gs://" + bucket + "/graphs/a.json"
	if err := store.Write(ctx, uri, []byte(`{"nodes":[]}`), "application/json"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	body, err := store.Read(ctx, uri)
	if err != nil || string(body) != `{"nodes":[]}` {
		t.Fatalf("Read: %q %v", body, err)
	}
	keys, err := store.List(ctx, "gs://"+bucket+"/graphs/")
	if err != nil || !slices.Contains(keys, uri) {
		t.Fatalf("List: %v %v", keys, err)
	}
	if _, err := store.Read(ctx, "gs://"+bucket+"/missing.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func createBucket(t *testing.T, host, bucket string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"name": bucket})
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(host+"/storage/v1/b?project=local-dev", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Skipf("storage emulator not reachable at %s: %v", host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		t.Fatalf("create bucket %q failed: status=%d", bucket, resp.StatusCode)
	}
}
