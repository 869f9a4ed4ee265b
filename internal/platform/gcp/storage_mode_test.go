package gcp

import (
	"errors"
	"testing"
)

func TestResolveObjectStorageConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		host     string
		want     ObjectStorageMode
		inferred bool
		wantErr  bool
	}{
		{"default", "", "", ObjectStorageModeGCS, false, false},
		{"explicit gcs ignores host", "gcs", "http://fake-gcs:4443", ObjectStorageModeGCS, false, false},
		{"explicit emulator", "GCS_EMULATOR", "http://fake-gcs:4443", ObjectStorageModeGCSEmulator, false, false},
		{"inferred emulator", "", "http://fake-gcs:4443", ObjectStorageModeGCSEmulator, true, false},
		{"emulator without host", "gcs_emulator", "", "", false, true},
		{"relative host", "gcs_emulator", "fake-gcs", "", false, true},
		{"unknown mode", "s3", "", "", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.host)
			cfg, err := ResolveObjectStorageConfigFromEnv()
			if tc.wantErr {
				var cfgErr *ObjectStorageConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ObjectStorageConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Mode != tc.want || cfg.Inferred != tc.inferred {
				t.Fatalf("got mode=%q inferred=%v", cfg.Mode, cfg.Inferred)
			}
		})
	}
}
