package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CATALOG_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/catalog.db")
	t.Setenv("INTEGRATION_ENDPOINTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.APIPort)
	}
	if cfg.BlobBackend != BlobFS {
		t.Errorf("expected fs backend, got %s", cfg.BlobBackend)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.ScratchDir == "" {
		t.Error("scratch dir should default to the system temp dir")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		CatalogDriver: DriverPostgres,
		DBURL:         "postgres://localhost/orcpub",
		BlobBackend:   BlobFS,
		BlobDir:       "blobs",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.CatalogDriver = "mysql" }, "CATALOG_DRIVER"},
		{"sqlite without path", func(c *Config) { c.CatalogDriver = DriverSQLite; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"http blob without url", func(c *Config) { c.BlobBackend = BlobHTTP }, "BLOB_URL"},
		{"bad endpoint", func(c *Config) { c.IntegrationEndpoints = "workflow@dev" }, "invalid integration endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	c := Config{IntegrationEndpoints: "workflow@dev=http://dev:8088/, workflow@prod=http://prod:8088,visualis=http://vis"}

	eps, err := c.Endpoints()
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(eps))
	}
	if eps[0] != (Endpoint{Standard: "workflow", Env: "dev", URL: "http://dev:8088"}) {
		t.Errorf("unexpected first endpoint: %+v", eps[0])
	}
	if eps[2].Env != "any" {
		t.Errorf("endpoint without env should match any, got %s", eps[2].Env)
	}

	bad := Config{IntegrationEndpoints: "workflow@qa=http://x"}
	if _, err := bad.Endpoints(); err == nil {
		t.Error("expected error for unknown env")
	}
}
