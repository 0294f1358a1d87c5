package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if got := Default().ServerOrigin(); got != "http://localhost:8888" {
		t.Errorf("ServerOrigin() = %s", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photoclock.yaml")
	content := `server:
  port: 9000
  uploadsdir: /tmp/up
preview:
  width: 420
  delay: 350ms
export:
  minoutputsize: 2048
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.UploadsDir != "/tmp/up" {
		t.Errorf("Unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.ExportsDir != "exports" {
		t.Errorf("Expected default exports dir kept, got %q", cfg.Server.ExportsDir)
	}
	if cfg.Preview.Width != 420 || cfg.Preview.Delay != 350*time.Millisecond {
		t.Errorf("Unexpected preview config: %+v", cfg.Preview)
	}
	if cfg.Preview.Scale != 1 {
		t.Errorf("Expected default scale, got %v", cfg.Preview.Scale)
	}
	if cfg.Export.MinOutputSize != 2048 {
		t.Errorf("MinOutputSize = %d", cfg.Export.MinOutputSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PHOTOCLOCK_PORT", "7001")
	t.Setenv("PHOTOCLOCK_ORIGIN", "http://shop.example")
	t.Setenv("PHOTOCLOCK_PREVIEW_DELAY", "1s")
	t.Setenv("PHOTOCLOCK_PREVIEW_WIDTH", "500")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.ServerOrigin() != "http://shop.example" {
		t.Errorf("ServerOrigin() = %s", cfg.ServerOrigin())
	}
	if cfg.Preview.Delay != time.Second || cfg.Preview.Width != 500 {
		t.Errorf("Unexpected preview config: %+v", cfg.Preview)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad port env",
			env:     map[string]string{"PHOTOCLOCK_PORT": "eighty"},
			wantErr: "PHOTOCLOCK_PORT",
		},
		{
			name:    "bad duration env",
			env:     map[string]string{"PHOTOCLOCK_FETCH_TIMEOUT": "soon"},
			wantErr: "PHOTOCLOCK_FETCH_TIMEOUT",
		},
		{
			name:    "narrow preview",
			yaml:    "preview:\n  width: 100\n",
			wantErr: "preview width",
		},
		{
			name:    "port out of range",
			yaml:    "server:\n  port: 70000\n",
			wantErr: "port 70000",
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [",
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "c.yaml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
