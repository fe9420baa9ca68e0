package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Dir == "" {
		t.Error("default config should set a Dir")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.MaxChildren != 0 {
		t.Errorf("MaxChildren = %d, want 0 (unbounded)", cfg.MaxChildren)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ptyhostd.yaml")
	os.WriteFile(path, []byte("dir: /tmp/custom\nmax_children: 4\nlog_level: debug\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != "/tmp/custom" {
		t.Errorf("Dir = %q, want /tmp/custom", cfg.Dir)
	}
	if cfg.MaxChildren != 4 {
		t.Errorf("MaxChildren = %d, want 4", cfg.MaxChildren)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/ptyhostd.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestEnvAllowlist_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		yaml string
		want EnvAllowlist
	}{
		{"env: \"*\"", EnvAllowlist{"*"}},
		{"env: none", nil},
		{"env: \"\"", nil},
		{"env: TERM", EnvAllowlist{"TERM"}},
		{"env:\n  - TERM\n  - LANG\n", EnvAllowlist{"TERM", "LANG"}},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		path := filepath.Join(dir, "ptyhostd.yaml")
		os.WriteFile(path, []byte(tt.yaml), 0644)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%q: %v", tt.yaml, err)
		}
		if len(cfg.Env) != len(tt.want) {
			t.Errorf("%q: env = %v, want %v", tt.yaml, cfg.Env, tt.want)
			continue
		}
		for i := range tt.want {
			if cfg.Env[i] != tt.want[i] {
				t.Errorf("%q: env = %v, want %v", tt.yaml, cfg.Env, tt.want)
				break
			}
		}
	}
}
