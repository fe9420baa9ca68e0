// Package config loads the supervisor's on-disk YAML configuration: where
// its runtime directory lives, which of a Launch request's own environment
// variables it is permitted to pass through to the child, and how verbosely
// it logs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvAllowlist handles the env: string | []string YAML shape: "*" means
// pass everything, "none"/"" leaves the list empty (which, like leaving env
// unset, also passes the request's envp through unchanged), anything else
// is a literal list of variable names.
type EnvAllowlist []string

func (e *EnvAllowlist) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch value.Value {
		case "*":
			*e = EnvAllowlist{"*"}
		case "none", "":
			*e = nil
		default:
			*e = EnvAllowlist{value.Value}
		}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*e = EnvAllowlist(list)
	return nil
}

// Config is the supervisor's static configuration.
type Config struct {
	// Dir is the directory rendezvous sockets are created under. Defaults
	// to $XDG_RUNTIME_DIR/ptyhostd, or to ptyhostd under os.TempDir() if
	// XDG_RUNTIME_DIR is unset.
	Dir string `yaml:"dir,omitempty"`

	// MaxChildren caps how many live records the registry will hold at
	// once; a Launch beyond the cap is rejected before forking. Zero means
	// unbounded.
	MaxChildren int `yaml:"max_children,omitempty"`

	// Env restricts which variable names a Launch request's envp is
	// allowed to carry through to the child. "*" (or leaving this unset)
	// passes the request's envp through unchanged; a literal list keeps
	// only the named KEY=VALUE pairs. This never adds variables from the
	// supervisor's own environment — a child's environment is always
	// entirely what the Launch request specified, filtered, never
	// supplemented.
	Env EnvAllowlist `yaml:"env,omitempty"`

	// LogLevel is one of "debug", "info", "warn", "error". Defaults to
	// "info".
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns a Config with every field set to its zero-config
// default.
func Default() *Config {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return &Config{
		Dir:      filepath.Join(dir, "ptyhostd"),
		LogLevel: "info",
	}
}

// Load reads and parses the YAML file at path, filling in defaults for any
// field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
