// Package confloader loads server configuration from multiple sources.
//
// It uses koanf underneath. Priority, highest to lowest:
//
//  1. Command-line flags (merged last via LoadMap)
//  2. Environment variables (BLOOMGATE_ prefix)
//  3. Configuration file (YAML)
//  4. Default values from the caller's struct
package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "BLOOMGATE_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the target's current values (the defaults), the file (if
// configured), and the environment, then unmarshals the result back into
// target. Later sources override earlier ones. Flag overrides are merged
// separately: call LoadMap then Unmarshal.
func (l *Loader) Load(target any) error {
	if err := l.k.Load(structs.Provider(target, "koanf"), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return l.Unmarshal(target)
}

// LoadFile merges a YAML configuration file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables. Variables use the form
// BLOOMGATE_SECTION_KEY; for example BLOOMGATE_SERVER_LISTEN=0.0.0.0:4989
// maps to the key server.listen. Variables are matched against the keys
// already known to the loader, so multi-word keys resolve too:
// BLOOMGATE_SECURITY_ENCRYPTION_PASSPHRASE maps to
// security.encryption_passphrase, not security.encryption.passphrase.
func (l *Loader) LoadEnv() error {
	known := make(map[string]string)
	for _, key := range l.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if key, ok := known[s]; ok {
			return key
		}
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap merges configuration from a map of dotted keys. Used for CLI flag
// overrides, which take the highest priority, and in tests. Callers apply
// the result with Unmarshal.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(confmap.Provider(data, "."), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged configuration into target.
func (l *Loader) Unmarshal(target any) error {
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// GetString returns a string value by dotted key.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}
