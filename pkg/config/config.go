package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read from the working directory when present
	DefaultFile = "symdiff.toml"

	// FileFlag names the flag that selects another config file. It is not
	// itself a config key.
	FileFlag = "config"

	envPrefix = "SYMDIFF_"
)

// Config holds all configuration for the application
type Config struct {
	Dir        string `koanf:"dir"`
	WebMode    bool   `koanf:"web"`
	Port       int    `koanf:"port"`
	Watch      bool   `koanf:"watch"`
	JSON       bool   `koanf:"json"`
	Color      string `koanf:"color"`
	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	QuietMs    int    `koanf:"quiet_ms"`
	MaxWaitMs  int    `koanf:"max_wait_ms"`
}

// QuietPeriod is how long the watcher waits for dump writes to settle
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.QuietMs) * time.Millisecond
}

// MaxWait bounds how long a burst of writes can postpone an update
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMs) * time.Millisecond
}

// Validate checks value ranges that koanf cannot express
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("dir must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Color)
	}
	if c.QuietMs <= 0 {
		return fmt.Errorf("quiet_ms must be positive, got %d", c.QuietMs)
	}
	if c.MaxWaitMs < c.QuietMs {
		return fmt.Errorf("max_wait_ms (%d) must not be less than quiet_ms (%d)", c.MaxWaitMs, c.QuietMs)
	}
	return nil
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error; a malformed one is.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"dir":         ".",
		"web":         false,
		"port":        8080,
		"watch":       true,
		"json":        false,
		"color":       "auto",
		"verbosity":   "",
		"verbose":     0,
		"quiet_ms":    300,
		"max_wait_ms": 2000,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: SYMDIFF_ (e.g., SYMDIFF_PORT=9090, SYMDIFF_QUIET_MS=500)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, with dashes mapped onto the underscore keys
	if f != nil {
		provider := posflag.ProviderWithFlag(f, ".", k, func(flag *pflag.Flag) (string, interface{}) {
			if flag.Name == FileFlag {
				return "", nil
			}
			return strings.ReplaceAll(flag.Name, "-", "_"), posflag.FlagVal(f, flag)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
