package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/gorecipe/internal/source/builtin"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Fetch struct {
		UserAgent       string   `yaml:"userAgent" json:"userAgent"`
		Timeout         Duration `yaml:"timeout" json:"timeout"`
		MaxConcurrent   int      `yaml:"maxConcurrent" json:"maxConcurrent"`
		RedirectMaxHops int      `yaml:"redirectMaxHops" json:"redirectMaxHops"`
		MaxBodyBytes    int64    `yaml:"maxBodyBytes" json:"maxBodyBytes"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		MaxBytes    int64    `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int      `yaml:"maxEntries" json:"maxEntries"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
		Bypass      bool     `yaml:"bypass" json:"bypass"`
	} `yaml:"cache" json:"cache"`

	Sources struct {
		Disabled []string `yaml:"disabled" json:"disabled"`
	} `yaml:"sources" json:"sources"`

	Server struct {
		Listen string `yaml:"listen" json:"listen"`
	} `yaml:"server" json:"server"`

	Log struct {
		Level   string `yaml:"level" json:"level"`
		Verbose bool   `yaml:"verbose" json:"verbose"`
	} `yaml:"log" json:"log"`
}

// Duration accepts Go duration strings ("10s", "24h") in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs
// on top of Defaults and before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if fc.Fetch.Timeout != 0 {
		cfg.RequestTimeout = time.Duration(fc.Fetch.Timeout)
	}
	if fc.Fetch.MaxConcurrent != 0 {
		cfg.MaxConcurrent = fc.Fetch.MaxConcurrent
	}
	if fc.Fetch.RedirectMaxHops != 0 {
		cfg.RedirectMaxHops = fc.Fetch.RedirectMaxHops
	}
	if fc.Fetch.MaxBodyBytes != 0 {
		cfg.MaxBodyBytes = fc.Fetch.MaxBodyBytes
	}

	if fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if fc.Cache.MaxAge != 0 {
		cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAge)
	}
	if fc.Cache.MaxBytes != 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if fc.Cache.MaxEntries != 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.BypassCache = cfg.BypassCache || fc.Cache.Bypass

	if len(fc.Sources.Disabled) > 0 {
		cfg.DisabledSources = append([]string{}, fc.Sources.Disabled...)
	}
	if fc.Server.Listen != "" {
		cfg.ListenAddr = fc.Server.Listen
	}
	if fc.Log.Level != "" {
		cfg.LogLevel = fc.Log.Level
	}
	cfg.Verbose = cfg.Verbose || fc.Log.Verbose
}

// ValidateConfig rejects settings that cannot work.
func ValidateConfig(cfg Config) error {
	if cfg.RequestTimeout <= 0 {
		return errors.New("config: request timeout must be positive")
	}
	if cfg.MaxConcurrent < 0 || cfg.RedirectMaxHops < 0 || cfg.MaxBodyBytes < 0 {
		return errors.New("config: negative fetch limits are not allowed")
	}
	if cfg.CacheMaxAge < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative cache limits are not allowed")
	}
	known := builtin.Names()
	for _, name := range cfg.DisabledSources {
		if !slices.Contains(known, name) {
			return fmt.Errorf("config: unknown source %q (known: %s)", name, strings.Join(known, ", "))
		}
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return errors.New("config: listen address is required")
	}
	return nil
}
