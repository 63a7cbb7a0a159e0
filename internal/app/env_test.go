package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates the process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta gamma\"\nexport BAZ='delta'\nnot-a-pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	for key, want := range map[string]string{"FOO": "alpha", "BAR": "beta gamma", "BAZ": "delta"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvToConfig_FromEnv(t *testing.T) {
	t.Setenv("GORECIPE_REQUEST_TIMEOUT", "3s")
	t.Setenv("GORECIPE_MAX_CONCURRENT", "4")
	t.Setenv("GORECIPE_MAX_BODY_BYTES", "1024")
	t.Setenv("GORECIPE_CACHE_DIR", "/tmp/gorecipe-cache")
	t.Setenv("GORECIPE_CACHE_MAX_AGE", "24h")
	t.Setenv("GORECIPE_BYPASS_CACHE", "yes")
	t.Setenv("GORECIPE_DISABLED_SOURCES", " pinterest, ,sallyswelt ")
	t.Setenv("GORECIPE_LISTEN", ":9000")
	t.Setenv("GORECIPE_VERBOSE", "off")

	cfg := Defaults()
	cfg.Verbose = true
	ApplyEnvToConfig(&cfg)
	if cfg.RequestTimeout != 3*time.Second || cfg.MaxConcurrent != 4 || cfg.MaxBodyBytes != 1024 {
		t.Fatalf("fetch settings not applied: %+v", cfg)
	}
	if cfg.CacheDir != "/tmp/gorecipe-cache" || cfg.CacheMaxAge != 24*time.Hour || !cfg.BypassCache {
		t.Fatalf("cache settings not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.DisabledSources, []string{"pinterest", "sallyswelt"}) {
		t.Fatalf("DisabledSources=%v", cfg.DisabledSources)
	}
	if cfg.ListenAddr != ":9000" || cfg.Verbose {
		t.Fatalf("listen=%q verbose=%v", cfg.ListenAddr, cfg.Verbose)
	}
}

func TestApplyEnvToConfig_IgnoresBadValues(t *testing.T) {
	t.Setenv("GORECIPE_REQUEST_TIMEOUT", "soon")
	t.Setenv("GORECIPE_MAX_CONCURRENT", "many")
	cfg := Defaults()
	ApplyEnvToConfig(&cfg)
	if cfg.RequestTimeout != DefaultRequestTimeout || cfg.MaxConcurrent != 0 {
		t.Fatalf("bad values should be ignored: %+v", cfg)
	}
}
