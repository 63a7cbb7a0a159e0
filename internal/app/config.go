package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Fetching
	UserAgent       string
	RequestTimeout  time.Duration
	MaxConcurrent   int
	RedirectMaxHops int
	MaxBodyBytes    int64

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxBytes    int64
	CacheMaxEntries  int
	CacheClear       bool
	CacheStrictPerms bool
	BypassCache      bool

	// Sources
	DisabledSources []string

	// Server
	ListenAddr string

	// Logging
	LogLevel string
	Verbose  bool
}

// Defaults for values that flags, env and the config file may override.
const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultRedirectMaxHops = 5
	DefaultMaxBodyBytes    = 8 << 20
	DefaultListenAddr      = "127.0.0.1:8787"
	DefaultLogLevel        = "info"
)

// Defaults returns the configuration used when nothing else is set.
// The cache is off until a directory is configured.
func Defaults() Config {
	return Config{
		UserAgent:       UserAgent(),
		RequestTimeout:  DefaultRequestTimeout,
		RedirectMaxHops: DefaultRedirectMaxHops,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ListenAddr:      DefaultListenAddr,
		LogLevel:        DefaultLogLevel,
	}
}
