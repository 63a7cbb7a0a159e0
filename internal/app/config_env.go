package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvToConfig.
const EnvPrefix = "GORECIPE_"

// ApplyEnvToConfig overrides cfg fields whose GORECIPE_* variable is set.
// It runs after the config file so env wins over file values; explicit
// flags are applied afterwards by the CLI. Unparseable values are logged
// and ignored.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				log.Warn().Str("env", EnvPrefix+key).Str("value", v).Msg("ignoring non-integer value")
				return
			}
			*dst = n
		}
	}
	setInt64 := func(dst *int64, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				log.Warn().Str("env", EnvPrefix+key).Str("value", v).Msg("ignoring non-integer value")
				return
			}
			*dst = n
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				log.Warn().Str("env", EnvPrefix+key).Str("value", v).Msg("ignoring invalid duration")
				return
			}
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	setString(&cfg.UserAgent, "USER_AGENT")
	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setInt(&cfg.MaxConcurrent, "MAX_CONCURRENT")
	setInt(&cfg.RedirectMaxHops, "REDIRECT_MAX_HOPS")
	setInt64(&cfg.MaxBodyBytes, "MAX_BODY_BYTES")

	setString(&cfg.CacheDir, "CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setInt64(&cfg.CacheMaxBytes, "CACHE_MAX_BYTES")
	setInt(&cfg.CacheMaxEntries, "CACHE_MAX_ENTRIES")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.BypassCache, "BYPASS_CACHE")

	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "DISABLED_SOURCES")); v != "" {
		cfg.DisabledSources = splitList(v)
	}

	setString(&cfg.ListenAddr, "LISTEN")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setBool(&cfg.Verbose, "VERBOSE")
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
