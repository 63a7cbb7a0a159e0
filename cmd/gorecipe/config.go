package main

import (
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/gorecipe/internal/app"
)

// loadConfig resolves configuration with precedence
// flags > GORECIPE_* env > config file > defaults.
func loadConfig(c *cli.Context) (app.Config, error) {
	if err := app.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
		return app.Config{}, err
	}
	cfg := app.Defaults()
	if path := c.String("config"); path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return app.Config{}, err
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("no-cache") {
		cfg.BypassCache = c.Bool("no-cache")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("max-concurrent") {
		cfg.MaxConcurrent = c.Int("max-concurrent")
	}
	if c.IsSet("disable-source") {
		cfg.DisabledSources = c.StringSlice("disable-source")
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}
