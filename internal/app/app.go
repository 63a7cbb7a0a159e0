// Package app wires configuration, the HTTP cache, the shared fetch client
// and the source adapters into the extraction entry point used by the CLI
// and the local API.
package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/dispatch"
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/ingredient"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/source/builtin"
)

type App struct {
	cfg        Config
	httpCache  *cache.HTTPCache
	client     *fetch.Lazy
	dispatcher *dispatch.Dispatcher
}

// SourceInfo describes one registered adapter for listings.
type SourceInfo struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// New builds the application. The fetch client itself is created on the
// first extraction.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if err := prepareCache(cfg); err != nil {
			return nil, err
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	a.client = fetch.NewLazy(func() *fetch.Client {
		log.Debug().Dur("timeout", cfg.RequestTimeout).Bool("cache", a.httpCache != nil).Msg("creating http client")
		return &fetch.Client{
			UserAgent:         cfg.UserAgent,
			PerRequestTimeout: cfg.RequestTimeout,
			Cache:             a.httpCache,
			BypassCache:       cfg.BypassCache,
			RedirectMaxHops:   cfg.RedirectMaxHops,
			MaxConcurrent:     cfg.MaxConcurrent,
			MaxBodyBytes:      cfg.MaxBodyBytes,
		}
	})
	if err := a.register(a.client); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithGetter builds the application around g instead of the network
// client. The cache settings are ignored.
func NewWithGetter(cfg Config, g fetch.Getter) (*App, error) {
	a := &App{cfg: cfg}
	if err := a.register(g); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) register(g fetch.Getter) error {
	var enabled []source.Adapter
	for _, ad := range builtin.Adapters(g) {
		if slices.Contains(a.cfg.DisabledSources, ad.Name()) {
			log.Info().Str("source", ad.Name()).Msg("source disabled")
			continue
		}
		enabled = append(enabled, ad)
	}
	d, err := dispatch.New(enabled...)
	if err != nil {
		return fmt.Errorf("register sources: %w", err)
	}
	a.dispatcher = d
	return nil
}

func prepareCache(cfg Config) error {
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", cfg.CacheDir).Msg("cache cleared")
	}
	if cfg.CacheMaxAge > 0 {
		n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Dur("max_age", cfg.CacheMaxAge).Msg("cache purged")
		}
	}
	if cfg.CacheMaxBytes > 0 || cfg.CacheMaxEntries > 0 {
		n, err := cache.EnforceLimits(cfg.CacheDir, cfg.CacheMaxBytes, cfg.CacheMaxEntries)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache limit enforcement failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("cache trimmed to limits")
		}
	}
	return nil
}

// Config returns the configuration the application was built with.
func (a *App) Config() Config { return a.cfg }

// Extract runs one extraction for rawURL. Errors are the typed errors of
// package recipe, unchanged.
func (a *App) Extract(ctx context.Context, rawURL string) (*recipe.ExternalRecipe, error) {
	return a.dispatcher.Get(ctx, rawURL)
}

// Sources lists the enabled adapters in priority order.
func (a *App) Sources() []SourceInfo {
	var out []SourceInfo
	for _, ad := range a.dispatcher.Adapters() {
		info := SourceInfo{Name: ad.Name()}
		for _, r := range ad.URLMatches() {
			info.Rules = append(info.Rules, r.String())
		}
		out = append(out, info)
	}
	return out
}

// ParseIngredients parses free text with the default unit list.
func (a *App) ParseIngredients(text string) []ingredient.Parsed {
	return ingredient.ParseText(text, ingredient.DefaultUnits)
}

// ParseIngredientsHTML parses an ingredient list pasted from a web page.
func (a *App) ParseIngredientsHTML(html string) ([]ingredient.Parsed, error) {
	return ingredient.ParseHTML(html, ingredient.DefaultUnits)
}

// Close releases idle connections of the shared client. The client is not
// built just to be closed.
func (a *App) Close() {
	if a.client != nil {
		a.client.CloseIdleConnections()
	}
}
