// Package dispatch selects the source adapter for a URL and runs the
// extraction.
//
// Adapters are consulted in registration order and the first one whose
// CanGet accepts the URL is used, even when later adapters would accept
// it too. Exactly one adapter runs per call and its result is returned
// unchanged.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
)

// Dispatcher holds an immutable, ordered adapter registry. It is safe for
// concurrent use.
type Dispatcher struct {
	adapters []source.Adapter
}

// New validates the adapters and their rules and fixes their order.
func New(adapters ...source.Adapter) (*Dispatcher, error) {
	seen := make(map[string]struct{}, len(adapters))
	for i, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("adapter %d is nil", i)
		}
		name := a.Name()
		if name == "" {
			return nil, fmt.Errorf("adapter %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate adapter name %q", name)
		}
		seen[name] = struct{}{}
		for _, r := range a.URLMatches() {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("adapter %q: %w", name, err)
			}
		}
	}
	return &Dispatcher{adapters: append([]source.Adapter(nil), adapters...)}, nil
}

// Adapters returns the registry in priority order.
func (d *Dispatcher) Adapters() []source.Adapter {
	return append([]source.Adapter(nil), d.adapters...)
}

// Resolve parses raw and returns the adapter that would handle it, without
// any network access.
func (d *Dispatcher) Resolve(raw string) (source.Adapter, *url.URL, error) {
	u, err := parse(raw)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range d.adapters {
		if a.CanGet(u) {
			return a, u, nil
		}
	}
	return nil, u, &recipe.URLNotSupportedError{URL: raw}
}

// Get extracts the recipe at raw.
func (d *Dispatcher) Get(ctx context.Context, raw string) (*recipe.ExternalRecipe, error) {
	id := uuid.NewString()
	a, u, err := d.Resolve(raw)
	if err != nil {
		log.Warn().Str("extraction_id", id).Str("url", raw).Str("kind", recipe.Kind(err)).Msg("no adapter for url")
		return nil, err
	}
	logger := log.With().Str("extraction_id", id).Str("source", a.Name()).Str("url", raw).Logger()
	logger.Debug().Msg("adapter selected")

	start := time.Now()
	r, err := a.Get(ctx, u)
	if err != nil {
		logger.Warn().Err(err).Str("kind", recipe.Kind(err)).Dur("duration", time.Since(start)).Msg("extraction failed")
		return nil, err
	}
	logger.Info().
		Int("steps", len(r.Steps)).
		Int("ingredients", len(r.Ingredients)).
		Dur("duration", time.Since(start)).
		Msg("recipe extracted")
	return r, nil
}

var hostSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true, "ftp": true}

func parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &recipe.InvalidURLError{Input: raw, Err: err}
	}
	if !u.IsAbs() {
		return nil, &recipe.InvalidURLError{Input: raw, Err: errors.New("missing scheme")}
	}
	if hostSchemes[strings.ToLower(u.Scheme)] && u.Host == "" {
		return nil, &recipe.InvalidURLError{Input: raw, Err: errors.New("missing host")}
	}
	return u, nil
}
