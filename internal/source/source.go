// Package source defines the contract every recipe site adapter implements
// and the helpers adapters share for loading and reading pages.
package source

import (
	"context"
	"net/url"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/urlmatch"
)

// Adapter recognizes URLs of one recipe site and extracts recipes from them.
//
// CanGet must be a pure predicate. Get may issue several requests but must
// only touch state local to the call; it returns either a complete recipe
// or an error, never a partial recipe.
type Adapter interface {
	// Name is a stable, lowercase identifier used in configuration and logs.
	Name() string
	URLMatches() []urlmatch.Rule
	CanGet(u *url.URL) bool
	Get(ctx context.Context, u *url.URL) (*recipe.ExternalRecipe, error)
}

// Matcher gives an adapter the default URLMatches and CanGet when embedded:
// a URL is accepted when any rule matches its prepared form. Adapters that
// need extra checks define their own CanGet and call Matcher.CanGet first.
type Matcher struct {
	Rules []urlmatch.Rule
}

func (m Matcher) URLMatches() []urlmatch.Rule { return m.Rules }

func (m Matcher) CanGet(u *url.URL) bool { return urlmatch.MatchAny(m.Rules, u) }
