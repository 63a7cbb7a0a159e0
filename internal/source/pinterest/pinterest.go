// Package pinterest extracts recipes from Pinterest pins. Pin pages embed
// the recipe as schema.org JSON-LD; pin.it short links redirect to them.
package pinterest

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/source/jsonld"
	"github.com/hyperifyio/gorecipe/internal/urlmatch"
)

const Name = "pinterest"

var rules = []urlmatch.Rule{
	urlmatch.MustRule(
		[]string{"https"},
		[]string{"pinterest.com", "pinterest.de", "pinterest.at", "pinterest.ch", "pinterest.co.uk"},
		`^/pin/[0-9]+/?$`,
	),
	urlmatch.MustRule([]string{"https"}, []string{"pin.it"}, `^/[A-Za-z0-9]+/?$`),
}

type Adapter struct {
	source.Matcher
	getter fetch.Getter
}

// New returns the adapter. g is shared and must be safe for concurrent use.
func New(g fetch.Getter) *Adapter {
	return &Adapter{Matcher: source.Matcher{Rules: rules}, getter: g}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Get(ctx context.Context, u *url.URL) (*recipe.ExternalRecipe, error) {
	raw := u.String()
	page, err := source.FetchPage(ctx, a.getter, raw, "pin no longer available")
	if err != nil {
		return nil, err
	}
	ld, ok := jsonld.Find(page.Doc)
	if !ok {
		return nil, &recipe.ParseError{URL: raw, Expected: "schema.org Recipe data in the pin page"}
	}
	r := ld.External(page.Resolve)
	if len(r.Files) == 0 {
		if og := page.Resolve(page.MetaContent("og:image")); og != "" {
			r.Files = append(r.Files, og)
		}
	}
	if err := r.Validate(raw); err != nil {
		return nil, err
	}
	if page.URL.String() != raw {
		log.Debug().Str("source", Name).Str("url", raw).Str("final_url", page.URL.String()).Msg("pin redirected")
	}
	return r, nil
}
