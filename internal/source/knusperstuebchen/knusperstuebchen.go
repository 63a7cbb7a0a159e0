// Package knusperstuebchen extracts recipes from knusperstuebchen.net posts,
// which use WP Recipe Maker markup.
package knusperstuebchen

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/source/jsonld"
	"github.com/hyperifyio/gorecipe/internal/textutil"
	"github.com/hyperifyio/gorecipe/internal/urlmatch"
)

const Name = "knusperstuebchen"

var rules = []urlmatch.Rule{
	urlmatch.MustRule([]string{"https"}, []string{"knusperstuebchen.net"}, `^/[0-9]{4}/[0-9]{2}/[0-9]{2}/[^/]+/?$`),
}

type Adapter struct {
	source.Matcher
	getter fetch.Getter
}

func New(g fetch.Getter) *Adapter {
	return &Adapter{Matcher: source.Matcher{Rules: rules}, getter: g}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Get(ctx context.Context, u *url.URL) (*recipe.ExternalRecipe, error) {
	raw := u.String()
	page, err := source.FetchPage(ctx, a.getter, raw, "recipe page not found")
	if err != nil {
		return nil, err
	}
	card := page.Doc.Find(".wprm-recipe-container, .wprm-recipe").First()
	var cardErr error
	if card.Length() > 0 {
		r := fromCard(page, card)
		if cardErr = r.Validate(raw); cardErr == nil {
			return r, nil
		}
	}
	// Older posts have no recipe card and some cards are incomplete; the
	// plugin's JSON-LD may still carry the recipe.
	if ld, ok := jsonld.Find(page.Doc); ok {
		log.Debug().Str("source", Name).Str("url", raw).AnErr("card", cardErr).Msg("using JSON-LD")
		r := ld.External(page.Resolve)
		if err := r.Validate(raw); err != nil {
			if cardErr != nil {
				return nil, cardErr
			}
			return nil, err
		}
		return r, nil
	}
	if cardErr != nil {
		return nil, cardErr
	}
	return nil, &recipe.ParseError{URL: raw, Expected: "a WP Recipe Maker recipe card"}
}

func fromCard(page *source.Page, card *goquery.Selection) *recipe.ExternalRecipe {
	r := recipe.New(textutil.Clean(card.Find(".wprm-recipe-name").First().Text()))
	r.Files = page.ImageURLs(card.Find(".wprm-recipe-image").First())

	card.Find(".wprm-recipe-ingredient").Each(func(_ int, s *goquery.Selection) {
		line := textutil.JoinNonEmpty(
			s.Find(".wprm-recipe-ingredient-amount").Text(),
			s.Find(".wprm-recipe-ingredient-unit").Text(),
			s.Find(".wprm-recipe-ingredient-name").Text(),
			notes(s.Find(".wprm-recipe-ingredient-notes").Text()),
		)
		if line == "" {
			line = textutil.Clean(s.Text())
		}
		if line != "" {
			r.Ingredients = append(r.Ingredients, line)
		}
	})

	// Instruction groups are flattened in document order.
	card.Find(".wprm-recipe-instruction").Each(func(_ int, s *goquery.Selection) {
		text := s.Find(".wprm-recipe-instruction-text").First()
		desc := textutil.Clean(text.Text())
		if desc == "" {
			return
		}
		step := recipe.NewStep(desc)
		step.Files = page.ImageURLs(s.Find(".wprm-recipe-instruction-media"))
		r.Steps = append(r.Steps, step)
	})
	return r
}

// notes wraps ingredient notes in parentheses the way the card displays them.
func notes(s string) string {
	s = textutil.Clean(s)
	if s == "" || s[0] == '(' {
		return s
	}
	return "(" + s + ")"
}
