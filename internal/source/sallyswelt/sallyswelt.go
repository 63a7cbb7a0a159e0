// Package sallyswelt extracts recipes from sallys-blog.de recipe pages.
package sallyswelt

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/textutil"
	"github.com/hyperifyio/gorecipe/internal/urlmatch"
)

const Name = "sallyswelt"

var rules = []urlmatch.Rule{
	urlmatch.MustRule([]string{"https"}, []string{"sallys-blog.de"}, `^/rezepte/[^/]+/?$`),
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
	name := page.Text("h1.recipe-title")
	if name == "" {
		return nil, &recipe.ParseError{URL: raw, Expected: "recipe title (h1.recipe-title)"}
	}
	r := recipe.New(name)
	r.Ingredients = source.Texts(page.Doc.Selection, ".recipe-ingredients li")
	r.Files = page.ImageURLs(page.Doc.Find(".recipe-header").First())

	page.Doc.Find(".recipe-step").Each(func(_ int, s *goquery.Selection) {
		desc := textutil.Clean(s.Find(".recipe-step-text").First().Text())
		if desc == "" {
			return
		}
		step := recipe.NewStep(desc)
		step.Ingredients = source.Texts(s, ".recipe-step-ingredients li")
		step.Files = page.ImageURLs(s)
		r.Steps = append(r.Steps, step)
	})
	if err := r.Validate(raw); err != nil {
		return nil, err
	}
	return r, nil
}
