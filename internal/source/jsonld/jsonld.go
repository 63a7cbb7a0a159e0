// Package jsonld finds a schema.org Recipe in the JSON-LD blocks of a page.
package jsonld

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/textutil"
)

// Recipe is the subset of schema.org/Recipe the adapters use.
type Recipe struct {
	Name         string
	Ingredients  []string
	Images       []string
	Instructions []Instruction
}

// Instruction is one HowToStep, or one line of a plain-text instruction list.
type Instruction struct {
	Text   string
	Images []string
}

var strict = bluemonday.StrictPolicy()

// Find returns the first Recipe node across all application/ld+json
// scripts of doc, in document order. Scripts that fail to decode are
// skipped.
func Find(doc *goquery.Document) (*Recipe, bool) {
	var found *Recipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		if node := findRecipeNode(v); node != nil {
			found = decode(node)
			return false
		}
		return true
	})
	return found, found != nil
}

// findRecipeNode walks arrays and @graph containers depth first.
func findRecipeNode(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findRecipeNode(item); n != nil {
				return n
			}
		}
	case map[string]any:
		if hasType(t["@type"], "Recipe") {
			return t
		}
		if g, ok := t["@graph"]; ok {
			return findRecipeNode(g)
		}
		if e, ok := t["mainEntity"]; ok {
			return findRecipeNode(e)
		}
	}
	return nil
}

func hasType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want || strings.HasSuffix(t, "/"+want)
	case []any:
		for _, x := range t {
			if hasType(x, want) {
				return true
			}
		}
	}
	return false
}

func decode(n map[string]any) *Recipe {
	r := &Recipe{
		Name:         text(asString(n["name"])),
		Ingredients:  []string{},
		Images:       images(n["image"]),
		Instructions: []Instruction{},
	}
	ing := n["recipeIngredient"]
	if ing == nil {
		ing = n["ingredients"]
	}
	for _, s := range stringList(ing) {
		if t := text(s); t != "" {
			r.Ingredients = append(r.Ingredients, t)
		}
	}
	r.Instructions = instructions(n["recipeInstructions"], r.Instructions)
	return r
}

// External converts r into the normalized recipe shape. resolve maps each
// media reference to an absolute URL and returns "" to drop it.
func (r *Recipe) External(resolve func(string) string) *recipe.ExternalRecipe {
	out := recipe.New(r.Name)
	out.Ingredients = append(out.Ingredients, r.Ingredients...)
	out.Files = resolveAll(r.Images, resolve)
	for _, in := range r.Instructions {
		step := recipe.NewStep(in.Text)
		step.Files = resolveAll(in.Images, resolve)
		out.Steps = append(out.Steps, step)
	}
	return out
}

func resolveAll(refs []string, resolve func(string) string) []string {
	out := []string{}
	for _, ref := range refs {
		if u := resolve(ref); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func instructions(v any, out []Instruction) []Instruction {
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(strict.Sanitize(breaksToNewlines(t)), "\n") {
			if s := textutil.Clean(line); s != "" {
				out = append(out, Instruction{Text: s, Images: []string{}})
			}
		}
	case []any:
		for _, item := range t {
			out = instructions(item, out)
		}
	case map[string]any:
		if hasType(t["@type"], "HowToSection") || t["itemListElement"] != nil {
			return instructions(t["itemListElement"], out)
		}
		s := text(asString(t["text"]))
		if s == "" {
			s = text(asString(t["name"]))
		}
		if s != "" {
			out = append(out, Instruction{Text: s, Images: images(t["image"])})
		}
	}
	return out
}

// images accepts a URL string, an ImageObject, or a list of either.
func images(v any) []string {
	out := []string{}
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, x := range t {
				walk(x)
			}
		case map[string]any:
			if u := asString(t["url"]); u != "" {
				walk(u)
			} else {
				walk(asString(t["contentUrl"]))
			}
		}
	}
	walk(v)
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s := asString(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// text strips markup embedded in a JSON-LD string value and normalizes it.
func text(s string) string {
	return textutil.Clean(strict.Sanitize(s))
}

func breaksToNewlines(s string) string {
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</li>", "\n")
	return r.Replace(s)
}
