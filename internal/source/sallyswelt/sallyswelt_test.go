package sallyswelt

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source/sourcetest"
)

const pageURL = "https://sallys-blog.de/rezepte/zimtschnecken/"

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestCanGet(t *testing.T) {
	a := New(sourcetest.Unreachable{T: t})
	cases := map[string]bool{
		"https://sallys-blog.de/rezepte/zimtschnecken":      true,
		"https://www.sallys-blog.de/rezepte/zimtschnecken/": true,
		"https://sallys-blog.de/rezepte/":                   false,
		"https://sallys-blog.de/rezepte/a/b":                false,
		"https://sallys-blog.de/blog/zimtschnecken":         false,
		"http://sallys-blog.de/rezepte/zimtschnecken":       false,
		"https://sallys-blog.de.evil.com/rezepte/x":         false,
	}
	for raw, want := range cases {
		if got := a.CanGet(mustURL(t, raw)); got != want {
			t.Fatalf("%s: CanGet = %v, want %v", raw, got, want)
		}
	}
}

func TestGet_RecipePage(t *testing.T) {
	g := sourcetest.NewGetter().HTML(pageURL, "", sourcetest.Fixture(t, "recipe.html"))
	got, err := New(g).Get(context.Background(), mustURL(t, pageURL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &recipe.ExternalRecipe{
		Name: "Zimtschnecken mit Frischkäse-Frosting",
		Ingredients: []string{
			"500 g Weizenmehl Type 405",
			"1 Würfel frische Hefe",
			"250 ml Milch",
			"2 TL Zimt",
		},
		Files: []string{"https://sallys-blog.de/media/rezepte/zimtschnecken/titel.jpg"},
		Steps: []recipe.ExternalRecipeStep{
			{
				Description: "Mehl, Hefe und lauwarme Milch zu einem glatten Teig verkneten.",
				Ingredients: []string{"500 g Weizenmehl Type 405", "1 Würfel frische Hefe", "250 ml Milch"},
				Files:       []string{"https://cdn.sallys-blog.de/steps/teig.jpg"},
			},
			{
				Description: "Teig ausrollen, mit Zimt bestreuen & aufrollen.",
				Ingredients: []string{"2 TL Zimt"},
				Files:       []string{"https://sallys-blog.de/rezepte/steps/rollen.jpg"},
			},
			{
				Description: "Bei 180 °C ca. 25 Minuten backen.",
				Ingredients: []string{},
				Files:       []string{},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("recipe mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestGet_Deterministic(t *testing.T) {
	g := sourcetest.NewGetter().HTML(pageURL, "", sourcetest.Fixture(t, "recipe.html"))
	a := New(g)
	first, _ := a.Get(context.Background(), mustURL(t, pageURL))
	for i := 0; i < 5; i++ {
		again, err := a.Get(context.Background(), mustURL(t, pageURL))
		if err != nil || !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v", i, err)
		}
	}
}

func TestGet_MissingElements(t *testing.T) {
	cases := map[string]string{
		"no_steps.html": "at least one recipe step",
		"no_title.html": "recipe title (h1.recipe-title)",
	}
	for fixture, expected := range cases {
		g := sourcetest.NewGetter().HTML(pageURL, "", sourcetest.Fixture(t, fixture))
		r, err := New(g).Get(context.Background(), mustURL(t, pageURL))
		var pe *recipe.ParseError
		if r != nil || !errors.As(err, &pe) || pe.Expected != expected {
			t.Fatalf("%s: expected parse error %q, got %v %v", fixture, expected, r, err)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	g := sourcetest.NewGetter()
	if _, err := New(g).Get(context.Background(), mustURL(t, pageURL)); !errors.Is(err, recipe.ErrParse) {
		t.Fatalf("expected parse error for 404, got %v", err)
	}
	g = sourcetest.NewGetter().Status(pageURL, "", 500, []byte("oops"))
	if _, err := New(g).Get(context.Background(), mustURL(t, pageURL)); !errors.Is(err, recipe.ErrFetch) {
		t.Fatalf("expected fetch error for 500, got %v", err)
	}
}

func TestGet_TimeoutIsFetchError(t *testing.T) {
	g := sourcetest.NewGetter().Timeout(pageURL)
	r, err := New(g).Get(context.Background(), mustURL(t, pageURL))
	if r != nil || !errors.Is(err, recipe.ErrFetch) {
		t.Fatalf("expected fetch error and no recipe, got %v %v", r, err)
	}
}
