package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/source"
	"github.com/hyperifyio/gorecipe/internal/source/builtin"
	"github.com/hyperifyio/gorecipe/internal/source/sourcetest"
	"github.com/hyperifyio/gorecipe/internal/urlmatch"
)

type fakeAdapter struct {
	source.Matcher
	name  string
	calls atomic.Int32
	err   error
}

func newFake(name string, rules ...urlmatch.Rule) *fakeAdapter {
	return &fakeAdapter{Matcher: source.Matcher{Rules: rules}, name: name}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Get(ctx context.Context, u *url.URL) (*recipe.ExternalRecipe, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	r := recipe.New(f.name)
	r.Steps = append(r.Steps, recipe.NewStep(u.String()))
	return r, nil
}

var exampleRule = urlmatch.MustRule([]string{"https"}, []string{"example.com"}, "^/r/")

func TestGet_FirstRegisteredWins(t *testing.T) {
	first := newFake("first", exampleRule)
	second := newFake("second", exampleRule)
	d, err := New(first, second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 20; i++ {
		r, err := d.Get(context.Background(), "https://example.com/r/cake")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Name != "first" {
			t.Fatalf("call %d used %q", i, r.Name)
		}
	}
	if second.calls.Load() != 0 {
		t.Fatalf("second adapter must never run")
	}
}

func TestGet_InvalidURLNoNetwork(t *testing.T) {
	a := newFake("any", exampleRule)
	d, _ := New(a)
	for _, raw := range []string{"not a url", "", "://missing-scheme", "https://", "http:///r/cake", "/r/cake", "https://exa mple.com/"} {
		_, err := d.Get(context.Background(), raw)
		var ie *recipe.InvalidURLError
		if !errors.As(err, &ie) {
			t.Fatalf("%q: expected invalid url, got %v", raw, err)
		}
		if ie.Input != raw {
			t.Fatalf("%q: input not preserved: %q", raw, ie.Input)
		}
	}
	if a.calls.Load() != 0 {
		t.Fatalf("adapter must not run for invalid urls")
	}
}

func TestGet_NotSupportedKeepsOriginalString(t *testing.T) {
	d, _ := New(newFake("any", exampleRule))
	for _, raw := range []string{
		"https://example.org/r/cake?x=1&y=2/",
		"https://Example.com/x/cake/",
		"data:text/plain,cake",
		"https://127.0.0.1/r/cake",
	} {
		_, err := d.Get(context.Background(), raw)
		var ne *recipe.URLNotSupportedError
		if !errors.As(err, &ne) {
			t.Fatalf("%q: expected not supported, got %v", raw, err)
		}
		if ne.URL != raw {
			t.Fatalf("url changed: got %q want %q", ne.URL, raw)
		}
	}
}

func TestGet_PropagatesAdapterErrorUnchanged(t *testing.T) {
	want := &recipe.ParseError{URL: "u", Expected: "title"}
	a := newFake("broken", exampleRule)
	a.err = want
	d, _ := New(a)
	r, err := d.Get(context.Background(), "https://example.com/r/cake")
	if r != nil || err != want {
		t.Fatalf("expected the adapter's error unchanged, got %v %v", r, err)
	}
}

func TestGet_ConcurrentCalls(t *testing.T) {
	a := newFake("a", exampleRule)
	d, _ := New(a)
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw := fmt.Sprintf("https://example.com/r/%d", i)
			r, err := d.Get(context.Background(), raw)
			if err != nil {
				errs <- err
				return
			}
			if r.Steps[0].Description != raw {
				errs <- fmt.Errorf("call %d got %q", i, r.Steps[0].Description)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if a.calls.Load() != 32 {
		t.Fatalf("expected 32 calls, got %d", a.calls.Load())
	}
}

func TestNew_RejectsBadRegistry(t *testing.T) {
	if _, err := New(newFake("x", exampleRule), newFake("x", exampleRule)); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := New(newFake("", exampleRule)); err == nil {
		t.Fatalf("expected empty name error")
	}
	bad := urlmatch.MustRule([]string{"https"}, []string{"com"}, "^/")
	if _, err := New(newFake("tld", bad)); err == nil {
		t.Fatalf("expected rule validation error")
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("expected nil adapter error")
	}
}

func TestResolve_Builtin(t *testing.T) {
	d, err := New(builtin.Adapters(sourcetest.Unreachable{T: t})...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cases := map[string]string{
		"https://www.pinterest.de/pin/123/":                    "pinterest",
		"https://pin.it/AbC123":                                "pinterest",
		"https://sallys-blog.de/rezepte/zimtschnecken":         "sallyswelt",
		"https://knusperstuebchen.net/2021/09/14/apfel-crumble": "knusperstuebchen",
	}
	for raw, want := range cases {
		a, _, err := d.Resolve(raw)
		if err != nil || a.Name() != want {
			t.Fatalf("%s: resolved %v %v, want %s", raw, a, err, want)
		}
	}
	if _, _, err := d.Resolve("https://example.com/r/cake"); !errors.Is(err, recipe.ErrURLNotSupported) {
		t.Fatalf("expected not supported, got %v", err)
	}
}

func TestGet_CancelledContextReachesAdapter(t *testing.T) {
	const raw = "https://sallys-blog.de/rezepte/zimtschnecken"
	g := sourcetest.NewGetter()
	d, _ := New(builtin.Adapters(g)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := d.Get(ctx, raw)
	if r != nil || !errors.Is(err, recipe.ErrFetch) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled fetch error, got %v %v", r, err)
	}
}
