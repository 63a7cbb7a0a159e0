// Package sourcetest provides an in-memory fetch.Getter for adapter tests.
package sourcetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Getter serves canned responses keyed by requested URL and records calls.
// Unknown URLs answer 404.
type Getter struct {
	mu        sync.Mutex
	responses map[string]*fetch.Response
	errs      map[string]error
	calls     []string
}

func NewGetter() *Getter {
	return &Getter{responses: map[string]*fetch.Response{}, errs: map[string]error{}}
}

// HTML registers a 200 text/html response. finalURL may differ from url to
// simulate a redirect; empty means no redirect.
func (g *Getter) HTML(url, finalURL string, body []byte) *Getter {
	return g.Status(url, finalURL, 200, body)
}

// Status registers a response with the given status code.
func (g *Getter) Status(url, finalURL string, status int, body []byte) *Getter {
	if finalURL == "" {
		finalURL = url
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[url] = &fetch.Response{
		URL:         finalURL,
		StatusCode:  status,
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}
	return g
}

// Fail makes requests for url return err.
func (g *Getter) Fail(url string, err error) *Getter {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[url] = err
	return g
}

// Timeout makes requests for url fail the way the client reports a
// deadline being exceeded.
func (g *Getter) Timeout(url string) *Getter {
	return g.Fail(url, &recipe.FetchError{URL: url, Err: context.DeadlineExceeded})
}

func (g *Getter) Get(ctx context.Context, url string) (*fetch.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, url)
	if err := ctx.Err(); err != nil {
		return nil, &recipe.FetchError{URL: url, Err: err}
	}
	if err, ok := g.errs[url]; ok {
		return nil, err
	}
	if r, ok := g.responses[url]; ok {
		cp := *r
		return &cp, nil
	}
	return &fetch.Response{URL: url, StatusCode: 404, Body: []byte("not found")}, nil
}

// Calls returns the URLs requested so far.
func (g *Getter) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Fixture reads testdata/name.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return b
}

// Unreachable is a Getter that fails the test when used.
type Unreachable struct{ T testing.TB }

func (u Unreachable) Get(ctx context.Context, url string) (*fetch.Response, error) {
	u.T.Errorf("unexpected fetch of %s", url)
	return nil, fmt.Errorf("unexpected fetch of %s", url)
}
