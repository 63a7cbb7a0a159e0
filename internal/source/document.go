package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/textutil"
)

// Page is a fetched HTML page ready for querying.
type Page struct {
	// URL is the final URL after redirects; relative references resolve
	// against it.
	URL *url.URL
	Doc *goquery.Document
}

// FetchPage retrieves rawURL and parses it as HTML. Transport failures are
// returned unchanged from the getter. A 404 or 410 becomes a ParseError
// naming notFound; any other non-200 status becomes a FetchError.
func FetchPage(ctx context.Context, g fetch.Getter, rawURL string, notFound string) (*Page, error) {
	resp, err := g.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, &recipe.ParseError{URL: rawURL, Expected: notFound}
	default:
		return nil, &recipe.FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}
	return NewPage(rawURL, resp)
}

// NewPage parses a response body as HTML.
func NewPage(rawURL string, resp *fetch.Response) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &recipe.ParseError{URL: rawURL, Expected: "an HTML document", Err: err}
	}
	final := resp.URL
	if final == "" {
		final = rawURL
	}
	u, err := url.Parse(final)
	if err != nil {
		return nil, &recipe.ParseError{URL: rawURL, Expected: "a resolvable page URL", Err: err}
	}
	return &Page{URL: u, Doc: doc}, nil
}

// Resolve turns a possibly relative media reference into an absolute URL.
// Empty references and inline data: URIs yield "".
func (p *Page) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if p.URL == nil {
		return r.String()
	}
	return p.URL.ResolveReference(r).String()
}

// ImageURL returns the absolute image reference of an <img>, preferring
// lazy-loading attributes over src, which often holds a placeholder.
func (p *Page) ImageURL(img *goquery.Selection) string {
	for _, attr := range []string{"data-lazy-src", "data-src", "src"} {
		if v, ok := img.Attr(attr); ok {
			if abs := p.Resolve(v); abs != "" {
				return abs
			}
		}
	}
	return ""
}

// ImageURLs collects the image references under sel in document order,
// without duplicates.
func (p *Page) ImageURLs(sel *goquery.Selection) []string {
	out := []string{}
	seen := map[string]struct{}{}
	sel.Find("img").AddSelection(sel.Filter("img")).Each(func(_ int, img *goquery.Selection) {
		if u := p.ImageURL(img); u != "" {
			if _, dup := seen[u]; !dup {
				seen[u] = struct{}{}
				out = append(out, u)
			}
		}
	})
	return out
}

// MetaContent returns the content of <meta property=name> or <meta name=name>.
func (p *Page) MetaContent(name string) string {
	sel := p.Doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

// Text returns the cleaned text of the first element matching selector.
func (p *Page) Text(selector string) string {
	return textutil.Clean(p.Doc.Find(selector).First().Text())
}

// Texts returns the cleaned, non-empty texts of all elements matching
// selector within sel.
func Texts(sel *goquery.Selection, selector string) []string {
	out := []string{}
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := textutil.Clean(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}
