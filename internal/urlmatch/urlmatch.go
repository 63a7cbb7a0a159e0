// Package urlmatch decides whether a URL belongs to a registered recipe
// source. A Rule accepts a URL when its scheme is listed, one of its domain
// suffixes is listed exactly, and its path matches the rule's pattern.
package urlmatch

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Rule is an immutable URL matching rule owned by a source adapter.
type Rule struct {
	Schemes []string
	// Domains are bare registrable domains or subdomains, lowercase.
	Domains []string
	Path    *regexp.Regexp
}

// MustRule builds a Rule and panics when pathPattern does not compile.
// It is meant for package-level adapter rule tables.
func MustRule(schemes, domains []string, pathPattern string) Rule {
	return Rule{
		Schemes: schemes,
		Domains: domains,
		Path:    regexp.MustCompile(pathPattern),
	}
}

// PreparedURL is the matching-ready view of a URL.
type PreparedURL struct {
	Scheme string
	// Domains holds every domain suffix, most specific first. The bare
	// top-level label is not included.
	Domains []string
	Path    string
}

// Prepare decomposes u for matching. It returns false when u has no domain,
// for example an opaque URL such as data:, an empty host, or an IP literal.
func Prepare(u *url.URL) (PreparedURL, bool) {
	if u == nil || u.Opaque != "" {
		return PreparedURL{}, false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || net.ParseIP(host) != nil {
		return PreparedURL{}, false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return PreparedURL{
		Scheme:  strings.ToLower(u.Scheme),
		Domains: domainSuffixes(host),
		Path:    path,
	}, true
}

// domainSuffixes returns "a.b.c" as ["a.b.c", "b.c"].
func domainSuffixes(host string) []string {
	labels := strings.Split(host, ".")
	out := make([]string, 0, len(labels))
	for i := 0; i < len(labels)-1; i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

// IsMatch reports whether the rule accepts the prepared URL.
func (r Rule) IsMatch(p PreparedURL) bool {
	if !slices.Contains(r.Schemes, p.Scheme) {
		return false
	}
	found := false
	for _, d := range p.Domains {
		if slices.Contains(r.Domains, d) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return r.Path != nil && r.Path.MatchString(p.Path)
}

// MatchAny prepares u once and reports whether any rule accepts it.
func MatchAny(rules []Rule, u *url.URL) bool {
	p, ok := Prepare(u)
	if !ok {
		return false
	}
	for _, r := range rules {
		if r.IsMatch(p) {
			return true
		}
	}
	return false
}

// Validate checks that the rule can ever match and that every domain is a
// lowercase registrable domain (or a subdomain of one) rather than a public
// suffix such as "com" or "co.uk".
func (r Rule) Validate() error {
	if len(r.Schemes) == 0 {
		return errors.New("rule has no schemes")
	}
	for _, s := range r.Schemes {
		if s == "" || s != strings.ToLower(s) {
			return fmt.Errorf("scheme %q must be non-empty lowercase", s)
		}
	}
	if len(r.Domains) == 0 {
		return errors.New("rule has no domains")
	}
	for _, d := range r.Domains {
		if d != strings.ToLower(d) {
			return fmt.Errorf("domain %q must be lowercase", d)
		}
		if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
			return fmt.Errorf("domain %q is not registrable: %w", d, err)
		}
	}
	if r.Path == nil {
		return errors.New("rule has no path pattern")
	}
	return nil
}

// String renders the rule for listings and logs.
func (r Rule) String() string {
	path := "<nil>"
	if r.Path != nil {
		path = r.Path.String()
	}
	return fmt.Sprintf("%s://{%s}%s", strings.Join(r.Schemes, "|"), strings.Join(r.Domains, ","), path)
}
