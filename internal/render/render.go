// Package render turns an extracted recipe into JSON, Markdown or PDF.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Format names accepted by ParseFormat.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, markdown or pdf)", s)
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatMarkdown:
		return ".md"
	case FormatPDF:
		return ".pdf"
	}
	return ".json"
}

// JSON writes r as indented JSON followed by a newline.
func JSON(w io.Writer, r *recipe.ExternalRecipe) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// Markdown renders r as a Markdown document. Media references become
// links so that the PDF renderer can keep them clickable.
func Markdown(r *recipe.ExternalRecipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Name)
	if len(r.Ingredients) > 0 {
		b.WriteString("\n## Ingredients\n\n")
		for _, ing := range r.Ingredients {
			fmt.Fprintf(&b, "- %s\n", ing)
		}
	}
	if len(r.Steps) > 0 {
		b.WriteString("\n## Steps\n\n")
		for i, s := range r.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.Description)
			if len(s.Ingredients) > 0 {
				fmt.Fprintf(&b, "   - Ingredients: %s\n", strings.Join(s.Ingredients, "; "))
			}
			for j, f := range s.Files {
				fmt.Fprintf(&b, "   - [Image %d](%s)\n", j+1, f)
			}
		}
	}
	if len(r.Files) > 0 {
		b.WriteString("\n## Media\n\n")
		for i, f := range r.Files {
			fmt.Fprintf(&b, "- [Image %d](%s)\n", i+1, f)
		}
	}
	return b.String()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

var germanFold = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// Slug derives a file name stem from a recipe name.
func Slug(name string) string {
	s := germanFold.Replace(strings.ToLower(strings.TrimSpace(norm.NFC.String(name))))
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	s = strings.Trim(nonSlug.ReplaceAllString(b.String(), "-"), "-")
	if s == "" {
		s = "recipe"
	}
	return s
}
