package ingredient

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses an ingredient list pasted from a web page. Table rows
// give one ingredient each with every non-empty cell as one part. List
// items are parsed like text lines. When the markup holds neither, the
// visible text of the document goes through ParseText.
func ParseHTML(html string, units []string) ([]Parsed, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	out := []Parsed{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			if t := strings.Join(strings.Fields(cell.Text()), " "); t != "" {
				cells = append(cells, t)
			}
		})
		if p, ok := fromParts(cells, units); ok {
			out = append(out, p)
		}
	})
	doc.Find("ol > li, ul > li").Each(func(_ int, li *goquery.Selection) {
		if p, ok := Parse(li.Text(), units); ok {
			out = append(out, p)
		}
	})
	if len(out) > 0 {
		return out, nil
	}
	return ParseText(visibleText(doc), units), nil
}

// visibleText approximates rendered text: scripts and styles are dropped
// and block elements end their line.
func visibleText(doc *goquery.Document) string {
	doc.Find("head, script, style, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, section, article, dd, dt, blockquote, pre").AppendHtml("\n")
	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
