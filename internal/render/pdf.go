package render

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// PDF writes r as a single-column recipe card to outPath.
func PDF(r *recipe.ExternalRecipe, outPath string) error {
	return markdownPDF(Markdown(r), outPath)
}

// markdownPDF lays out the limited Markdown produced by Markdown: headings,
// list lines and inline links. Text is translated from UTF-8 to the core
// font code page so umlauts survive.
func markdownPDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(firstHeading(markdown), true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimRight(scanner.Text(), " ")
		if strings.TrimSpace(s) == "" {
			pdf.Ln(3)
			continue
		}
		if strings.HasPrefix(s, "#") {
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			size := 18.0
			if i >= 2 {
				size = 13.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, size*0.5, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		indent := len(s) - len(strings.TrimLeft(s, " "))
		if indent > 0 {
			pdf.SetX(pdf.GetX() + float64(indent)*2)
		}
		s = strings.TrimLeft(s, " ")

		links := linkRe.FindAllStringSubmatchIndex(s, -1)
		if len(links) == 0 {
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
			continue
		}
		pos := 0
		for _, m := range links {
			if m[0] > pos {
				pdf.Write(5, tr(s[pos:m[0]]))
			}
			pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
			pos = m[1]
		}
		if pos < len(s) {
			pdf.Write(5, tr(s[pos:]))
		}
		pdf.Ln(6)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

func firstHeading(markdown string) string {
	line, _, _ := strings.Cut(markdown, "\n")
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}
