package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

func sample() *recipe.ExternalRecipe {
	r := recipe.New("Käsekuchen & Co")
	r.Ingredients = append(r.Ingredients, "500 g Quark", "3 Eier")
	r.Files = append(r.Files, "https://example.com/cake.jpg")
	s1 := recipe.NewStep("Alles verrühren.")
	s1.Ingredients = append(s1.Ingredients, "500 g Quark", "3 Eier")
	s1.Files = append(s1.Files, "https://example.com/step1.jpg")
	r.Steps = append(r.Steps, s1, recipe.NewStep("Backen."))
	return r
}

func TestJSON_SnakeCaseAndArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, recipe.New("Leer")); err != nil {
		t.Fatalf("json: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"name": "Leer"`, `"ingredients": []`, `"files": []`, `"steps": []`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
	buf.Reset()
	_ = JSON(&buf, sample())
	var back recipe.ExternalRecipe
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Name != "Käsekuchen & Co" || len(back.Steps) != 2 {
		t.Fatalf("unexpected decode: %+v", back)
	}
	if strings.Contains(buf.String(), `\u0026`) {
		t.Fatalf("html escaping should be off: %s", buf.String())
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())
	want := "# Käsekuchen & Co\n\n" +
		"## Ingredients\n\n- 500 g Quark\n- 3 Eier\n\n" +
		"## Steps\n\n1. Alles verrühren.\n   - Ingredients: 500 g Quark; 3 Eier\n   - [Image 1](https://example.com/step1.jpg)\n2. Backen.\n\n" +
		"## Media\n\n- [Image 1](https://example.com/cake.jpg)\n"
	if md != want {
		t.Fatalf("markdown mismatch:\n%s\n---\n%s", md, want)
	}
}

func TestPDF_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cake.pdf")
	if err := PDF(sample(), out); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", b[:8])
	}
}

func TestSlugAndFormat(t *testing.T) {
	cases := map[string]string{
		"Käsekuchen & Co":  "kaesekuchen-co",
		"  Crème brûlée ":  "creme-brulee",
		"Großmutters Brot": "grossmutters-brot",
		"!!!":              "recipe",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if f, err := ParseFormat("MD"); err != nil || f != FormatMarkdown || Extension(f) != ".md" {
		t.Fatalf("ParseFormat(MD) = %q %v", f, err)
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
