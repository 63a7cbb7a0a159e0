// Package ingredient parses free-text ingredient lines such as
// "200 g Mehl" or "1 1/2 cups sugar" into quantity, unit and name.
package ingredient

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Parsed is one ingredient line. Quantity is nil when the line has no
// number; Unit is empty when no unit was recognized.
type Parsed struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Name     string   `json:"name"`
}

// DefaultUnits are common German and English kitchen units. Matching is
// exact, so both spellings of case-sensitive abbreviations are listed.
var DefaultUnits = []string{
	"g", "kg", "mg", "ml", "cl", "dl", "l", "L",
	"EL", "TL", "el", "tl", "Msp.", "Msp", "Prise", "Prisen",
	"Pck.", "Pck", "Päckchen", "Packung", "Becher", "Dose", "Dosen",
	"Bund", "Stück", "Stk.", "Scheibe", "Scheiben", "Zehe", "Zehen",
	"Tasse", "Tassen", "Glas", "Würfel", "Tropfen", "Handvoll",
	"tbsp", "tsp", "Tbsp", "Tsp", "cup", "cups", "oz", "lb", "lbs",
	"pinch", "can", "cans", "clove", "cloves", "slice", "slices",
}

const num = `[0-9]+(?:[.,][0-9]+)?`

var (
	rangeRe    = regexp.MustCompile(`(` + num + `)[-\x{2013}](` + num + `)`)
	mixedRe    = regexp.MustCompile(`([0-9]+)\+([0-9]+)/([0-9]+)`)
	fractionRe = regexp.MustCompile(`(` + num + `)/(` + num + `)`)
	numberRe   = regexp.MustCompile(num)
	integerRe  = regexp.MustCompile(`^[0-9]+$`)
	pureFracRe = regexp.MustCompile(`^[0-9]+/[0-9]+$`)
)

type quantity struct {
	value  float64
	index  int
	prefix string
	suffix string
}

// Parse splits line on whitespace and interprets the tokens. It returns
// false for a blank line.
func Parse(line string, units []string) (Parsed, bool) {
	return fromParts(strings.Fields(line), units)
}

// fromParts interprets already split tokens, one table cell or one word each.
func fromParts(parts []string, units []string) (Parsed, bool) {
	parts = mergeMixedNumbers(parts)
	switch len(parts) {
	case 0:
		return Parsed{}, false
	case 1:
		return Parsed{Name: parts[0]}, true
	}
	q, hasQ := findQuantity(parts)
	ui := findUnit(parts, units)

	if len(parts) == 2 {
		switch {
		case hasQ:
			return Parsed{Quantity: &q.value, Unit: q.unit(), Name: parts[1-q.index]}, true
		case ui >= 0:
			return Parsed{Unit: parts[ui], Name: parts[1-ui]}, true
		}
		return Parsed{Name: strings.Join(parts, " ")}, true
	}

	if hasQ {
		p := Parsed{Quantity: &q.value, Unit: q.unit()}
		if p.Unit == "" && ui >= 0 {
			p.Unit = parts[ui]
		}
		// A listed unit token leaves the name even when the unit came
		// from text glued to the number ("ca.2 EL Zucker").
		p.Name = joinExcept(parts, q.index, ui)
		return p, true
	}
	if ui >= 0 {
		return Parsed{Unit: parts[ui], Name: joinExcept(parts, ui, -1)}, true
	}
	return Parsed{Name: strings.Join(parts, " ")}, true
}

// mergeMixedNumbers joins "1" "1/2" (or "1" "½") into one token.
func mergeMixedNumbers(parts []string) []string {
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		if i+1 < len(parts) && integerRe.MatchString(parts[i]) {
			next := expandVulgarFractions(parts[i+1])
			if pureFracRe.MatchString(next) {
				out = append(out, parts[i]+"+"+next)
				i++
				continue
			}
		}
		out = append(out, parts[i])
	}
	return out
}

// unit is text glued to the number, e.g. "g" in "200g".
func (q quantity) unit() string {
	if s := strings.TrimSpace(q.suffix); s != "" {
		return s
	}
	return strings.TrimSpace(q.prefix)
}

func findQuantity(parts []string) (quantity, bool) {
	for i, p := range parts {
		if v, prefix, suffix, ok := parseNumber(p); ok {
			return quantity{value: v, index: i, prefix: prefix, suffix: suffix}, true
		}
	}
	return quantity{}, false
}

func findUnit(parts []string, units []string) int {
	for i, p := range parts {
		for _, u := range units {
			if p == u {
				return i
			}
		}
	}
	return -1
}

func joinExcept(parts []string, skip ...int) string {
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		keep := true
		for _, s := range skip {
			if i == s {
				keep = false
			}
		}
		if keep {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// parseNumber finds the first quantity in token. Ranges give their
// midpoint. Vulgar fractions such as "½" are decomposed with NFKC.
func parseNumber(token string) (v float64, prefix, suffix string, ok bool) {
	s := expandVulgarFractions(token)
	if m := rangeRe.FindStringSubmatchIndex(s); m != nil {
		a, b := atof(s[m[2]:m[3]]), atof(s[m[4]:m[5]])
		return (a + b) / 2, s[:m[0]], s[m[1]:], true
	}
	if m := mixedRe.FindStringSubmatchIndex(s); m != nil {
		whole, n, d := atof(s[m[2]:m[3]]), atof(s[m[4]:m[5]]), atof(s[m[6]:m[7]])
		if d != 0 {
			return whole + n/d, s[:m[0]], s[m[1]:], true
		}
	}
	if m := fractionRe.FindStringSubmatchIndex(s); m != nil {
		n, d := atof(s[m[2]:m[3]]), atof(s[m[4]:m[5]])
		if d != 0 {
			return n / d, s[:m[0]], s[m[1]:], true
		}
	}
	if m := numberRe.FindStringIndex(s); m != nil {
		return atof(s[m[0]:m[1]]), s[:m[0]], s[m[1]:], true
	}
	return 0, "", "", false
}

// expandVulgarFractions rewrites "1½" as "1+1/2" and "½" as "1/2".
func expandVulgarFractions(s string) string {
	if !strings.ContainsFunc(s, isVulgarFraction) {
		return s
	}
	var b strings.Builder
	prevDigit := false
	for _, r := range s {
		if isVulgarFraction(r) {
			if prevDigit {
				b.WriteByte('+')
			}
			b.WriteString(strings.ReplaceAll(norm.NFKC.String(string(r)), "\u2044", "/"))
			prevDigit = false
			continue
		}
		b.WriteRune(r)
		prevDigit = unicode.IsDigit(r)
	}
	return b.String()
}

func isVulgarFraction(r rune) bool {
	return unicode.Is(unicode.No, r) && strings.ContainsRune(norm.NFKC.String(string(r)), '\u2044')
}

func atof(s string) float64 {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

var separators = []string{"\n", ",", ";"}

// ParseText splits a block of ingredients and parses every line. The
// separator is whichever of newline, comma and semicolon occurs in text
// and yields the most uniform part lengths.
func ParseText(text string, units []string) []Parsed {
	sep := pickSeparator(text)
	var lines []string
	if sep == "" {
		lines = []string{text}
	} else {
		lines = strings.Split(text, sep)
	}
	out := []Parsed{}
	for _, line := range lines {
		if p, ok := Parse(line, units); ok {
			out = append(out, p)
		}
	}
	return out
}

func pickSeparator(text string) string {
	best, bestDev := "", math.Inf(1)
	for _, sep := range separators {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.Split(text, sep)
		lengths := make([]float64, len(parts))
		for i, p := range parts {
			lengths[i] = float64(len([]rune(p)))
		}
		if d := stddev(lengths); d < bestDev {
			best, bestDev = sep, d
		}
	}
	return best
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
