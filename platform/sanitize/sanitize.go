// Package sanitize cleans caller-supplied text before it is stored or logged.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLabelLength bounds actor names and similar short labels.
const MaxLabelLength = 120

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags, including tags hidden behind common entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Label cleans a short single-line value such as an actor name: HTML and
// control characters are removed, whitespace runs collapse to one space and
// the result is cut to MaxLabelLength runes.
func Label(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, StripHTML(s))
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > MaxLabelLength {
		cleaned = strings.TrimSpace(string(runes[:MaxLabelLength]))
	}
	return cleaned
}
