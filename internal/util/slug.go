package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify turns a title into a lowercase ASCII slug. Accents are dropped,
// so "Café Olé" becomes "cafe-ole".
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	slug := slugInvalid.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}

func IsValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}
