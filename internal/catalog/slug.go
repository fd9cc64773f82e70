package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	skuCodeRe    = regexp.MustCompile(`^[A-Z0-9-]+$`)
)

// DeriveSlug creates a URL-safe slug from a display name.
// Accents are folded to ASCII, runs of other characters become a single
// hyphen, and leading or trailing hyphens are dropped.
func DeriveSlug(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	slug := strings.ToLower(folded)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// NormalizeSKUCode trims and uppercases a SKU code.
func NormalizeSKUCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
