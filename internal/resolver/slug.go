package resolver

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mozillazg/go-unidecode"
)

// Slugify derives a URL-safe slug from a display name: transliterate to
// ASCII (stripping diacritics and tone marks), lowercase, drop apostrophes
// so possessives stay joined, and collapse everything else into single
// hyphens. Returns "" when nothing survives.
func Slugify(name string) string {
	ascii := unidecode.Unidecode(name)
	var b strings.Builder
	b.Grow(len(ascii))
	lastHyphen := true
	for _, r := range strings.ToLower(ascii) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '\'':
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// slugOrSynthesize never returns an empty slug: when transliteration yields
// nothing it falls back to a generated identifier.
func slugOrSynthesize(name string) string {
	if slug := Slugify(name); slug != "" {
		return slug
	}
	return "e-" + uuid.NewString()[:8]
}

// collisionSlug disambiguates a slug already owned by a different external
// identity by suffixing the incoming external id.
func collisionSlug(slug, externalID string) string {
	return slug + "-t-" + externalID
}
