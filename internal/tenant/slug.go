package tenant

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"dineflow/internal/store"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks turns "Café" into "Cafe" by dropping combining marks after
// canonical decomposition. Chained transformers keep state, so each call
// builds its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Slugify lowercases name, strips accents, drops apostrophes, collapses every
// other run of non-alphanumerics into one "-" and trims the ends.
func Slugify(name string) string {
	plain, _, err := transform.String(stripMarks(), name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	if b.Len() == 0 {
		return "restaurant"
	}
	return b.String()
}

// uniqueSlug appends -1, -2, ... until the slug is free.
func uniqueSlug(ctx context.Context, db *store.DB, name string) (string, error) {
	base := Slugify(name)
	candidate := base
	for i := 1; ; i++ {
		taken, err := db.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
