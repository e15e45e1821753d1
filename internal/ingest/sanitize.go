package ingest

import "strings"

// SanitizeContextID strips everything except alphanumerics, underscore,
// and hyphen from a requested context name. Idempotent: sanitizing an
// already-sanitized id returns it unchanged.
func SanitizeContextID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
