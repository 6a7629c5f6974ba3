package model

import "strings"

// CanonicalName normalizes a raw Vensim name to its canonical form: lower
// case, every non-alphanumeric run replaced by a single underscore, and a
// leading underscore (see GLOSSARY, spec.md).
func CanonicalName(raw string) string {
	var b strings.Builder
	b.WriteByte('_')
	prevUnderscore := true // avoid a double leading underscore for already-clean names
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	out := b.String()
	return strings.TrimSuffix(out, "_")
}
