package textutil

import "strings"

// IdentifierSeparator joins the slug and identifier in an asset file name.
// SanitizeIdentifier never emits it, so the first occurrence in a name always
// ends the slug.
const IdentifierSeparator = "__"

// SanitizeIdentifier makes an asset identifier safe to embed in a file name.
// Letters, digits, '-', '_' and '.' are kept with their case; anything else
// becomes '-'. Runs of '_' collapse to one so the result can never contain
// IdentifierSeparator. Leading dots and separators are dropped so the name
// is never hidden. Returns "unknown" when nothing survives.
func SanitizeIdentifier(id string) string {
	var b strings.Builder
	var prev rune
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
		case r == '_':
			if prev == '_' {
				continue
			}
		default:
			r = '-'
		}
		b.WriteRune(r)
		prev = r
	}
	out := strings.TrimLeft(b.String(), ".-_")
	out = strings.TrimRight(out, "-_")
	if out == "" {
		return "unknown"
	}
	return out
}

// SanitizeToken converts a label into a lowercase directory token. Diacritics
// are folded away first, so "Café Pack" becomes "cafe-pack". Characters other
// than a-z, 0-9, '-' and '_' become '-', and runs of separators collapse to
// the first one. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	var b strings.Builder
	sep := true
	for _, r := range FoldText(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			sep = false
		case r == '_' || r == '-':
			if !sep {
				b.WriteRune(r)
				sep = true
			}
		default:
			if !sep {
				b.WriteByte('-')
				sep = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-_")
	if out == "" {
		return "unknown"
	}
	return out
}
