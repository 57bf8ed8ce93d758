package gmaps

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFilenameLen = 80

// SanitizeFilename turns a free-text destination into a safe filename
// stem: diacritics folded to ASCII (destination strings are mostly
// Vietnamese), everything outside [A-Za-z0-9] replaced with underscores,
// and the result truncated.
func SanitizeFilename(s string) string {
	folded := foldDiacritics(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	out := b.String()
	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	if out == "" {
		return "destination"
	}
	return out
}

// foldDiacritics decomposes the string and drops combining marks.
// đ/Đ do not decompose, so they are mapped explicitly.
func foldDiacritics(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
