package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName makes an item identifier safe to use as one path segment.
// The input is NFC-normalized first so visually identical identifiers map to
// the same name. Path and glob separators become dashes; quoting and
// redirection characters and control characters are dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	return strings.TrimSpace(strings.Map(fileNameRune, name))
}

func fileNameRune(r rune) rune {
	switch r {
	case '/', '\\', ':', '*':
		return '-'
	case '?', '"', '<', '>', '|':
		return -1
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

// SanitizeToken reduces value to a lowercase ASCII token of letters, digits,
// dashes, and underscores. Any other rune becomes an underscore. Returns
// "unknown" when nothing usable remains.
func SanitizeToken(value string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if out = strings.Trim(out, "_-"); out == "" {
		return "unknown"
	}
	return out
}
