// Package shortcut provides normalization for guide shortcuts.
// The normalized form is the source of truth for guide addressing: storage
// and lookup both go through Normalize, so differently written forms of the
// same shortcut resolve to the same guide.
package shortcut

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Normalize converts a string to a URL-safe shortcut.
// "Reset Password" -> "reset-password".
// "Déjà Vu" -> "deja-vu".
// "VPN_Setup (Windows)" -> "vpn-setup-windows".
func Normalize(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	// Lowercase.
	s = strings.ToLower(s)

	// Replace non-alphanumeric with hyphens.
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	// Collapse multiple hyphens.
	s = multipleHyphens.ReplaceAllString(s, "-")

	// Trim leading/trailing hyphens.
	s = strings.Trim(s, "-")

	return s
}
