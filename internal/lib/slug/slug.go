// Package slug derives URL-safe identifiers from free text.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removed characters are dropped without leaving a separator behind,
// so "don't" becomes "dont" rather than "don-t".
const removed = `*+~.()'"!:@`

// letters that do not decompose into a base letter plus a combining mark.
var expand = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'œ': "oe",
	'ø': "o",
	'đ': "d",
	'ł': "l",
	'þ': "th",
	'ð': "d",
}

// Make returns a lower-case slug over [a-z0-9-] with single hyphens between
// words and none at either end. Text without any latin letters or digits
// yields an empty string.
func Make(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))

	pending := false
	write := func(s string) {
		if pending && b.Len() > 0 {
			b.WriteByte('-')
		}
		pending = false
		b.WriteString(s)
	}

	for _, r := range strings.ToLower(folded) {
		switch {
		case strings.ContainsRune(removed, r):
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			write(string(r))
		default:
			if s, ok := expand[r]; ok {
				write(s)
				continue
			}
			pending = true
		}
	}

	return b.String()
}

// MakeOrFallback behaves like Make but never returns an empty slug: when
// nothing usable survives it returns prefix followed by a short random id.
func MakeOrFallback(text, prefix string) string {
	if s := Make(text); s != "" {
		return s
	}

	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithSuffix appends "-n" to base for n > 0.
func WithSuffix(base string, n int) string {
	if n <= 0 {
		return base
	}

	return base + "-" + strconv.Itoa(n)
}
