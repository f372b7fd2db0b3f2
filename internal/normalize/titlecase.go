package normalize

import (
	"strings"
	"unicode"
)

// TitleCase uppercases the first letter of every word in s, where a word
// starts at the beginning of the string or after a non-word rune. Applied to
// city names and geocoding candidate names before they are returned.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevWord := false
	for _, r := range s {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if isWord && !prevWord {
			r = unicode.ToUpper(r)
		}
		prevWord = isWord
		b.WriteRune(r)
	}
	return b.String()
}
