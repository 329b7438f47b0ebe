package upload

import (
	"strings"
	"unicode"
)

// MaxTitleLength is the longest title, in characters, sent to the upload endpoint.
const MaxTitleLength = 255

var forbiddenTitleChars = strings.NewReplacer(
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize makes name safe to use as a media title: characters that are invalid in file
// names become underscores, leading and trailing dots and whitespace are removed, and the
// result is cut to MaxTitleLength characters.
func Sanitize(name string) string {
	cleaned := forbiddenTitleChars.Replace(name)
	cleaned = strings.TrimFunc(cleaned, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
	if runes := []rune(cleaned); len(runes) > MaxTitleLength {
		cleaned = string(runes[:MaxTitleLength])
	}
	return cleaned
}

// encodeURIComponent percent-encodes every byte of s except ASCII letters, digits and
// the marks - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponentByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreservedComponentByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
