// Package transcript accumulates finalized speech segments into a transcript.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Punctuate upper-cases the first character and terminates the text with a
// period unless it already ends in '.', '!' or '?'.
func Punctuate(text string) string {
	if text == "" {
		return text
	}

	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]

	if !endsWithTerminal(text) {
		text += "."
	}
	return text
}

// Append joins one finalized segment onto the current transcript with a single
// space. Blank segments leave the transcript untouched.
func Append(current string, segment string, punctuate bool) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return current
	}
	if punctuate {
		segment = Punctuate(segment)
	}
	if current == "" {
		return segment
	}
	return current + " " + segment
}

func endsWithTerminal(text string) bool {
	last, _ := utf8.DecodeLastRuneInString(text)
	switch last {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}
