package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes document text: trims it and collapses every whitespace run,
// newlines included, into a single space. Stored content is the preprocessed text.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
