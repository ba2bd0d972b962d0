package search

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/chunkd/pkg/utils"
)

// Highlight returns a window of at most maxLen characters of content, starting a little
// before the first query term found. Without a match it truncates from the start.
func Highlight(content, query string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(content) <= maxLen {
		return content
	}
	runes := []rune(content)
	lower := []rune(strings.ToLower(content))
	if len(lower) != len(runes) {
		// Case folding changed the length; positions would not line up.
		return utils.Truncate(content, maxLen)
	}

	start := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if i := runeIndex(lower, []rune(term)); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return utils.Truncate(content, maxLen)
	}

	start -= maxLen / 4
	if start < 0 {
		start = 0
	}
	if start+maxLen > len(runes) {
		start = len(runes) - maxLen
	}
	snippet := string(runes[start : start+maxLen])
	if start > 0 {
		snippet = "..." + snippet
	}
	if start+maxLen < len(runes) {
		snippet += "..."
	}
	return snippet
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
