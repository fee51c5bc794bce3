package nlp

import (
	"regexp"
	"strings"
)

var (
	fillerRe     = regexp.MustCompile(`(?i)\b(schedule|create|add|set|remind me|to do)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// titleFallbackLen caps the fallback title when cleaning strips everything.
const titleFallbackLen = 50

// CleanTitle derives a human title from the original command text by removing
// each extracted substring (first occurrence, literal match), stripping
// command-verb fillers, and collapsing whitespace. The transformation is
// lossy: leftover prepositions and articles are accepted. It is idempotent
// on its own output. An empty result falls back to a prefix of the original
// text.
func CleanTitle(text string, remove []string) string {
	clean := text
	for _, item := range remove {
		if item == "" {
			continue
		}
		clean = strings.Replace(clean, item, "", 1)
	}

	clean = fillerRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(whitespaceRe.ReplaceAllString(clean, " "))

	if clean == "" {
		return truncate(text, titleFallbackLen)
	}
	return clean
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
