package moderation

import "strings"

// toxicKeywords is a static highlighter vocabulary. It is independent of the
// classifier and intentionally naive: exact word equality, case-insensitive,
// no punctuation trimming.
var toxicKeywords = map[string]struct{}{
	"hate":   {},
	"stupid": {},
	"idiot":  {},
	"dumb":   {},
	"kill":   {},
	"trash":  {},
	"ugly":   {},
}

// Explain wraps known toxic keywords in bold markers and rejoins the text
// with single spaces.
func Explain(text string) string {
	words := strings.Fields(text)
	highlighted := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := toxicKeywords[strings.ToLower(w)]; ok {
			highlighted = append(highlighted, "**"+w+"**")
		} else {
			highlighted = append(highlighted, w)
		}
	}
	return strings.Join(highlighted, " ")
}
