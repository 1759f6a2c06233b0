package retrieve

import (
	"strings"
	"unicode"
)

// Small English stop-word list. Questions about an asset register are short;
// anything fancier than this buys nothing for keyword overlap.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "how": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "their": {},
	"there": {}, "this": {}, "to": {}, "was": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "will": {},
	"with": {},
}

// Tokenize normalizes a question into matchable terms: lowercased,
// split on non-alphanumerics, stop-words and single characters dropped.
// Duplicates are removed so a repeated word cannot inflate scores.
func Tokenize(question string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, word := range splitWords(strings.ToLower(question)) {
		if len(word) < 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}
	return terms
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizePhrase collapses the question to a single-spaced lowercase string
// used for the exact-substring bonus. Punctuation is stripped the same way
// terms are, so "poor condition?" still matches "poor condition".
func normalizePhrase(question string) string {
	words := splitWords(strings.ToLower(question))
	if len(words) == 0 {
		return ""
	}
	return strings.Join(words, " ")
}
