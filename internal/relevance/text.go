package relevance

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var wordRe = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)*`)

// folder performs Unicode case folding so matching is stable across
// catalog data that mixes cases and the occasional non-ASCII name.
var folder = cases.Fold()

// normalize case-folds s for keyword matching.
func normalize(s string) string {
	return folder.String(s)
}

// words splits normalized text into matchable tokens, keeping hyphenated
// terms ("moisture-wicking") whole.
func words(s string) []string {
	return wordRe.FindAllString(normalize(s), -1)
}

// wordSet returns the token set of normalized text.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range words(s) {
		set[w] = struct{}{}
	}
	return set
}

// significantWords returns tokens of s longer than two characters that
// are not stop words.
func significantWords(s string, stop map[string]struct{}) []string {
	var out []string
	for _, w := range words(s) {
		if len(w) <= 2 {
			continue
		}
		if _, ok := stop[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

// containsWord reports whether the normalized text contains term as a
// substring. Substring (not token) matching is intentional: category
// keywords like "pack" should hit "backpack".
func containsWord(text, term string) bool {
	return strings.Contains(normalize(text), normalize(term))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[normalize(it)] = struct{}{}
	}
	return set
}
