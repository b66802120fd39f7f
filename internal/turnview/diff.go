package turnview

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type WordToken struct {
	Word    string
	Correct bool
}

type CharToken struct {
	Char    rune
	Correct bool
}

// DiffWords marks each submitted word correct when it equals the target word
// at the same index after normalisation. The comparison is positional, not an
// alignment: one inserted or dropped word shifts every word after it.
func DiffWords(input, target string) []WordToken {
	inputWords := strings.Fields(input)
	targetWords := strings.Fields(target)
	tokens := make([]WordToken, 0, len(inputWords))
	for i, word := range inputWords {
		want := ""
		if i < len(targetWords) {
			want = normalizeWord(targetWords[i])
		}
		tokens = append(tokens, WordToken{Word: word, Correct: normalizeWord(word) == want})
	}
	return tokens
}

// DiffChars compares rune by rune, ignoring case. Used for close misses.
func DiffChars(input, target string) []CharToken {
	want := []rune(target)
	tokens := make([]CharToken, 0, len(input))
	for i, r := range []rune(input) {
		correct := i < len(want) && unicode.ToLower(r) == unicode.ToLower(want[i])
		tokens = append(tokens, CharToken{Char: r, Correct: correct})
	}
	return tokens
}

func normalizeWord(word string) string {
	// Casers carry state, so each call gets its own.
	folded := cases.Lower(language.Und).String(word)
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, folded))
}

// isWordRune is the Unicode counterpart of the ASCII \w class. With ASCII-only
// word characters every Cyrillic or Devanagari word normalises to "" and any
// answer in those scripts would match any target.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
