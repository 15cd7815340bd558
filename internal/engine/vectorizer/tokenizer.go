package vectorizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minTokenRunes is the shortest run of word characters kept as a token.
const minTokenRunes = 2

// analyzer turns a document into its n-gram terms.
type analyzer struct {
	lowercase bool
	ngramMin  int
	ngramMax  int
}

func newAnalyzer(lowercase bool, ngramMin, ngramMax int) *analyzer {
	return &analyzer{
		lowercase: lowercase,
		ngramMin:  ngramMin,
		ngramMax:  ngramMax,
	}
}

// analyze preprocesses, tokenizes and expands doc into n-grams.
// Unigrams come first, then bigrams, each in document order.
func (a *analyzer) analyze(doc string) []string {
	return ngrams(tokenize(a.preprocess(doc)), a.ngramMin, a.ngramMax)
}

// preprocess lowercases doc if enabled. Text is not normalized, so a
// decomposed accent splits its word.
func (a *analyzer) preprocess(doc string) string {
	if a.lowercase {
		// Casers are stateful and must not be shared between goroutines.
		doc = cases.Lower(language.Und).String(doc)
	}
	return doc
}

// tokenize splits text into maximal runs of word characters, dropping runs
// shorter than minTokenRunes.
func tokenize(text string) []string {
	var tokens []string
	start, n := -1, 0
	for i, r := range text {
		if isWordChar(r) {
			if start < 0 {
				start, n = i, 0
			}
			n++
			continue
		}
		if start >= 0 && n >= minTokenRunes {
			tokens = append(tokens, text[start:i])
		}
		start = -1
	}
	if start >= 0 && n >= minTokenRunes {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// ngrams expands tokens into contiguous n-grams for n in [lo, hi], joined by
// a single space.
func ngrams(tokens []string, lo, hi int) []string {
	if lo == 1 && hi == 1 {
		return tokens
	}
	var out []string
	if lo == 1 {
		out = append(out, tokens...)
		lo = 2
	}
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// isWordChar matches a Unicode \w: letters, any numeric category and '_'.
// Combining marks are not word characters.
func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
