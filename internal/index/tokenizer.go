// Package index implements the inverted full-text index over conversation
// content: tokenization, postings, fuzzy and prefix term expansion, and
// TF-IDF-with-recency scoring, persisted through internal/codec.
package index

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase alphanumeric terms. Unlike the
// latent-semantic model in internal/lsa, this tokenizer does not remove
// stopwords or stem: a user searching for "is the bug fixed" must be able
// to find a conversation that says exactly that, not just "bug fixed".
func Tokenize(text string) []string {
	var terms []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			terms = append(terms, b.String())
			b.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}
