// Package textproc holds the text cleaning and negation primitives used before
// intent scoring.
package textproc

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case and accents, drops everything but ASCII letters and
// whitespace, removes English stop-words and lemmatizes the remaining tokens.
// It is deterministic; on internal failure it returns raw unchanged.
func Normalize(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = raw
		}
	}()

	folded, err := foldText(raw)
	if err != nil {
		return raw
	}
	letters := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, folded)

	fields := strings.Fields(letters)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if IsStopWord(tok) {
			continue
		}
		tokens = append(tokens, Lemmatize(tok))
	}
	return strings.Join(tokens, " ")
}

// NormalizeAll normalizes every text, preserving order.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

// foldText applies NFKC, strips combining marks and case folds.
func foldText(s string) (string, error) {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFKC,
		cases.Fold(),
	)
	res, _, err := transform.String(t, s)
	return res, err
}
