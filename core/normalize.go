package core

import (
	"errors"

	"github.com/bododesderio/leblango/db"
)

// ErrEmptyQuery marks a query that normalized away to nothing. Handlers
// answer it with an empty envelope, never a fault.
var ErrEmptyQuery = errors.New("empty query")

// maxQueryRunes caps query length before matching.
const maxQueryRunes = 200

// NormalizeQuery lower-cases, trims, collapses whitespace and strips
// punctuation. Diacritics are kept: they are distinctive in Lango
// orthography.
func NormalizeQuery(raw string) (string, error) {
	norm := db.NormalizeText(raw)
	if norm == "" {
		return "", ErrEmptyQuery
	}
	runes := []rune(norm)
	if len(runes) > maxQueryRunes {
		norm = string(runes[:maxQueryRunes])
	}
	return norm, nil
}
