package db

import (
	"sort"
	"strings"
	"unicode"
)

// NormalizeText lowers, trims and collapses whitespace, stripping a fixed
// punctuation set. Diacritics are kept untouched: they are phonemically
// significant in Lango orthography, so "nyo" and "nyö" must stay distinct.
func NormalizeText(val string) string {
	val = strings.TrimSpace(strings.ToLower(val))
	if val == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"\"", " ", "'", " ", "’", " ", ",", " ", ";", " ", ":", " ",
		".", " ", "!", " ", "?", " ", "(", " ", ")", " ", "[", " ",
		"]", " ", "{", " ", "}", " ", "«", " ", "»", " ", "/", " ", "\\", " ",
	)
	val = replacer.Replace(val)
	return strings.Join(strings.Fields(val), " ")
}

// TrigramSet extracts the padded trigram set of a normalized string,
// following the pg_trgm convention: each word is padded with two leading
// spaces and one trailing space before the 3-grams are taken. Keeping the
// application fallback identical to the PostgreSQL extension means the three
// engines rank fuzzy candidates the same way.
func TrigramSet(val string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(normalizeTrigramInput(val)) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = struct{}{}
		}
	}
	return set
}

// TrigramSimilarity returns the pg_trgm similarity coefficient between two
// strings: shared trigrams divided by the size of the union. Two empty
// strings have similarity zero.
func TrigramSimilarity(a, b string) float64 {
	ta := TrigramSet(a)
	tb := TrigramSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// pg_trgm keeps only alphanumerics for trigram extraction.
func normalizeTrigramInput(val string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(val) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// rankBySimilarity filters scored hits below the threshold and orders the
// survivors the way the match engine expects: score descending, shorter
// target first, id ascending.
func rankBySimilarity(hits []MatchHit, threshold float64, limit int) []MatchHit {
	out := make([]MatchHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		li, lj := len([]rune(out[i].Target)), len([]rune(out[j].Target))
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
