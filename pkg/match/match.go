// Package match implements weighted fuzzy ranking of named entities against
// a free-text search term.
//
// Each entity type declares which fields participate and their relative
// weights; a field's raw score is a normalized edit distance, and a field's
// weight discounts that score so that a hit on a high-weight field (an
// operator's short code, say) outranks an equally close hit on a low-weight
// one. Ranking is stable: the same term and candidate list always produce
// the same order regardless of how the candidates were fetched.
package match

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Field is one weighted text field of a candidate.
type Field struct {
	Text   string
	Weight float64
}

// Config controls how a candidate list is ranked.
type Config struct {
	// Threshold excludes candidates whose best weighted score exceeds it.
	// 0 demands an exact match, 1 accepts anything.
	Threshold float64

	// Tokenize splits the term and field texts on word boundaries and
	// scores token-against-token, which tolerates partial or misspelled
	// multi-word queries.
	Tokenize bool
}

// Profiles for the entity types the pipeline resolves. These mirror the
// behavior of the upstream datastore's own search: operator short codes
// dominate, stop names match tokenized.
var (
	Operators = Config{Threshold: 0.2}
	Stops     = Config{Threshold: 0.3, Tokenize: true}
)

// Result is one ranked candidate.
type Result[T any] struct {
	Item  T
	Score float64
}

// Rank scores candidates against term and returns those under the threshold,
// best match first. fields extracts the weighted fields of one candidate.
func Rank[T any](term string, candidates []T, cfg Config, fields func(T) []Field) []Result[T] {
	term = strings.ToLower(strings.TrimSpace(term))

	var ranked []Result[T]
	for _, candidate := range candidates {
		score, ok := scoreCandidate(term, fields(candidate), cfg)
		if !ok || score > cfg.Threshold {
			continue
		}
		ranked = append(ranked, Result[T]{Item: candidate, Score: score})
	}

	slices.SortStableFunc(ranked, func(a, b Result[T]) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		default:
			return 0
		}
	})

	return ranked
}

// Best returns the top-ranked candidate, or false when nothing matched.
func Best[T any](term string, candidates []T, cfg Config, fields func(T) []Field) (T, bool) {
	ranked := Rank(term, candidates, cfg, fields)
	if len(ranked) == 0 {
		var zero T
		return zero, false
	}
	return ranked[0].Item, true
}

// scoreCandidate returns the candidate's best weighted field score. A field's
// weight divides its raw score, so closeness on a heavily weighted field
// counts for more.
func scoreCandidate(term string, fields []Field, cfg Config) (float64, bool) {
	best := 0.0
	found := false

	for _, f := range fields {
		text := strings.ToLower(strings.TrimSpace(f.Text))
		if text == "" || f.Weight <= 0 {
			continue
		}

		raw := textScore(term, text, cfg.Tokenize)
		weighted := raw / f.Weight
		if !found || weighted < best {
			best = weighted
			found = true
		}
	}

	return best, found
}

func textScore(term, text string, tokenize bool) float64 {
	if !tokenize {
		return distanceScore(term, text)
	}

	termTokens := tokens(term)
	if len(termTokens) == 0 {
		return distanceScore(term, text)
	}
	textTokens := tokens(text)

	total := 0.0
	for _, tt := range termTokens {
		bestToken := 1.0
		for _, xt := range textTokens {
			if s := distanceScore(tt, xt); s < bestToken {
				bestToken = s
			}
		}
		total += bestToken
	}
	return total / float64(len(termTokens))
}

// distanceScore is the normalized edit distance between term and text, with
// a containment shortcut: a term embedded verbatim in a longer text scores
// close to zero, scaled by how much longer the text is.
func distanceScore(term, text string) float64 {
	if term == text {
		return 0
	}
	if term != "" && strings.Contains(text, term) {
		return 0.1 * float64(len(text)-len(term)) / float64(len(text))
	}

	longest := max(len([]rune(term)), len([]rune(text)))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(term, text)) / float64(longest)
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
