package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ExtractTrigrams returns the set of character trigrams for a folded string.
// Each whitespace-separated word is padded with two leading spaces and one
// trailing space before windowing, so word boundaries contribute their own
// trigrams and short words still produce at least one.
func ExtractTrigrams(folded string) map[string]struct{} {
	trigrams := make(map[string]struct{})
	for _, word := range strings.Fields(folded) {
		padded := []rune("  " + word + " ")
		if len(padded) < 3 {
			continue
		}
		for i := 0; i+3 <= len(padded); i++ {
			trigrams[string(padded[i:i+3])] = struct{}{}
		}
	}
	return trigrams
}

// TrigramSimilarity computes the Jaccard similarity between the trigram sets
// of two folded strings. Returns a value in [0, 1].
func TrigramSimilarity(a, b string) float64 {
	ta := ExtractTrigrams(a)
	tb := ExtractTrigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// searchLexical scores every segment's folded text against the folded query
// by trigram similarity and returns the top matches. Scoring happens in Go;
// the database only supplies candidate rows, optionally filtered by the
// language of their source.
func searchLexical(ctx context.Context, q querier, folded, language string, limit int, minSimilarity float64) ([]LexicalResult, error) {
	queryTrigrams := ExtractTrigrams(folded)
	if len(queryTrigrams) == 0 {
		return []LexicalResult{}, nil
	}

	query := `SELECT ` + segmentColumns + ` FROM segments`
	args := []interface{}{}
	if language != "" {
		query = `
			SELECT ` + prefixColumns(segmentColumns, "s.") + `
			FROM segments s
			JOIN sources src ON src.id = s.source_id
			WHERE src.language = ?
		`
		args = append(args, language)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []LexicalResult
	for rows.Next() {
		seg, err := scanSegment(rows.Scan)
		if err != nil {
			return nil, err
		}

		sim := similarityAgainst(queryTrigrams, seg.TextFold)
		if sim < minSimilarity || sim == 0 {
			continue
		}
		results = append(results, LexicalResult{Segment: seg, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []LexicalResult{}
	}
	return results, nil
}

// similarityAgainst scores a folded text against a precomputed query
// trigram set, avoiding re-extraction of the query per row
func similarityAgainst(queryTrigrams map[string]struct{}, folded string) float64 {
	tb := ExtractTrigrams(folded)
	if len(tb) == 0 {
		return 0
	}

	intersection := 0
	for t := range queryTrigrams {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(queryTrigrams) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// prefixColumns rewrites a comma-separated column list with a table alias
func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
