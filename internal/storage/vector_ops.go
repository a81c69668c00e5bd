package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// SerializeVector converts a float32 slice to a little-endian byte slice
// for BLOB storage
func SerializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeVector converts a little-endian byte slice back to float32s
func DeserializeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched dimensions or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// searchVector ranks embedded segments by cosine similarity to the query
// vector. Similarity is computed in Go over all stored embeddings; rows
// whose dimension does not match the query are skipped rather than failing
// the whole search.
func searchVector(ctx context.Context, q querier, vector []float32, language string, limit int) ([]VectorResult, error) {
	if len(vector) == 0 {
		return []VectorResult{}, nil
	}

	query := `
		SELECT ` + prefixColumns(segmentColumns, "s.") + `, e.vector
		FROM embeddings e
		JOIN segments s ON s.id = e.segment_id
	`
	args := []interface{}{}
	if language != "" {
		query += `
			JOIN sources src ON src.id = s.source_id
			WHERE src.language = ?
		`
		args = append(args, language)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []VectorResult
	for rows.Next() {
		var seg Segment
		var lemma, morph sql.NullString
		var blob []byte
		err := rows.Scan(
			&seg.ID, &seg.SourceID, &seg.ChunkID, &seg.WorkRef, &seg.Kind, &seg.Anchor,
			&seg.TextNFC, &seg.TextFold, &lemma, &morph, &seg.CreatedAt, &seg.UpdatedAt,
			&blob,
		)
		if err != nil {
			return nil, err
		}
		if lemma.Valid {
			seg.Lemma = &lemma.String
		}
		if morph.Valid {
			seg.Morph = &morph.String
		}

		stored, err := DeserializeVector(blob)
		if err != nil {
			continue
		}
		if len(stored) != len(vector) {
			continue
		}

		sim := CosineSimilarity(vector, stored)
		if sim <= 0 {
			continue
		}
		results = append(results, VectorResult{Segment: &seg, Similarity: sim})
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
		results = []VectorResult{}
	}
	return results, nil
}
