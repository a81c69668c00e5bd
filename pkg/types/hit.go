package types

// Reason identifies a retrieval signal that contributed to a hit.
type Reason string

const (
	// ReasonLexical marks a trigram similarity match over folded text.
	ReasonLexical Reason = "lexical"
	// ReasonSemantic marks a cosine similarity match over embeddings.
	ReasonSemantic Reason = "semantic"
)

// HybridHit is a single ranked result from hybrid search.
type HybridHit struct {
	// Identification
	SegmentID string // Content-address of the matched segment
	WorkRef   string // Human-readable citation, e.g. "Il.1.1"

	// Content
	TextNFC string // Composed form of the segment text

	// Scoring
	Score   float64  // Fused relevance, normalized to [0, 1]
	Reasons []Reason // Ordered signal tags, lexical first
}

// Validate checks if the hit is well formed.
func (h *HybridHit) Validate() error {
	if h.SegmentID == "" {
		return ErrInvalidSegmentID
	}

	if h.Score < 0 || h.Score > 1 {
		return ErrInvalidScore
	}

	if len(h.Reasons) == 0 {
		return ErrMissingReasons
	}

	return nil
}
