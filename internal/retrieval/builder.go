// Package retrieval turns search hits into a labeled context block for
// downstream question answering.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/palaios/grammata/internal/searcher"
	"github.com/palaios/grammata/pkg/types"
)

// DefaultK is the number of passages fetched when the caller does not say
const DefaultK = 5

// Builder assembles retrieval context from hybrid search results
type Builder struct {
	engine *searcher.Engine
}

// New creates a context builder over a search engine
func New(engine *searcher.Engine) *Builder {
	return &Builder{engine: engine}
}

// BuildContext retrieves the top passages for a question and renders them
// as a newline-joined block of labeled citations. A blank question yields
// an empty context without touching the engine. The hits are returned
// alongside the rendered block so callers can surface structured results
// too.
func (b *Builder) BuildContext(ctx context.Context, question string, k int) ([]types.HybridHit, string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, "", nil
	}
	if k <= 0 {
		k = DefaultK
	}

	resp, err := b.engine.Search(ctx, searcher.Request{
		Query:    question,
		K:        k,
		UseCache: true,
	})
	if err != nil {
		return nil, "", err
	}

	return resp.Hits, Render(resp.Hits), nil
}

// Render formats hits as numbered, cited passages, one per line
func Render(hits []types.HybridHit) string {
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Label(i, hit))
	}
	return b.String()
}

// Label renders one hit as "[i] work_ref: text". A hit with no citation
// falls back to its index alone.
func Label(i int, hit types.HybridHit) string {
	if hit.WorkRef == "" {
		return fmt.Sprintf("[%d] %s", i+1, hit.TextNFC)
	}
	return fmt.Sprintf("[%d] %s: %s", i+1, hit.WorkRef, hit.TextNFC)
}
