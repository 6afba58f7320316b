// Package knowledge wraps the document search capability behind a narrow
// retriever interface. The engine never sees the index internals, only
// ranked snippets.
package knowledge

import (
	"context"

	"reclamai/internal/types"
)

// Retriever returns snippets ordered by descending relevance. Search is a
// pure call: repeating the same query yields the same sequence, so callers
// may restart retrieval at will.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]types.KnowledgeSnippet, error)
}
