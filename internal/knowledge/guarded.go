package knowledge

import (
	"context"
	"errors"
	"fmt"

	"reclamai/internal/pkg/circuit"
	"reclamai/internal/types"
)

// GuardedRetriever wraps a Retriever with a circuit breaker. Repeated search
// failures open the breaker and subsequent calls fail fast with
// types.ErrRetrievalUnavailable instead of waiting on a dead backend.
type GuardedRetriever struct {
	inner   Retriever
	breaker *circuit.Breaker
}

func NewGuardedRetriever(inner Retriever, breaker *circuit.Breaker) *GuardedRetriever {
	return &GuardedRetriever{inner: inner, breaker: breaker}
}

func (g *GuardedRetriever) Search(ctx context.Context, query string, topK int) ([]types.KnowledgeSnippet, error) {
	var snippets []types.KnowledgeSnippet
	err := g.breaker.Do(func() error {
		var serr error
		snippets, serr = g.inner.Search(ctx, query, topK)
		return serr
	})
	if err != nil {
		if errors.Is(err, circuit.ErrOpen) {
			return nil, fmt.Errorf("%w: %v", types.ErrRetrievalUnavailable, err)
		}
		return nil, err
	}
	return snippets, nil
}
