package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"reclamai/internal/types"
)

type chunk struct {
	sourceID string
	text     string
	tokens   map[string]struct{}
}

// Index is an in-memory keyword index over the FAQ corpus. Scoring is plain
// token overlap normalized by query size, good enough to rank paragraph-sized
// chunks and fully deterministic.
type Index struct {
	chunks   []chunk
	minScore float64
}

// NewIndex builds the index from pre-chunked corpus entries.
func NewIndex(entries []CorpusEntry, minScore float64) (*Index, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("knowledge index requires a non-empty corpus")
	}
	if minScore < 0 {
		minScore = 0
	}
	idx := &Index{minScore: minScore}
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		tokens := tokenize(text)
		for _, tag := range e.Tags {
			for t := range tokenize(tag) {
				tokens[t] = struct{}{}
			}
		}
		idx.chunks = append(idx.chunks, chunk{sourceID: e.SourceID, text: text, tokens: tokens})
	}
	if len(idx.chunks) == 0 {
		return nil, fmt.Errorf("knowledge corpus has no usable chunks")
	}
	return idx, nil
}

// Search implements Retriever. A cancelled or expired context maps to
// ErrRetrievalUnavailable so the generator can degrade instead of failing.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]types.KnowledgeSnippet, error) {
	if idx == nil {
		return nil, types.ErrRetrievalUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRetrievalUnavailable, err)
	}
	if topK <= 0 {
		topK = 3
	}
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return nil, nil
	}
	out := make([]types.KnowledgeSnippet, 0, topK)
	for _, c := range idx.chunks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrRetrievalUnavailable, err)
		}
		hits := 0
		for t := range qTokens {
			if _, ok := c.tokens[t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(qTokens))
		if score > 1 {
			score = 1
		}
		if score < idx.minScore {
			continue
		}
		out = append(out, types.KnowledgeSnippet{SourceID: c.sourceID, Text: c.text, Relevance: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].SourceID < out[j].SourceID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// tokenize lowercases, strips common pt-BR accents and splits on anything
// that is not a letter or digit.
func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() > 2 {
			out[b.String()] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(s) {
		r = deaccent(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func deaccent(r rune) rune {
	switch r {
	case 'á', 'à', 'ã', 'â':
		return 'a'
	case 'é', 'ê':
		return 'e'
	case 'í':
		return 'i'
	case 'ó', 'ô', 'õ':
		return 'o'
	case 'ú', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	}
	return r
}
