package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reclamai/internal/pkg/circuit"
	"reclamai/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []CorpusEntry {
	return []CorpusEntry{
		{SourceID: "faq:juros", Text: "A redução de juros é o primeiro pedido em renegociação bancária.", Tags: []string{"taxa"}},
		{SourceID: "faq:parcelamento", Text: "O parcelamento do saldo devedor alivia o fluxo mensal sem desconto."},
		{SourceID: "faq:quitacao", Text: "Atraso prolongado abre espaço para desconto na quitação à vista."},
	}
}

func TestSearchRanksByTokenOverlap(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0)
	require.NoError(t, err)

	out, err := idx.Search(context.Background(), "reducao de juros e taxa anual", 5)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "faq:juros", out[0].SourceID)
	for _, s := range out {
		assert.GreaterOrEqual(t, s.Relevance, 0.0)
		assert.LessOrEqual(t, s.Relevance, 1.0)
	}
}

func TestSearchAccentInsensitive(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0)
	require.NoError(t, err)

	plain, err := idx.Search(context.Background(), "quitacao a vista", 5)
	require.NoError(t, err)
	accented, err := idx.Search(context.Background(), "quitação à vista", 5)
	require.NoError(t, err)
	require.Equal(t, len(plain), len(accented))
	for i := range plain {
		assert.Equal(t, plain[i].SourceID, accented[i].SourceID)
	}
}

func TestSearchHonorsTopKAndMinScore(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0.9)
	require.NoError(t, err)

	out, err := idx.Search(context.Background(), "desconto parcelamento juros quitacao", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 1)
	for _, s := range out {
		assert.GreaterOrEqual(t, s.Relevance, 0.9)
	}
}

func TestSearchDeterministic(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0)
	require.NoError(t, err)

	first, err := idx.Search(context.Background(), "desconto na renegociacao", 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idx.Search(context.Background(), "desconto na renegociacao", 5)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, "juros", 3)
	require.ErrorIs(t, err, types.ErrRetrievalUnavailable)
}

func TestNewIndexRejectsEmptyCorpus(t *testing.T) {
	_, err := NewIndex(nil, 0)
	require.Error(t, err)
	_, err = NewIndex([]CorpusEntry{{SourceID: "x", Text: "   "}}, 0)
	require.Error(t, err)
}

func TestLoadCorpusMarkdownChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.md")
	content := "# FAQ\n\nPrimeiro bloco sobre juros.\n\nSegundo bloco sobre parcelamento.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "faq.md#1", entries[0].SourceID)
	assert.Equal(t, "Primeiro bloco sobre juros.", entries[1].Text)
}

func TestLoadCorpusYAMLEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	content := "entries:\n  - id: kb:1\n    text: desconto para quitacao\n    tags: [quitacao]\n  - text: sem id recebe um gerado\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "kb:1", entries[0].SourceID)
	assert.Equal(t, "kb.yaml#2", entries[1].SourceID)
}

type failingRetriever struct{ calls int }

func (f *failingRetriever) Search(context.Context, string, int) ([]types.KnowledgeSnippet, error) {
	f.calls++
	return nil, errors.New("backend down")
}

func TestGuardedRetrieverOpensAfterFailures(t *testing.T) {
	inner := &failingRetriever{}
	g := NewGuardedRetriever(inner, circuit.NewBreaker("test", 2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := g.Search(context.Background(), "juros", 3)
		require.Error(t, err)
		require.NotErrorIs(t, err, types.ErrRetrievalUnavailable)
	}
	// Breaker open: fails fast without touching the backend.
	_, err := g.Search(context.Background(), "juros", 3)
	require.ErrorIs(t, err, types.ErrRetrievalUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedRetrieverPassesThroughOnSuccess(t *testing.T) {
	idx, err := NewIndex(testEntries(), 0)
	require.NoError(t, err)
	g := NewGuardedRetriever(idx, circuit.NewBreaker("test", 2, time.Minute))

	out, err := g.Search(context.Background(), "juros", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
