package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() ([]Document, [][]float32) {
	docs := []Document{
		{ID: "a", Content: "wheat production outlook", Metadata: Metadata{Title: "report", Source: "report.pdf", Page: 1, TotalPages: 3}},
		{ID: "b", Content: "dairy price trends", Metadata: Metadata{Title: "report", Source: "report.pdf", Page: 2, TotalPages: 3}},
		{ID: "c", Content: "wheat export volumes", Metadata: Metadata{Title: "report", Source: "report.pdf", Page: 3, TotalPages: 3}},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	return docs, embeddings
}

func TestChromemStoreAddAndSearch(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore("test")
	require.NoError(t, err)

	docs, embeddings := testDocs()
	require.NoError(t, store.AddDocuments(ctx, docs, embeddings))
	assert.Equal(t, 3, store.Count())

	results, scores, err := store.SearchSimilar(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, scores, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.GreaterOrEqual(t, scores[0], scores[1])

	// Metadata round-trips through the string map.
	assert.Equal(t, 1, results[0].Metadata.Page)
	assert.Equal(t, 3, results[0].Metadata.TotalPages)
	assert.Equal(t, "report.pdf", results[0].Metadata.Source)
}

func TestChromemStoreLimitClamp(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore("test")
	require.NoError(t, err)

	docs, embeddings := testDocs()
	require.NoError(t, store.AddDocuments(ctx, docs, embeddings))

	results, _, err := store.SearchSimilar(ctx, []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestChromemStoreEmptyIndex(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore("test")
	require.NoError(t, err)

	results, scores, err := store.SearchSimilar(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, scores)
}

func TestChromemStoreAppendsDuplicateContent(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore("test")
	require.NoError(t, err)

	docs, embeddings := testDocs()
	require.NoError(t, store.AddDocuments(ctx, docs, embeddings))

	// Same content under fresh IDs is appended, not deduplicated.
	again := make([]Document, len(docs))
	copy(again, docs)
	for i := range again {
		again[i].ID = again[i].ID + "-2"
	}
	require.NoError(t, store.AddDocuments(ctx, again, embeddings))
	assert.Equal(t, 6, store.Count())
}

func TestChromemStoreMismatchedEmbeddings(t *testing.T) {
	ctx := context.Background()
	store, err := NewInMemoryStore("test")
	require.NoError(t, err)

	docs, embeddings := testDocs()
	err = store.AddDocuments(ctx, docs, embeddings[:2])
	assert.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestChromemStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewChromemStore(dir, "test")
	require.NoError(t, err)

	docs, embeddings := testDocs()
	require.NoError(t, store.AddDocuments(ctx, docs, embeddings))

	// Reopening the same directory sees the same records.
	reopened, err := NewChromemStore(dir, "test")
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Count())
}
