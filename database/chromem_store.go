package database

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ChromemStore is a VectorDatabase backed by chromem-go. The persistent
// variant keeps its whole lifetime inside one directory on disk: created on
// the first ingestion run, appended to on subsequent runs, read by the server.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore opens or creates a persistent store at path.
func NewChromemStore(path, collectionName string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistent store at %s: %w", path, err)
	}
	return newStore(db, collectionName)
}

// NewInMemoryStore creates a store that lives only for the process. Used in
// tests and as the placeholder index when no ingestion has run.
func NewInMemoryStore(collectionName string) (*ChromemStore, error) {
	return newStore(chromem.NewDB(), collectionName)
}

func newStore(db *chromem.DB, collectionName string) (*ChromemStore, error) {
	// Embeddings are computed externally and passed in explicitly, so no
	// embedding function is registered on the collection.
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", collectionName, err)
	}
	return &ChromemStore{db: db, collection: collection}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadataToMap(doc.Metadata),
			Embedding: embeddings[i],
		}
	}

	if err := s.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]Document, []float32, error) {
	// chromem rejects queries asking for more results than the collection
	// holds, so clamp. An empty index yields an empty result set.
	if count := s.collection.Count(); limit > count {
		limit = count
	}
	if limit <= 0 {
		return nil, nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, limit, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("similarity search failed: %w", err)
	}

	docs := make([]Document, len(results))
	scores := make([]float32, len(results))
	for i, res := range results {
		docs[i] = Document{
			ID:       res.ID,
			Content:  res.Content,
			Metadata: metadataFromMap(res.Metadata),
		}
		scores[i] = res.Similarity
	}
	return docs, scores, nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func metadataToMap(m Metadata) map[string]string {
	return map[string]string{
		"title":       m.Title,
		"source":      m.Source,
		"page":        strconv.Itoa(m.Page),
		"total_pages": strconv.Itoa(m.TotalPages),
	}
}

func metadataFromMap(m map[string]string) Metadata {
	page, _ := strconv.Atoi(m["page"])
	total, _ := strconv.Atoi(m["total_pages"])
	return Metadata{
		Title:      m["title"],
		Source:     m["source"],
		Page:       page,
		TotalPages: total,
	}
}

var _ VectorDatabase = (*ChromemStore)(nil)
