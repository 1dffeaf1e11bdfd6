package database

import (
	"context"
)

// Document represents an indexed chunk of a market report.
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Metadata contains provenance for an indexed chunk.
type Metadata struct {
	Title      string `json:"title"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}

// VectorDatabase defines the interface for index operations. Records are
// written once at ingestion time and immutable thereafter.
type VectorDatabase interface {
	// AddDocuments appends documents with their precomputed embeddings.
	AddDocuments(ctx context.Context, docs []Document, embeddings [][]float32) error
	// SearchSimilar returns up to limit documents ordered by similarity to
	// the query embedding, with their similarity scores.
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]Document, []float32, error)
	// Count reports the number of indexed records.
	Count() int
}
