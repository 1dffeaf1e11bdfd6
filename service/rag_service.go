package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrintel/agri-intel-be/database"
	"github.com/agrintel/agri-intel-be/types"
)

const ragPromptTemplate = `Answer the question using only the context below. If the context does not contain the answer, say you could not find an answer.

Context:
%s

Question: %s`

// RAGService answers questions with a fixed retrieve-then-generate chain:
// embed the question, pull the closest report chunks, and ask the model to
// answer from those chunks alone. Unlike AgentService it never calls tools.
type RAGService struct {
	store    database.VectorDatabase
	embedder Embedder
	ai       AIService
	topK     int
}

func NewRAGService(store database.VectorDatabase, embedder Embedder, ai AIService, topK int) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	return &RAGService{
		store:    store,
		embedder: embedder,
		ai:       ai,
		topK:     topK,
	}
}

// Retrieve returns the topK most similar report chunks joined by blank lines.
// An empty index yields an empty string, not an error.
func (s *RAGService) Retrieve(ctx context.Context, query string) (string, error) {
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	docs, _, err := s.store.SearchSimilar(ctx, embedding, s.topK)
	if err != nil {
		return "", fmt.Errorf("failed to search index: %w", err)
	}
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.Content)
	}
	return strings.Join(contents, "\n\n"), nil
}

func (s *RAGService) Query(ctx context.Context, question string) (string, error) {
	contextText, err := s.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(ragPromptTemplate, contextText, question)
	msg, err := s.ai.Chat(ctx, []types.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
