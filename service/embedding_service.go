package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
)

// Embedder produces fixed-dimension vectors for text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService computes embeddings through an OpenAI-compatible endpoint
// (a local Ollama server in the default deployment). Vectors are L2-normalized
// before they are handed to the caller, so stored and query vectors compare
// under cosine similarity.
type EmbeddingService struct {
	client *openai.Client
	model  string
}

func NewEmbeddingService(baseURL, apiKey, model string) *EmbeddingService {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &EmbeddingService{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, errors.New("embedding response contains an out-of-range index")
		}
		// A duplicate index would pass the length check while leaving
		// another slot nil.
		if embeddings[item.Index] != nil {
			return nil, fmt.Errorf("embedding response contains index %d twice", item.Index)
		}
		embeddings[item.Index] = normalizeVector(item.Embedding)
	}
	return embeddings, nil
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

var _ Embedder = (*EmbeddingService)(nil)
