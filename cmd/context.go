package cmd

import (
	"fmt"
	"strings"

	"github.com/agrintel/agri-intel-be/config"
	"github.com/agrintel/agri-intel-be/database"
	"github.com/agrintel/agri-intel-be/service"
)

// serviceContext holds the long-lived services built once at startup.
type serviceContext struct {
	cfg      *config.Config
	store    *database.ChromemStore
	embedder *service.EmbeddingService
	prices   *service.PriceService
	rag      *service.RAGService
	ai       service.AIService
	query    service.QueryService
}

// newServiceContext wires the full service graph from config. The vector
// store is opened eagerly so a bad store path fails at startup, not on the
// first request.
func newServiceContext(cfg *config.Config) (*serviceContext, error) {
	store, err := database.NewChromemStore(cfg.Store.Path, cfg.Store.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", cfg.Store.Path, err)
	}

	embedder := service.NewEmbeddingService(cfg.AI.Endpoint, cfg.OpenAIAPIKey, cfg.AI.EmbeddingModel)
	prices := service.NewPriceService(cfg.Prices)

	sc := &serviceContext{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		prices:   prices,
	}

	switch strings.ToLower(cfg.AI.Provider) {
	case "openai", "":
		ai := service.NewOpenAIService(cfg.AI.Endpoint, cfg.OpenAIAPIKey, cfg.AI.Model, cfg.AI.MaxToolSteps)
		sc.ai = ai
		sc.rag = service.NewRAGService(store, embedder, ai, cfg.Retrieval.TopK)
		service.RegisterAgriTools(ai, sc.rag, prices)
	case "gemini":
		keys := splitKeys(cfg.GeminiAPIKey)
		ai, err := service.NewGeminiService(keys, cfg.AI.Model, cfg.AI.MaxToolSteps)
		if err != nil {
			return nil, fmt.Errorf("failed to init gemini: %w", err)
		}
		sc.ai = ai
		sc.rag = service.NewRAGService(store, embedder, ai, cfg.Retrieval.TopK)
		service.RegisterGeminiAgriTools(ai, sc.rag, prices)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}

	switch strings.ToLower(cfg.AI.Mode) {
	case "agent", "":
		sc.query = service.NewAgentService(sc.ai)
	case "chain":
		sc.query = sc.rag
	default:
		return nil, fmt.Errorf("unknown ai mode %q", cfg.AI.Mode)
	}

	return sc, nil
}

func splitKeys(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
