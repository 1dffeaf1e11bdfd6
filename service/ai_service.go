package service

import (
	"context"

	"github.com/agrintel/agri-intel-be/types"
)

// AIService is a chat-capable language model provider.
type AIService interface {
	Chat(ctx context.Context, messages []types.Message) (*types.Message, error)
	ChatStream(ctx context.Context, messages []types.Message, handler types.StreamHandler) error
}

// QueryService answers a single user turn. Implemented by AgentService
// (tool-calling agent) and RAGService (fixed retrieval chain); the deployment
// picks one at startup.
type QueryService interface {
	Query(ctx context.Context, text string) (string, error)
}

// AgentService answers queries by handing the raw user turn to a tool-calling
// model. It is stateless across requests.
type AgentService struct {
	ai AIService
}

func NewAgentService(ai AIService) *AgentService {
	return &AgentService{ai: ai}
}

func (s *AgentService) Query(ctx context.Context, text string) (string, error) {
	msg, err := s.ai.Chat(ctx, []types.Message{{Role: "user", Content: text}})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
