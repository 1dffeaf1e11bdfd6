package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/agrintel/agri-intel-be/types"
)

// GeminiService implements AIService on the Gemini API. Multiple API keys may
// be supplied; on a request error the service rotates to the next key and
// retries once.
type GeminiService struct {
	apiKeys       []string
	currentKey    int
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	functionsCall map[string]types.FunctionHandler
	maxToolSteps  int
	mu            sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName string, maxToolSteps int) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}
	if maxToolSteps <= 0 {
		maxToolSteps = 5
	}

	service := &GeminiService{
		apiKeys:       apiKeys,
		currentKey:    0,
		modelName:     modelName,
		functionsCall: make(map[string]types.FunctionHandler),
		maxToolSteps:  maxToolSteps,
	}

	if err := service.initClient(); err != nil {
		return nil, err
	}

	service.model = service.client.GenerativeModel(modelName)
	service.model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemMessageAgriAssistant.Content)},
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

// rotateAPIKey advances to the next key and rebuilds both the client and the
// generative model. The model must be recreated too: it holds the closed
// client's transport, and it carries the registered tools and system
// instruction, which have to survive rotation.
func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.initClient(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	model := s.client.GenerativeModel(s.modelName)
	model.Tools = s.model.Tools
	model.SystemInstruction = s.model.SystemInstruction
	s.model = model
	return nil
}

func (s *GeminiService) Chat(ctx context.Context, messages []types.Message) (*types.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	prompt := messages[len(messages)-1].Content
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Parts: []genai.Part{genai.Text(msg.Content)},
			Role:  role,
		})
	}

	chat := s.model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		if rerr := s.rotateAPIKey(); rerr != nil {
			return nil, rerr
		}
		chat = s.model.StartChat()
		chat.History = history
		resp, err = chat.SendMessage(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response generated")
	}

	for step := 0; len(resp.Candidates[0].FunctionCalls()) > 0; step++ {
		if step >= s.maxToolSteps {
			return nil, fmt.Errorf("tool call loop exceeded %d steps", s.maxToolSteps)
		}
		resp, err = s.runFunctionCalls(ctx, chat, resp.Candidates[0].FunctionCalls())
		if err != nil {
			return nil, err
		}
	}

	content := ""
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}

	return &types.Message{Role: "assistant", Content: content}, nil
}

func (s *GeminiService) runFunctionCalls(ctx context.Context, chat *genai.ChatSession, functions []genai.FunctionCall) (*genai.GenerateContentResponse, error) {
	funcResults := []genai.Part{}
	for _, function := range functions {
		handler, exists := s.functionsCall[function.Name]
		if !exists {
			return nil, fmt.Errorf("unknown function: %s", function.Name)
		}

		argsBytes, err := json.Marshal(function.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal function args: %v", err)
		}
		log.Debug().Str("function", function.Name).Msg("executing tool call")
		result, err := handler(ctx, argsBytes)
		if err != nil {
			return nil, fmt.Errorf("function execution failed: %v", err)
		}
		funcResults = append(funcResults, genai.FunctionResponse{
			Name:     function.Name,
			Response: map[string]any{"result": result},
		})
	}

	resp, err := chat.SendMessage(ctx, funcResults...)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response generated")
	}
	return resp, nil
}

func (s *GeminiService) ChatStream(ctx context.Context, messages []types.Message, handler types.StreamHandler) error {
	if len(messages) == 0 {
		return errors.New("no messages provided")
	}
	prompt := messages[len(messages)-1].Content
	iter := s.model.GenerateContentStream(ctx, genai.Text(prompt))

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if rerr := s.rotateAPIKey(); rerr != nil {
				return rerr
			}
			iter = s.model.GenerateContentStream(ctx, genai.Text(prompt))
			resp, err = iter.Next()
			if err != nil {
				return err
			}
		}

		if len(resp.Candidates) == 0 {
			continue
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					handler(string(text))
				}
			}
		}
	}
	return nil
}

// RegisterFunction declares a callable tool on the underlying model.
func (s *GeminiService) RegisterFunction(name, description string, parameters map[string]*genai.Schema, handler types.FunctionHandler) {
	functionDeclaration := &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: parameters,
			Required:   make([]string, 0, len(parameters)),
		},
	}
	for paramName := range parameters {
		functionDeclaration.Parameters.Required = append(
			functionDeclaration.Parameters.Required,
			paramName,
		)
	}

	s.model.Tools = append(s.model.Tools, &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{functionDeclaration},
	})
	s.functionsCall[name] = handler
}
