package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/agrintel/agri-intel-be/types"
)

var systemMessageAgriAssistant = openai.ChatCompletionMessage{
	Role:    openai.ChatMessageRoleSystem,
	Content: "You are an intelligent assistant for the agricultural market. You answer questions about crops, prices and market reports. Use the available tools to look up report passages, fetch price data or generate charts before answering. If the tools return nothing useful, say you could not find an answer.",
}

type OpenAIService struct {
	client        *openai.Client
	functionsCall map[string]types.FunctionHandler
	tools         []openai.Tool
	model         string
	maxToolSteps  int
}

func NewOpenAIService(baseURL, apiKey, model string, maxToolSteps int) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	if maxToolSteps <= 0 {
		maxToolSteps = 5
	}
	return &OpenAIService{
		client:        openai.NewClientWithConfig(config),
		functionsCall: make(map[string]types.FunctionHandler),
		tools:         make([]openai.Tool, 0),
		model:         model,
		maxToolSteps:  maxToolSteps,
	}
}

func (s *OpenAIService) Chat(ctx context.Context, messages []types.Message) (*types.Message, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	openaiMessages = append(openaiMessages, systemMessageAgriAssistant)
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := s.createCompletion(ctx, openaiMessages)
	if err != nil {
		return nil, err
	}

	// The model may chain tool calls; each round appends the tool results and
	// asks again. The step cap keeps a confused model from looping forever.
	for step := 0; resp.Choices[0].FinishReason == openai.FinishReasonToolCalls; step++ {
		if step >= s.maxToolSteps {
			return nil, fmt.Errorf("tool call loop exceeded %d steps", s.maxToolSteps)
		}
		openaiMessages, err = s.appendToolResults(ctx, openaiMessages, resp)
		if err != nil {
			return nil, err
		}
		resp, err = s.createCompletion(ctx, openaiMessages)
		if err != nil {
			return nil, err
		}
	}

	return &types.Message{
		Role:    "assistant",
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (s *OpenAIService) ChatStream(ctx context.Context, messages []types.Message, streamHandler types.StreamHandler) error {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	openaiMessages = append(openaiMessages, systemMessageAgriAssistant)
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	stream, err := s.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{
			Messages: openaiMessages,
			Tools:    s.tools,
			Model:    s.model,
		},
	)
	if err != nil {
		return err
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		streamHandler(resp.Choices[0].Delta.Content)
	}
}

func (s *OpenAIService) RegisterFunctionCall(name, description string, params jsonschema.Definition, handler types.FunctionHandler) {
	if s.functionsCall == nil {
		s.functionsCall = make(map[string]types.FunctionHandler)
	}
	f := openai.FunctionDefinition{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
	s.functionsCall[name] = handler
	s.tools = append(s.tools, openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: &f,
	})
}

func (s *OpenAIService) createCompletion(ctx context.Context, openaiMessages []openai.ChatCompletionMessage) (openai.ChatCompletionResponse, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages: openaiMessages,
			Tools:    s.tools,
			Model:    s.model,
		},
	)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no response generated")
	}
	return resp, nil
}

func (s *OpenAIService) appendToolResults(ctx context.Context, openaiMessages []openai.ChatCompletionMessage, resp openai.ChatCompletionResponse) ([]openai.ChatCompletionMessage, error) {
	openaiMessages = append(openaiMessages, resp.Choices[0].Message)
	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Type != openai.ToolTypeFunction {
			continue
		}
		handler := s.functionsCall[toolCall.Function.Name]
		if handler == nil {
			return nil, fmt.Errorf("no handler registered for function %q", toolCall.Function.Name)
		}
		log.Debug().Str("function", toolCall.Function.Name).Msg("executing tool call")
		result, err := handler(ctx, []byte(toolCall.Function.Arguments))
		if err != nil {
			return nil, err
		}
		content, ok := result.(string)
		if !ok {
			return nil, fmt.Errorf("function %q returned non-string result", toolCall.Function.Name)
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			Name:       toolCall.Function.Name,
			ToolCallID: toolCall.ID,
		})
	}
	return openaiMessages, nil
}
