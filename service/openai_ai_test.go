package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrintel/agri-intel-be/types"
)

type fakeCompletionServer struct {
	t        *testing.T
	requests []map[string]any
	// respond picks the reply for the nth request.
	respond func(n int, req map[string]any) map[string]any
}

func (f *fakeCompletionServer) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	n := len(f.requests)
	f.requests = append(f.requests, req)
	w.Header().Set("Content-Type", "application/json")
	require.NoError(f.t, json.NewEncoder(w).Encode(f.respond(n, req)))
}

func toolCallReply(name, arguments string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []map[string]any{{
					"id":   "call-1",
					"type": "function",
					"function": map[string]any{
						"name":      name,
						"arguments": arguments,
					},
				}},
			},
		}},
	}
}

func textReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
	}
}

func newTestOpenAIService(t *testing.T, fake *fakeCompletionServer, maxToolSteps int) *OpenAIService {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", fake.handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewOpenAIService(server.URL+"/v1", "test-key", "test-model", maxToolSteps)
}

func TestOpenAIServiceChatPlainAnswer(t *testing.T) {
	fake := &fakeCompletionServer{t: t, respond: func(n int, req map[string]any) map[string]any {
		return textReply("Wheat prices rose last week.")
	}}
	svc := newTestOpenAIService(t, fake, 5)

	msg, err := svc.Chat(context.Background(), []types.Message{{Role: "user", Content: "How did wheat do?"}})
	require.NoError(t, err)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "Wheat prices rose last week.", msg.Content)

	require.Len(t, fake.requests, 1)
	messages := fake.requests[0]["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIServiceChatRunsToolCalls(t *testing.T) {
	fake := &fakeCompletionServer{t: t, respond: func(n int, req map[string]any) map[string]any {
		if n == 0 {
			return toolCallReply("get_crop_price_data", `{"crop_name":"soft wheat"}`)
		}
		return textReply("The latest price is 198.50 EUR/tonne.")
	}}
	svc := newTestOpenAIService(t, fake, 5)

	var gotArgs string
	svc.RegisterFunctionCall("get_crop_price_data", "fetch prices", jsonschema.Definition{Type: jsonschema.Object}, func(ctx context.Context, args []byte) (any, error) {
		gotArgs = string(args)
		return "Date        Price (EUR/tonne)\n2021-01-11  198.50", nil
	})

	msg, err := svc.Chat(context.Background(), []types.Message{{Role: "user", Content: "price?"}})
	require.NoError(t, err)
	assert.Equal(t, "The latest price is 198.50 EUR/tonne.", msg.Content)
	assert.JSONEq(t, `{"crop_name":"soft wheat"}`, gotArgs)

	// Second request carries the assistant tool call plus the tool result.
	require.Len(t, fake.requests, 2)
	messages := fake.requests[1]["messages"].([]any)
	require.Len(t, messages, 4)
	toolMsg := messages[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call-1", toolMsg["tool_call_id"])
}

func TestOpenAIServiceChatToolLoopBounded(t *testing.T) {
	fake := &fakeCompletionServer{t: t, respond: func(n int, req map[string]any) map[string]any {
		return toolCallReply("search_agri_reports", `{"query":"wheat"}`)
	}}
	svc := newTestOpenAIService(t, fake, 3)
	svc.RegisterFunctionCall("search_agri_reports", "search reports", jsonschema.Definition{Type: jsonschema.Object}, func(ctx context.Context, args []byte) (any, error) {
		return "no results", nil
	})

	_, err := svc.Chat(context.Background(), []types.Message{{Role: "user", Content: "loop"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 3 steps")
	// Initial request plus one per allowed step.
	assert.Len(t, fake.requests, 4)
}

func TestOpenAIServiceChatUnknownFunction(t *testing.T) {
	fake := &fakeCompletionServer{t: t, respond: func(n int, req map[string]any) map[string]any {
		return toolCallReply("not_registered", `{}`)
	}}
	svc := newTestOpenAIService(t, fake, 5)

	_, err := svc.Chat(context.Background(), []types.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_registered")
}

func TestAgentServiceQuery(t *testing.T) {
	fake := &fakeCompletionServer{t: t, respond: func(n int, req map[string]any) map[string]any {
		return textReply("Barley stocks are stable.")
	}}
	agent := NewAgentService(newTestOpenAIService(t, fake, 5))

	answer, err := agent.Query(context.Background(), "How are barley stocks?")
	require.NoError(t, err)
	assert.Equal(t, "Barley stocks are stable.", answer)
}
