package types

import "context"

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketChat  = "chat"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketChatPayload struct {
	Text string `json:"text"`
}

type WebsocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketChatResponse struct {
	Message string `json:"message"`
	Done    bool   `json:"done"`
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionHandler executes a model-requested tool call. The args are the raw
// JSON arguments produced by the model; the returned value is rendered as the
// tool's observation string.
type FunctionHandler func(ctx context.Context, args []byte) (any, error)

// StreamHandler receives incremental model output.
type StreamHandler func(response string)
