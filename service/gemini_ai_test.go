package service

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiServiceRequiresKeys(t *testing.T) {
	_, err := NewGeminiService(nil, "gemini-1.5-flash", 5)
	require.Error(t, err)
}

func TestGeminiRotateAPIKeyRebuildsModel(t *testing.T) {
	svc, err := NewGeminiService([]string{"key-a", "key-b"}, "gemini-1.5-flash", 5)
	require.NoError(t, err)

	svc.RegisterFunction(
		"get_crop_price_data",
		"fetch prices",
		map[string]*genai.Schema{
			"crop_name": {Type: genai.TypeString},
		},
		func(ctx context.Context, args []byte) (any, error) { return "ok", nil },
	)
	oldModel := svc.model
	require.Len(t, oldModel.Tools, 1)
	require.NotNil(t, oldModel.SystemInstruction)

	require.NoError(t, svc.rotateAPIKey())

	assert.Equal(t, 1, svc.currentKey)
	// The model must be rebuilt on the new client with the registered tools
	// and the system instruction carried over.
	assert.NotSame(t, oldModel, svc.model)
	require.Len(t, svc.model.Tools, 1)
	assert.Equal(t, "get_crop_price_data", svc.model.Tools[0].FunctionDeclarations[0].Name)
	assert.Equal(t, oldModel.SystemInstruction, svc.model.SystemInstruction)
}

func TestGeminiRotateAPIKeyWrapsAround(t *testing.T) {
	svc, err := NewGeminiService([]string{"only-key"}, "gemini-1.5-flash", 5)
	require.NoError(t, err)

	require.NoError(t, svc.rotateAPIKey())
	assert.Equal(t, 0, svc.currentKey)
}
