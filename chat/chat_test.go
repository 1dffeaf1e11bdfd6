package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrintel/agri-intel-be/types"
)

func TestClientAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query", r.URL.Path)

		var req types.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "How did wheat prices move?", req.Text)

		json.NewEncoder(w).Encode(types.QueryResponse{Response: "They rose 2%."})
	}))
	defer server.Close()

	answer, err := NewClient(server.URL).Ask("How did wheat prices move?")
	require.NoError(t, err)
	assert.Equal(t, "They rose 2%.", answer)
}

func TestClientAskServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(types.ErrorResponse{Error: "model unavailable"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Ask("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestClientAskUnreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Ask("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not reach server")
}
