package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agrintel/agri-intel-be/service"
	"github.com/agrintel/agri-intel-be/types"
)

const fallbackAnswer = "Couldn't find an answer."

type QueryHandler struct {
	query service.QueryService
}

func NewQueryHandler(query service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

func (h *QueryHandler) HandleQuery() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req types.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Text == "" {
			h.sendError(w, "Field 'text' is required", http.StatusBadRequest)
			return
		}

		answer, err := h.query.Query(r.Context(), req.Text)
		if err != nil {
			log.Error().Err(err).Msg("query failed")
			h.sendError(w, "Failed to answer query: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if answer == "" {
			answer = fallbackAnswer
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(types.QueryResponse{Response: answer})
	})
}

func (h *QueryHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.ErrorResponse{Error: message})
}
