package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

const maxChatBodyBytes = 256 << 10

// genericFailureReply matches what the chat widget shows for any server error.
const genericFailureReply = "Something went wrong. Try again in a moment."

// TurnProcessor runs one chat turn. *Engine implements it.
type TurnProcessor interface {
	Turn(ctx context.Context, req TurnRequest) (TurnResponse, error)
}

// Handler wires HTTP requests to the dialogue engine.
type Handler struct {
	engine TurnProcessor
	logger *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(engine TurnProcessor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"reply": genericFailureReply})
		return
	}

	resp, err := h.engine.Turn(r.Context(), req)
	switch {
	case errors.Is(err, ErrNotConfigured):
		h.logger.Error("chat engine not configured", "session_id", req.SessionID)
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
	case err != nil:
		h.logger.Error("failed to process chat turn", "session_id", req.SessionID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, TurnResponse{Reply: genericFailureReply, State: req.State})
	default:
		h.writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
