package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/wayloft-concierge/internal/notify"
	"github.com/wolfman30/wayloft-concierge/internal/observability/metrics"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

const maxLeadBodyBytes = 64 << 10

// FormSender delivers a form submission to the advisor. *notify.Dispatcher
// implements it.
type FormSender interface {
	SendForm(ctx context.Context, summary notify.TripSummary) error
}

// Handler handles the trip builder form.
type Handler struct {
	sender  FormSender
	metrics *metrics.ConciergeMetrics
	logger  *logging.Logger
}

func NewHandler(sender FormSender, m *metrics.ConciergeMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sender:  sender,
		metrics: m,
		logger:  logger,
	}
}

type leadResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CreateTripRequest handles POST /api/lead. The form bypasses the chat engine
// and produces exactly one advisor email.
func (h *Handler) CreateTripRequest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)
	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode trip request", "error", err)
		h.metrics.ObserveLeadSubmission("invalid")
		writeJSON(w, http.StatusBadRequest, leadResponse{Error: "invalid request body"})
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		h.metrics.ObserveLeadSubmission("invalid")
		writeJSON(w, http.StatusBadRequest, leadResponse{Error: err.Error()})
		return
	}

	if h.sender == nil {
		h.metrics.ObserveLeadSubmission("failed")
		writeJSON(w, http.StatusInternalServerError, leadResponse{Error: notify.ErrNoRecipient.Error()})
		return
	}
	if err := h.sender.SendForm(r.Context(), req.TripSummary()); err != nil {
		h.logger.Error("failed to send trip request", "error", err, "destination", req.Destination)
		h.metrics.ObserveLeadSubmission("failed")
		msg := "failed to send trip request"
		if errors.Is(err, notify.ErrNoRecipient) {
			msg = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, leadResponse{Error: msg})
		return
	}

	h.metrics.ObserveLeadSubmission("ok")
	h.logger.Info("trip request sent", "destination", req.Destination)
	writeJSON(w, http.StatusOK, leadResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
