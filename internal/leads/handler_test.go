package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/wayloft-concierge/internal/notify"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

type stubFormSender struct {
	sent []notify.TripSummary
	err  error
}

func (s *stubFormSender) SendForm(ctx context.Context, summary notify.TripSummary) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, summary)
	return nil
}

func postLead(t *testing.T, h *Handler, body []byte) (*httptest.ResponseRecorder, leadResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/lead", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateTripRequest(w, req)

	var resp leadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w, resp
}

func TestCreateTripRequest_Success(t *testing.T) {
	sender := &stubFormSender{}
	handler := NewHandler(sender, nil, logging.Default())

	body, _ := json.Marshal(TripRequest{
		Name:        " Ana Lopez ",
		Email:       "ana@example.com",
		Destination: "Albania",
		Dates:       "June",
		Travelers:   "2",
		Style:       []string{"Nature", " "},
		Priorities:  []string{"Hidden gems"},
	})
	w, resp := postLead(t, handler, body)

	if w.Code != http.StatusOK || !resp.OK {
		t.Fatalf("expected ok response, got %d %+v", w.Code, resp)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.Name != "Ana Lopez" || got.Travellers != "2" {
		t.Errorf("unexpected summary %+v", got)
	}
	if len(got.Style) != 1 || got.Style[0] != "Nature" {
		t.Errorf("expected blank styles dropped, got %v", got.Style)
	}
}

func TestCreateTripRequest_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  TripRequest
		want error
	}{
		{"missing name", TripRequest{Email: "a@b.co", Destination: "Jordan"}, ErrInvalidName},
		{"missing contact", TripRequest{Name: "Ana", Destination: "Jordan"}, ErrMissingContact},
		{"missing destination", TripRequest{Name: "Ana", WhatsApp: "+447123456789"}, ErrMissingDestination},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &stubFormSender{}
			body, _ := json.Marshal(tc.req)
			w, resp := postLead(t, NewHandler(sender, nil, nil), body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if resp.OK || resp.Error != tc.want.Error() {
				t.Errorf("expected error %q, got %+v", tc.want, resp)
			}
			if len(sender.sent) != 0 {
				t.Errorf("expected no email")
			}
		})
	}
}

func TestCreateTripRequest_SummaryOnlyIsAccepted(t *testing.T) {
	sender := &stubFormSender{}
	body := []byte(`{"name":"Ana","whatsapp":"+447123456789","summary":"Pre-rendered summary"}`)
	w, resp := postLead(t, NewHandler(sender, nil, nil), body)

	if w.Code != http.StatusOK || !resp.OK {
		t.Fatalf("expected ok, got %d %+v", w.Code, resp)
	}
	if sender.sent[0].Text != "Pre-rendered summary" {
		t.Errorf("expected summary passed through, got %q", sender.sent[0].Text)
	}
}

func TestCreateTripRequest_SendFailure(t *testing.T) {
	sender := &stubFormSender{err: errors.New("sendgrid returned status 500")}
	body, _ := json.Marshal(TripRequest{Name: "Ana", Email: "ana@example.com", Destination: "Turkey"})
	w, resp := postLead(t, NewHandler(sender, nil, nil), body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if resp.OK || resp.Error == "" {
		t.Errorf("expected error response, got %+v", resp)
	}
}

func TestCreateTripRequest_NoRecipient(t *testing.T) {
	sender := &stubFormSender{err: notify.ErrNoRecipient}
	body, _ := json.Marshal(TripRequest{Name: "Ana", Email: "ana@example.com", Destination: "Turkey"})
	_, resp := postLead(t, NewHandler(sender, nil, nil), body)

	if !strings.Contains(resp.Error, "recipient") {
		t.Errorf("expected recipient error, got %q", resp.Error)
	}
}

func TestCreateTripRequest_InvalidJSON(t *testing.T) {
	w, resp := postLead(t, NewHandler(&stubFormSender{}, nil, nil), []byte(`{"name":`))
	if w.Code != http.StatusBadRequest || resp.OK {
		t.Errorf("expected bad request, got %d %+v", w.Code, resp)
	}
}
