package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/wayloft-concierge/internal/notify"
)

// Recorder writes sent advisor notifications to the lead log.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

type summaryRecord struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	WhatsApp    string   `json:"whatsapp"`
	FromCity    string   `json:"fromCity"`
	Destination string   `json:"destination"`
	Dates       string   `json:"dates"`
	Duration    string   `json:"duration"`
	Budget      string   `json:"budget"`
	Travellers  string   `json:"travellers"`
	Style       []string `json:"style"`
	Priorities  []string `json:"priorities"`
	Notes       string   `json:"notes"`
}

func (r *Recorder) RecordNotification(ctx context.Context, n notify.SentNotification) error {
	s := n.Summary
	payload, err := json.Marshal(summaryRecord{
		Name:        s.Name,
		Email:       s.Email,
		WhatsApp:    s.WhatsApp,
		FromCity:    s.FromCity,
		Destination: s.Destination,
		Dates:       s.Dates,
		Duration:    s.Duration,
		Budget:      s.Budget,
		Travellers:  s.Travellers,
		Style:       s.Style,
		Priorities:  s.Priorities,
		Notes:       s.Notes,
	})
	if err != nil {
		return fmt.Errorf("leads: encode summary: %w", err)
	}
	return r.repo.Record(ctx, &Notification{
		ID:          n.ID,
		Source:      string(n.Source),
		Kind:        string(n.Kind),
		SessionID:   n.SessionID,
		Hash:        n.Hash,
		Recipient:   n.Recipient,
		Subject:     n.Subject,
		Name:        s.Name,
		Email:       s.Email,
		WhatsApp:    s.WhatsApp,
		Destination: s.Destination,
		Summary:     payload,
		SentAt:      n.SentAt,
	})
}

var _ notify.LeadRecorder = (*Recorder)(nil)
