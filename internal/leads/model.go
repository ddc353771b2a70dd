package leads

import (
	"strings"
	"time"

	"github.com/wolfman30/wayloft-concierge/internal/notify"
)

// TripRequest is the trip builder form submission.
type TripRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	WhatsApp    string   `json:"whatsapp"`
	FromCity    string   `json:"fromCity"`
	Destination string   `json:"destination"`
	Dates       string   `json:"dates"`
	Duration    string   `json:"duration"`
	Budget      string   `json:"budget"`
	Travelers   string   `json:"travelers"`
	Style       []string `json:"style"`
	Priorities  []string `json:"priorities"`
	Notes       string   `json:"notes"`
	// Summary is a pre-rendered email body. When present it is sent as is.
	Summary string `json:"summary"`
}

// Normalize trims every field and drops empty list entries.
func (r *TripRequest) Normalize() {
	for _, f := range []*string{&r.Name, &r.Email, &r.WhatsApp, &r.FromCity, &r.Destination, &r.Dates, &r.Duration, &r.Budget, &r.Travelers, &r.Notes, &r.Summary} {
		*f = strings.TrimSpace(*f)
	}
	r.Style = trimList(r.Style)
	r.Priorities = trimList(r.Priorities)
}

// Validate validates the trip request
func (r *TripRequest) Validate() error {
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.WhatsApp == "" {
		return ErrMissingContact
	}
	if r.Destination == "" && r.Summary == "" {
		return ErrMissingDestination
	}
	return nil
}

// TripSummary converts the form into the advisor email view.
func (r *TripRequest) TripSummary() notify.TripSummary {
	return notify.TripSummary{
		Name:        r.Name,
		Email:       r.Email,
		WhatsApp:    r.WhatsApp,
		FromCity:    r.FromCity,
		Destination: r.Destination,
		Dates:       r.Dates,
		Duration:    r.Duration,
		Budget:      r.Budget,
		Travellers:  r.Travelers,
		Style:       r.Style,
		Priorities:  r.Priorities,
		Notes:       r.Notes,
		Text:        r.Summary,
	}
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Notification is one row of the lead log: an advisor email that was sent.
type Notification struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Kind        string    `json:"kind"`
	SessionID   string    `json:"session_id,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	WhatsApp    string    `json:"whatsapp"`
	Destination string    `json:"destination"`
	Summary     []byte    `json:"summary"`
	SentAt      time.Time `json:"sent_at"`
}
