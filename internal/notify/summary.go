package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/wayloft-concierge/internal/conversation"
)

// Source says where a trip request came from.
type Source string

const (
	SourceChat Source = "chat"
	SourceForm Source = "form"
)

// TripSummary is the advisor-facing view of a trip request, shared by the
// chat and the trip builder form.
type TripSummary struct {
	Name        string
	Email       string
	WhatsApp    string
	FromCity    string
	Destination string
	Dates       string
	Duration    string
	Budget      string
	Travellers  string
	Style       []string
	Priorities  []string
	Notes       string
	// Text replaces the generated body when set. The trip builder form sends
	// its own pre-rendered summary.
	Text string
}

// SummaryFromLead converts a captured chat lead.
func SummaryFromLead(lead conversation.CapturedLead) TripSummary {
	duration := ""
	if lead.Nights != "" {
		duration = lead.Nights + " nights"
		if lead.Nights == "1" {
			duration = "1 night"
		}
	}
	whatsapp := lead.WhatsApp
	if whatsapp == conversation.NotProvided {
		whatsapp = ""
	}
	return TripSummary{
		Name:        lead.Name,
		Email:       lead.Email,
		WhatsApp:    whatsapp,
		FromCity:    lead.FromCity,
		Destination: lead.Destination,
		Dates:       lead.Dates,
		Duration:    duration,
		Budget:      lead.Budget,
		Travellers:  lead.Travellers,
		Style:       lead.Style,
		Priorities:  lead.Priorities,
		Notes:       lead.Notes,
	}
}

// Subject is "New Wayloft Trip Request — <destination>", or "Updated ..." for
// a change to a lead the advisor already has.
func (s TripSummary) Subject(kind conversation.NoticeKind) string {
	prefix := "New Wayloft Trip Request"
	if kind == conversation.NoticeUpdate {
		prefix = "Updated Wayloft Trip Request"
	}
	if s.Destination == "" {
		return prefix
	}
	return prefix + " — " + s.Destination
}

// Body renders the plain-text email body.
func (s TripSummary) Body(kind conversation.NoticeKind) string {
	if strings.TrimSpace(s.Text) != "" {
		return s.Text
	}
	title := "New Wayloft Trip Request"
	if kind == conversation.NoticeUpdate {
		title = "Updated Wayloft Trip Request"
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	rows := []struct{ label, value string }{
		{"Name", s.Name},
		{"Email", s.Email},
		{"WhatsApp", s.WhatsApp},
		{"From", s.FromCity},
		{"Destination", s.Destination},
		{"Dates", s.Dates},
		{"Duration", s.Duration},
		{"Budget", s.Budget},
		{"Travellers", s.Travellers},
		{"Style", strings.Join(s.Style, ", ")},
		{"Priorities", strings.Join(s.Priorities, ", ")},
		{"Notes", s.Notes},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %s\n", row.label, orDash(row.value))
	}
	b.WriteString("\n#travelwithWayloft")
	return b.String()
}

// Message builds the advisor email. Replies go to the traveller when they
// gave an email address.
func (s TripSummary) Message(to string, kind conversation.NoticeKind) EmailMessage {
	replyTo := s.Email
	if replyTo == "" {
		replyTo = to
	}
	return EmailMessage{
		To:      to,
		ReplyTo: replyTo,
		Subject: s.Subject(kind),
		Body:    s.Body(kind),
	}
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func plainToHTML(body string) string {
	if body == "" {
		return ""
	}
	return "<pre style=\"font-family:inherit\">" + html.EscapeString(body) + "</pre>"
}
