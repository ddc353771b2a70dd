package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Proposal is the model's suggested next turn. Nothing in it is trusted until
// the guard has reviewed it.
type Proposal struct {
	Stage    Stage
	RawStage string
	Reply    string
	Captured CapturedLead
}

var errEmptyReply = errors.New("conversation: model reply is empty")

type proposalWire struct {
	Stage    string          `json:"stage"`
	Reply    string          `json:"reply"`
	Captured proposalCapture `json:"captured"`
}

type proposalCapture struct {
	Name        flexString `json:"name"`
	Email       flexString `json:"email"`
	WhatsApp    flexString `json:"whatsapp"`
	FromCity    flexString `json:"fromCity"`
	Destination flexString `json:"destination"`
	Dates       flexString `json:"dates"`
	Nights      flexString `json:"nights"`
	Budget      flexString `json:"budget"`
	Travellers  flexString `json:"travellers"`
	Style       flexList   `json:"style"`
	Priorities  flexList   `json:"priorities"`
	Notes       flexString `json:"notes"`
}

// flexString accepts a string, number, bool or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexString(strconv.FormatBool(b))
		return nil
	}
	// Objects and arrays are not meaningful for scalar fields.
	*f = ""
	return nil
}

// flexList accepts an array of strings, a single comma separated string or
// null.
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	var list []flexString
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, string(item))
		}
		*f = cleanList(out)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = cleanList(strings.Split(s, ","))
		return nil
	}
	*f = nil
	return nil
}

// ParseProposal decodes a model completion. Code fences and chatter around
// the JSON object are tolerated; a missing reply is an error.
func ParseProposal(raw string) (Proposal, error) {
	text := extractJSONObject(stripCodeFence(raw))
	var wire proposalWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return Proposal{}, fmt.Errorf("conversation: decode model proposal: %w", err)
	}
	reply := strings.TrimSpace(wire.Reply)
	if reply == "" {
		return Proposal{}, errEmptyReply
	}
	stage, _ := ParseStage(wire.Stage)
	c := wire.Captured
	return Proposal{
		Stage:    stage,
		RawStage: wire.Stage,
		Reply:    reply,
		Captured: CapturedLead{
			Name:        string(c.Name),
			Email:       string(c.Email),
			WhatsApp:    string(c.WhatsApp),
			FromCity:    string(c.FromCity),
			Destination: string(c.Destination),
			Dates:       string(c.Dates),
			Nights:      string(c.Nights),
			Budget:      string(c.Budget),
			Travellers:  string(c.Travellers),
			Style:       []string(c.Style),
			Priorities:  []string(c.Priorities),
			Notes:       string(c.Notes),
		},
	}, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	if strings.HasPrefix(text, "{") {
		return text
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
