package conversation

import (
	"encoding/json"
	"strings"
)

// Stage is a point in the qualification funnel.
type Stage string

const (
	StageIntake           Stage = "intake"
	StageContactName      Stage = "contact:name"
	StageContactEmail     Stage = "contact:email"
	StageContactWhatsApp  Stage = "contact:whatsapp"
	StageContactFromCity  Stage = "contact:fromCity"
	StageRefineStyle      Stage = "refine:style"
	StageRefinePriorities Stage = "refine:priorities"
	StageConfirmDone      Stage = "confirm_done"
	StageCompleted        Stage = "completed"
	StageAddMore          Stage = "add_more"
)

var knownStages = map[Stage]bool{
	StageIntake:           true,
	StageContactName:      true,
	StageContactEmail:     true,
	StageContactWhatsApp:  true,
	StageContactFromCity:  true,
	StageRefineStyle:      true,
	StageRefinePriorities: true,
	StageConfirmDone:      true,
	StageCompleted:        true,
	StageAddMore:          true,
}

// ParseStage normalizes a stage label. Unknown labels return false; the bare
// group names "contact" and "refine" map to their first step.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(strings.TrimSpace(raw))
	switch strings.ToLower(string(s)) {
	case "":
		return "", false
	case "contact":
		return StageContactName, true
	case "refine":
		return StageRefineStyle, true
	case "contact:fromcity":
		return StageContactFromCity, true
	}
	if knownStages[s] {
		return s, true
	}
	lower := Stage(strings.ToLower(string(s)))
	if knownStages[lower] {
		return lower, true
	}
	return "", false
}

// IsContact reports whether the stage collects identity details.
func (s Stage) IsContact() bool { return strings.HasPrefix(string(s), "contact:") }

// IsRefine reports whether the stage collects travel preferences.
func (s Stage) IsRefine() bool { return strings.HasPrefix(string(s), "refine:") }

// IsClosing reports whether the funnel has been fully walked.
func (s Stage) IsClosing() bool {
	return s == StageConfirmDone || s == StageCompleted || s == StageAddMore
}

// AnyPreference is recorded when the user has no style or priority preference.
const AnyPreference = "Any"

// CapturedLead holds everything known about the traveller. An empty string or
// nil slice means unknown.
type CapturedLead struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	WhatsApp    string   `json:"whatsapp"`
	FromCity    string   `json:"fromCity"`
	Destination string   `json:"destination"`
	Dates       string   `json:"dates"`
	Nights      string   `json:"nights"`
	Budget      string   `json:"budget"`
	Travellers  string   `json:"travellers"`
	Style       []string `json:"style"`
	Priorities  []string `json:"priorities"`
	Notes       string   `json:"notes"`
}

type capturedWire struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email"`
	WhatsApp    *string  `json:"whatsapp"`
	FromCity    *string  `json:"fromCity"`
	Destination *string  `json:"destination"`
	Dates       *string  `json:"dates"`
	Nights      *string  `json:"nights"`
	Budget      *string  `json:"budget"`
	Travellers  *string  `json:"travellers"`
	Style       []string `json:"style"`
	Priorities  []string `json:"priorities"`
	Notes       *string  `json:"notes"`
}

func nullable(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// MarshalJSON writes unknown fields as null so the client can tell them apart
// from values.
func (c CapturedLead) MarshalJSON() ([]byte, error) {
	return json.Marshal(capturedWire{
		Name:        nullable(c.Name),
		Email:       nullable(c.Email),
		WhatsApp:    nullable(c.WhatsApp),
		FromCity:    nullable(c.FromCity),
		Destination: nullable(c.Destination),
		Dates:       nullable(c.Dates),
		Nights:      nullable(c.Nights),
		Budget:      nullable(c.Budget),
		Travellers:  nullable(c.Travellers),
		Style:       nonEmpty(c.Style),
		Priorities:  nonEmpty(c.Priorities),
		Notes:       nullable(c.Notes),
	})
}

func nonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

// Clone returns a deep copy.
func (c CapturedLead) Clone() CapturedLead {
	out := c
	out.Style = append([]string(nil), c.Style...)
	out.Priorities = append([]string(nil), c.Priorities...)
	return out
}

// Normalize trims whitespace from every field and drops blank list entries.
func (c *CapturedLead) Normalize() {
	for _, f := range c.scalarFields() {
		*f.value = strings.TrimSpace(*f.value)
	}
	c.Style = cleanList(c.Style)
	c.Priorities = cleanList(c.Priorities)
}

func cleanList(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

type scalarField struct {
	name  string
	value *string
}

// scalarFields lists the overwritable single-value fields. Notes are excluded
// because they are append-only.
func (c *CapturedLead) scalarFields() []scalarField {
	return []scalarField{
		{"name", &c.Name},
		{"email", &c.Email},
		{"whatsapp", &c.WhatsApp},
		{"fromCity", &c.FromCity},
		{"destination", &c.Destination},
		{"dates", &c.Dates},
		{"nights", &c.Nights},
		{"budget", &c.Budget},
		{"travellers", &c.Travellers},
	}
}

// Merge folds update into c and returns the names of the fields that changed.
// A known field is only replaced when overwrite is set, which the engine does
// for explicit corrections. Notes from update are appended.
func (c *CapturedLead) Merge(update CapturedLead, overwrite bool) []string {
	var changed []string
	incomingFields := update.scalarFields()
	for i, f := range c.scalarFields() {
		incoming := strings.TrimSpace(*incomingFields[i].value)
		if incoming == "" || strings.EqualFold(incoming, *f.value) {
			continue
		}
		if *f.value != "" && !overwrite {
			continue
		}
		*f.value = incoming
		changed = append(changed, f.name)
	}
	if list := cleanList(update.Style); len(list) > 0 && (len(c.Style) == 0 || overwrite) && !sameList(c.Style, list) {
		c.Style = list
		changed = append(changed, "style")
	}
	if list := cleanList(update.Priorities); len(list) > 0 && (len(c.Priorities) == 0 || overwrite) && !sameList(c.Priorities, list) {
		c.Priorities = list
		changed = append(changed, "priorities")
	}
	if c.AppendNote(update.Notes) {
		changed = append(changed, "notes")
	}
	return changed
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// AppendNote adds a line to the notes unless it is blank or already present.
func (c *CapturedLead) AppendNote(note string) bool {
	note = strings.TrimSpace(note)
	if note == "" {
		return false
	}
	for _, line := range strings.Split(c.Notes, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), note) {
			return false
		}
	}
	if c.Notes == "" {
		c.Notes = note
	} else {
		c.Notes += "\n" + note
	}
	return true
}

// HasTripBasics reports whether the intake fields are all known.
func (c CapturedLead) HasTripBasics() bool {
	return c.Destination != "" && c.Dates != "" && c.Budget != "" && c.Travellers != ""
}

// MissingTripBasics lists the unknown intake fields in asking order.
func (c CapturedLead) MissingTripBasics() []string {
	var missing []string
	if c.Destination == "" {
		missing = append(missing, "destination")
	}
	if c.Dates == "" {
		missing = append(missing, "dates")
	}
	if c.Budget == "" {
		missing = append(missing, "budget")
	}
	if c.Travellers == "" {
		missing = append(missing, "travellers")
	}
	return missing
}

// ChatMessage is one entry of the transcript the widget sends each turn.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionState is the whole server-side view of a conversation. The client
// stores it and echoes it back on the next turn.
type SessionState struct {
	Stage         Stage        `json:"stage"`
	Captured      CapturedLead `json:"captured"`
	LastEmailHash string       `json:"lastEmailHash"`
}

type sessionStateWire struct {
	Stage         Stage        `json:"stage"`
	Captured      CapturedLead `json:"captured"`
	LastEmailHash *string      `json:"lastEmailHash"`
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionStateWire{
		Stage:         s.Stage,
		Captured:      s.Captured,
		LastEmailHash: nullable(s.LastEmailHash),
	})
}

// normalized returns a copy with a valid stage and trimmed fields.
func (s SessionState) normalized() SessionState {
	out := s
	out.Captured = s.Captured.Clone()
	out.Captured.Normalize()
	if stage, ok := ParseStage(string(s.Stage)); ok {
		out.Stage = stage
	} else {
		out.Stage = StageIntake
	}
	out.LastEmailHash = strings.TrimSpace(s.LastEmailHash)
	return out
}

// TurnRequest is the body of POST /api/chat.
type TurnRequest struct {
	SessionID string        `json:"sessionId"`
	Messages  []ChatMessage `json:"messages"`
	State     SessionState  `json:"state"`
}

// TurnResponse is returned for every turn, including failures.
type TurnResponse struct {
	Reply string       `json:"reply"`
	State SessionState `json:"state"`
}

// latestUserText returns the most recent user message.
func latestUserText(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].Text)
		}
	}
	return ""
}

// userTranscript joins everything the user has written, lowercased.
func userTranscript(messages []ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		b.WriteString(strings.ToLower(m.Text))
		b.WriteByte('\n')
	}
	return b.String()
}
