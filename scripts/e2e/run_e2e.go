// Package main runs end-to-end chat scenarios against a running API server,
// holding history and session state client-side exactly like the website
// widget. It needs a configured language model and email transport; point
// EMAIL_PROVIDER=stub at the server to keep advisor emails in the logs.
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go happy-path   # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/wayloft-concierge/internal/conversation"
)

var (
	apiBase string
	client  = &http.Client{Timeout: 90 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// session is one widget conversation.
type session struct {
	id      string
	history []conversation.ChatMessage
	state   conversation.SessionState
	replies []string
}

func newSession() *session {
	return &session{id: "e2e-" + uuid.NewString(), state: conversation.SessionState{Stage: conversation.StageIntake}}
}

func (s *session) say(text string) (string, error) {
	s.history = append(s.history, conversation.ChatMessage{Role: conversation.RoleUser, Text: text})
	body, _ := json.Marshal(conversation.TurnRequest{SessionID: s.id, Messages: s.history, State: s.state})
	resp, err := client.Post(apiBase+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out conversation.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return out.Reply, fmt.Errorf("chat returned %d: %s", resp.StatusCode, out.Reply)
	}
	fmt.Printf("    > %s\n    < %s\n", text, out.Reply)
	s.history = append(s.history, conversation.ChatMessage{Role: conversation.RoleAssistant, Text: out.Reply})
	s.state = out.State
	s.replies = append(s.replies, out.Reply)
	return out.Reply, nil
}

// script sends each message in turn, stopping at the first transport error.
func (s *session) script(t *T, messages ...string) bool {
	for _, m := range messages {
		if _, err := s.say(m); err != nil {
			t.fatalf("send %q: %v", m, err)
			return false
		}
	}
	return true
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// asksForContactAgain reports whether any reply after index from asks for an
// email or WhatsApp number.
func asksForContactAgain(replies []string, from int) bool {
	for i := from; i < len(replies); i++ {
		if containsAny(replies[i], "your email", "email address", "whatsapp number") {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHappyPath(t *T) {
	s := newSession()
	if !s.script(t, "Morocco, 12 Jan to 16 Jan, 2 people, £2000 total", "John") {
		return
	}
	t.check("asks for email after name", s.state.Stage == conversation.StageContactEmail)
	if !s.script(t, "john@x.com") {
		return
	}
	emailAnswered := len(s.replies)
	if !s.script(t, "07123456789", "London", "Luxury", "Best views") {
		return
	}
	t.check("whatsapp normalized", s.state.Captured.WhatsApp == "+447123456789")
	t.check("confirm_done asks anything else", s.state.Stage == conversation.StageConfirmDone && containsAny(s.replies[len(s.replies)-1], "anything else"))
	if !s.script(t, "no") {
		return
	}
	t.check("completed", s.state.Stage == conversation.StageCompleted)
	t.check("hand-off sentence", strings.Contains(s.replies[len(s.replies)-1], conversation.HandoffSentence))
	t.check("notification hash recorded", s.state.LastEmailHash != "")
	t.check("never re-asks contact details", !asksForContactAgain(s.replies, emailAnswered))
}

func scenarioPerPersonBudget(t *T) {
	s := newSession()
	reply, err := s.say("Jordan in March for 2 people, £900 per person")
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("budget not captured", s.state.Captured.Budget == "")
	t.check("asks for a trip total", containsAny(reply, "total"))
}

func scenarioOutOfListDestination(t *T) {
	s := newSession()
	reply, err := s.say("I'd love to go to Spain in May")
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("destination cleared", s.state.Captured.Destination == "")
	t.check("redirects to allowed list", containsAny(reply, "Morocco") && containsAny(reply, "Turkey"))
}

func scenarioAddMoreUpdate(t *T) {
	s := newSession()
	if !s.script(t,
		"Albania, 3 June to 10 June, 2 adults, £3000 total",
		"Maya", "maya@example.com", "no", "Manchester", "no preference", "no preference", "no",
	) {
		return
	}
	firstHash := s.state.LastEmailHash
	t.check("completed first", s.state.Stage == conversation.StageCompleted && firstHash != "")
	if !s.script(t, "We'd also like a cooking class") {
		return
	}
	t.check("back at confirm_done", s.state.Stage == conversation.StageConfirmDone)
	t.check("note appended", containsAny(s.state.Captured.Notes, "cooking class"))
	if !s.script(t, "no that's all") {
		return
	}
	t.check("update sent with new hash", s.state.LastEmailHash != "" && s.state.LastEmailHash != firstHash)
}

func scenarioLeadForm(t *T) {
	body := `{"name":"Ana","email":"ana@example.com","destination":"Turkey","style":["Romantic"],"priorities":["Best views"]}`
	resp, err := client.Post(apiBase+"/api/lead", "application/json", strings.NewReader(body))
	if err != nil {
		t.fatalf("post form: %v", err)
		return
	}
	defer resp.Body.Close()
	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	t.check("form accepted", resp.StatusCode == http.StatusOK && out.OK)

	resp2, err := client.Post(apiBase+"/api/lead", "application/json", strings.NewReader(`{"name":"Ana"}`))
	if err != nil {
		t.fatalf("post form: %v", err)
		return
	}
	defer resp2.Body.Close()
	t.check("form without contact rejected", resp2.StatusCode == http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"happy-path", scenarioHappyPath},
		{"per-person-budget", scenarioPerPersonBudget},
		{"out-of-list-destination", scenarioOutOfListDestination},
		{"add-more-update", scenarioAddMoreUpdate},
		{"lead-form", scenarioLeadForm},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "✅"
		if t.failed > 0 {
			status = "❌"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\n❌ SOME TESTS FAILED")
		os.Exit(1)
	}
	fmt.Println("\n✅ ALL TESTS PASSED")
}
