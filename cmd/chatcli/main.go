// Command chatcli drives the concierge from a terminal. It keeps the chat
// history and session state client-side and sends both with every turn, the
// same way the website widget does.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/wayloft-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/conversation"
	"github.com/wolfman30/wayloft-concierge/internal/observability/metrics"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	apiURL := flag.String("api", "", "base URL of a running API server; empty runs the engine in process")
	showState := flag.Bool("state", false, "print the session state after every turn")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		turns conversation.TurnProcessor
		rt    *bootstrap.Runtime
		err   error
	)
	if *apiURL != "" {
		turns = &httpTurns{baseURL: strings.TrimRight(*apiURL, "/"), client: &http.Client{Timeout: 90 * time.Second}}
	} else {
		rt, err = localRuntime(ctx)
		if err != nil {
			log.Fatalf("build engine: %v", err)
		}
		defer rt.Close()
		turns = rt.Engine
	}

	fmt.Println("Wayloft concierge. Type your message, or /quit to leave.")
	if err := run(ctx, turns, os.Stdin, os.Stdout, uuid.NewString(), *showState); err != nil {
		log.Print(err)
	}
	if rt != nil {
		printSummary(os.Stdout, metrics.Snapshot(rt.Gatherer))
	}
}

func printSummary(out io.Writer, s metrics.Summary) {
	fmt.Fprintf(out, "turns=%d guard_overrides=%d notifications_sent=%d llm_calls=%d llm_failures=%d llm_p95=%.0fms\n",
		s.Turns, s.GuardOverrides, s.NotificationsSent, s.LLMCalls, s.LLMFailures, s.LLMP95Ms)
}

// localRuntime builds the engine in process. Advisor emails are logged rather
// than sent unless an email provider is configured explicitly.
func localRuntime(ctx context.Context) (*bootstrap.Runtime, error) {
	cfg := appconfig.Load()
	if cfg.EmailProvider == "" && cfg.SendGridAPIKey == "" {
		cfg.EmailProvider = "stub"
	}
	if cfg.LeadsToEmail == "" {
		cfg.LeadsToEmail = "advisor@localhost"
	}
	return bootstrap.Build(ctx, cfg, logging.New(cfg.LogLevel))
}

// run reads one user message per line until EOF or /quit.
func run(ctx context.Context, turns conversation.TurnProcessor, in io.Reader, out io.Writer, sessionID string, showState bool) error {
	var (
		history []conversation.ChatMessage
		state   = conversation.SessionState{Stage: conversation.StageIntake}
	)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "/quit" || text == "/exit" {
			return nil
		}
		if text == "/reset" {
			history, state = nil, conversation.SessionState{Stage: conversation.StageIntake}
			sessionID = uuid.NewString()
			fmt.Fprintln(out, "(new session)")
			continue
		}

		history = append(history, conversation.ChatMessage{Role: conversation.RoleUser, Text: text})
		resp, err := turns.Turn(ctx, conversation.TurnRequest{
			SessionID: sessionID,
			Messages:  history,
			State:     state,
		})
		if err != nil {
			fmt.Fprintf(out, "[error: %v]\n", err)
		}
		history = append(history, conversation.ChatMessage{Role: conversation.RoleAssistant, Text: resp.Reply})
		state = resp.State

		fmt.Fprintf(out, "Wayloft: %s\n", resp.Reply)
		if showState {
			raw, _ := json.Marshal(state)
			fmt.Fprintf(out, "  state: %s\n", raw)
		}
	}
}

// httpTurns sends turns to POST /api/chat.
type httpTurns struct {
	baseURL string
	client  *http.Client
}

func (h *httpTurns) Turn(ctx context.Context, req conversation.TurnRequest) (conversation.TurnResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return conversation.TurnResponse{State: req.State}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return conversation.TurnResponse{State: req.State}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := h.client.Do(httpReq)
	if err != nil {
		return conversation.TurnResponse{State: req.State}, err
	}
	defer res.Body.Close()

	var resp conversation.TurnResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return conversation.TurnResponse{State: req.State}, fmt.Errorf("decode chat response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("chat endpoint returned %d", res.StatusCode)
	}
	return resp, nil
}
