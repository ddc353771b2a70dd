package conversation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/wayloft-concierge/internal/llm"
	"github.com/wolfman30/wayloft-concierge/internal/observability/metrics"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

// ErrNotConfigured is returned when the engine has no language model or no
// notifier. The turn is answered with a fixed apology and the state is left
// untouched.
var ErrNotConfigured = errors.New("conversation: language model or notifier not configured")

var engineTracer = otel.Tracer("wayloft.internal.conversation")

// NotProvided marks a contact field the traveller declined to share.
const NotProvided = "not provided"

const (
	sourceDeterministic = "deterministic"
	sourceModel         = "model"
	sourceFallback      = "fallback"
	sourceStatic        = "static"
)

// NoticeKind distinguishes the first advisor email from later ones.
type NoticeKind string

const (
	NoticeCompletion NoticeKind = "completion"
	NoticeUpdate     NoticeKind = "update"
)

// DispatchResult reports what the notifier did. Hash is the fingerprint of the
// snapshot and is recorded whether or not delivery succeeded.
type DispatchResult struct {
	Sent bool
	Hash string
	Kind NoticeKind
}

// Notifier sends the advisor notification for a completed lead at most once
// per distinct snapshot.
type Notifier interface {
	MaybeNotify(ctx context.Context, sessionID string, lead CapturedLead, lastHash string) DispatchResult
}

// EngineConfig is the data that shapes the funnel.
type EngineConfig struct {
	Destinations []string
	// CountryCode replaces a leading trunk 0 in phone numbers.
	CountryCode  string
	Phrasing     Phrasing
	HistoryLimit int
	MaxTokens    int32
	Temperature  float32
}

// Engine runs one chat turn at a time. It keeps no per-session state, so a
// single Engine serves every session concurrently.
type Engine struct {
	client    llm.Client
	notifier  Notifier
	extractor *Extractor
	prompts   *PromptBuilder
	guard     *Guard
	phrasing  Phrasing
	metrics   *metrics.ConciergeMetrics
	logger    *logging.Logger
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithMetrics records turn, guard and model-latency metrics.
func WithMetrics(m *metrics.ConciergeMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine wires the engine. client and notifier may be nil, in which case
// every turn fails with ErrNotConfigured.
func NewEngine(client llm.Client, notifier Notifier, cfg EngineConfig, logger *logging.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	phrasing := cfg.Phrasing.withDefaults()
	extractor := NewExtractor(cfg.Destinations, cfg.CountryCode)
	e := &Engine{
		client:    client,
		notifier:  notifier,
		extractor: extractor,
		prompts: NewPromptBuilder(PromptConfig{
			Destinations: extractor.Destinations(),
			Phrasing:     phrasing,
			HistoryLimit: cfg.HistoryLimit,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
		}),
		guard:    NewGuard(phrasing),
		phrasing: phrasing,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn is the working set for one request.
type turn struct {
	sessionID  string
	history    []ChatMessage
	text       string
	prev       Stage
	intent     Intent
	correction bool
	ext        Extraction
	captured   CapturedLead
	changed    []string
	stage      Stage
	reply      string
	source     string
	redirect   bool
	lastHash   string
}

// Turn processes the latest user message and returns the reply with the next
// state. The returned state is always usable, even alongside an error.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("wayloft.session_id", req.SessionID),
		attribute.String("wayloft.prev_stage", string(req.State.Stage)),
	)

	if e.client == nil || e.notifier == nil {
		span.RecordError(ErrNotConfigured)
		return TurnResponse{Reply: e.phrasing.NotConfigured, State: req.State}, ErrNotConfigured
	}

	text := latestUserText(req.Messages)
	if text == "" {
		e.metrics.ObserveTurn(string(req.State.Stage), sourceStatic)
		return TurnResponse{Reply: e.phrasing.Empty, State: req.State}, nil
	}

	logger := e.logger.WithSession(req.SessionID)
	state := req.State.normalized()
	t := &turn{
		sessionID:  req.SessionID,
		history:    req.Messages,
		text:       text,
		prev:       askedStage(state),
		intent:     ClassifyIntent(text),
		correction: IsCorrection(text),
		ext:        e.extractor.Extract(text),
		captured:   state.Captured,
		lastHash:   state.LastEmailHash,
		source:     sourceDeterministic,
	}

	e.applyUserInput(t)
	if e.needsModel(t) {
		e.modelReply(ctx, t, logger)
	} else {
		e.deterministicReply(t)
	}

	next := e.finish(ctx, t, logger)
	span.SetAttributes(
		attribute.String("wayloft.stage", string(next.Stage)),
		attribute.String("wayloft.reply_source", t.source),
	)
	e.metrics.ObserveTurn(string(next.Stage), t.source)
	logger.Info("chat turn processed",
		"prev_stage", t.prev,
		"stage", next.Stage,
		"intent", t.intent,
		"source", t.source,
		"changed", t.changed,
	)
	return TurnResponse{Reply: t.reply, State: next}, nil
}

// askedStage is the stage whose question the previous reply put to the
// traveller. A complete lead held at refine:priorities was last asked the
// confirmation question, so it answers as confirm_done.
func askedStage(state SessionState) Stage {
	if state.Stage == StageRefinePriorities && NextOpenStage(state.Captured) == StageConfirmDone {
		return StageConfirmDone
	}
	return state.Stage
}

// applyUserInput merges what the latest message revealed and resolves the
// candidate stage.
func (e *Engine) applyUserInput(t *turn) {
	if d := t.captured.Destination; d != "" {
		if canon, ok := e.extractor.CanonicalDestination(d); ok {
			t.captured.Destination = canon
		} else {
			t.captured.Destination = ""
			t.redirect = true
		}
	}

	update := t.ext.Lead()
	if t.ext.BudgetPerPerson {
		update.Budget = ""
	}
	e.captureStageAnswer(t, &update)
	t.changed = t.captured.Merge(update, t.correction)

	if t.captured.Destination == "" && t.ext.UnsupportedDestination != "" {
		t.redirect = true
	}
	t.stage = ResolveStage(t.captured, t.prev, t.intent)
}

var (
	noPreferencePattern   = regexp.MustCompile(`(?i)\b(?:no preferences?|no particular|nothing in particular|anything|any|open|not sure|don'?t mind|do not mind|whatever|flexible|surprise me|no idea|up to you|not fussed|either|all of (?:them|it))\b`)
	declineContactPattern = regexp.MustCompile(`(?i)\b(?:don'?t have|do not have|no whatsapp|not on whatsapp|rather not|prefer not|email (?:is )?(?:fine|better|only)|skip)\b`)
)

// captureStageAnswer reads short replies in the context of the question that
// was just asked, e.g. "John" after "what name should I put this under?".
func (e *Engine) captureStageAnswer(t *turn, update *CapturedLead) {
	bare := strings.TrimSpace(strings.Trim(t.text, ".!"))
	plainAnswer := t.intent == IntentOther && !IsQuestion(t.text)

	switch t.prev {
	case StageContactName:
		if update.Name != "" || t.captured.Name != "" {
			return
		}
		if name := e.extractor.extractCasualName(t.text); name != "" {
			update.Name = name
		} else if plainAnswer && looksLikeName(bare) && e.extractor.MatchDestination(bare) == "" {
			update.Name = titleWords(bare)
		}
	case StageContactWhatsApp:
		if update.WhatsApp == "" && t.captured.WhatsApp == "" && (t.intent == IntentNegative || declineContactPattern.MatchString(t.text)) {
			update.WhatsApp = NotProvided
		}
	case StageContactFromCity:
		if update.FromCity == "" && t.captured.FromCity == "" && plainAnswer && looksLikeName(bare) {
			update.FromCity = titleWords(bare)
		}
	case StageRefineStyle, StageRefinePriorities:
		styles, priorities := matchPreferences(t.text)
		openToAnything := t.intent == IntentNegative || noPreferencePattern.MatchString(t.text)
		if len(t.captured.Style) == 0 {
			if t.prev == StageRefineStyle && len(styles) == 0 {
				switch {
				case openToAnything:
					styles = []string{AnyPreference}
				case plainAnswer:
					styles = freeList(t.text)
				}
			}
			update.Style = styles
		}
		if len(t.captured.Priorities) == 0 {
			if t.prev == StageRefinePriorities && len(priorities) == 0 {
				switch {
				case openToAnything:
					priorities = []string{AnyPreference}
				case plainAnswer:
					priorities = freeList(t.text)
				}
			}
			update.Priorities = priorities
		}
	}
}

// needsModel reports whether the turn needs free text: intake, and questions
// asked mid-funnel. Closing stages and validation replies are always
// deterministic.
func (e *Engine) needsModel(t *turn) bool {
	switch {
	case t.redirect, t.ext.BudgetPerPerson:
		return false
	case t.stage == StageIntake:
		return true
	case t.prev.IsClosing() || t.stage.IsClosing():
		return false
	default:
		return IsQuestion(t.text)
	}
}

func (e *Engine) deterministicReply(t *turn) {
	switch {
	case t.redirect && t.ext.BudgetPerPerson:
		t.reply = joinReply(e.phrasing.RedirectMessage(e.extractor.Destinations()), e.phrasing.BudgetPerPerson)
	case t.redirect:
		t.reply = e.phrasing.RedirectMessage(e.extractor.Destinations())
	case t.ext.BudgetPerPerson:
		t.reply = e.phrasing.BudgetPerPerson
		if t.prev.IsClosing() {
			t.stage = t.prev
		}
	case t.stage == StageAddMore:
		e.captureAddition(t)
	case t.stage == StageCompleted && t.prev == StageConfirmDone:
		t.reply = joinReply(e.phrasing.Completion, e.phrasing.Handoff)
	case t.stage == StageCompleted:
		t.reply = e.phrasing.AllSet
	default:
		if hint := e.validationHint(t); hint != "" {
			t.reply = hint
			return
		}
		t.reply = joinReply(e.acknowledge(t), e.phrasing.Question(t.stage, t.captured))
	}
}

// captureAddition handles content offered after the funnel is complete. The
// content lands in a specific field on an explicit correction, otherwise in
// notes, and the conversation returns to confirm_done.
func (e *Engine) captureAddition(t *turn) {
	note := noteContent(t.text)
	corrected := t.correction && len(t.changed) > 0
	if note == "" && len(t.changed) == 0 {
		t.reply = e.phrasing.AskAddMore
		return
	}
	if note != "" && !corrected {
		if t.captured.AppendNote(note) {
			t.changed = append(t.changed, "notes")
		}
	}
	t.stage = StageConfirmDone
	if corrected {
		t.reply = e.phrasing.LeadUpdated
		return
	}
	t.reply = e.phrasing.NoteAdded
}

func (e *Engine) acknowledge(t *turn) string {
	switch {
	case t.prev == StageIntake && t.stage != StageIntake:
		return tripSummary(t.captured)
	case t.correction && len(t.changed) > 0:
		return "Thanks, I've updated that."
	default:
		return ""
	}
}

// validationHint explains why a contact answer was not accepted.
func (e *Engine) validationHint(t *turn) string {
	if t.stage != t.prev {
		return ""
	}
	switch t.stage {
	case StageContactEmail:
		if t.ext.RejectedEmail {
			return e.phrasing.InvalidEmail
		}
	case StageContactWhatsApp:
		if t.ext.RejectedPhone || (t.ext.WhatsApp == "" && countDigits(t.text) >= 3) {
			return e.phrasing.InvalidPhone
		}
	}
	return ""
}

func (e *Engine) modelReply(ctx context.Context, t *turn, logger *logging.Logger) {
	req := e.prompts.Build(t.stage, t.captured, t.history)

	start := time.Now()
	resp, err := e.client.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.ObserveLLMLatency(status, time.Since(start).Seconds())
	if err != nil {
		logger.Warn("llm call failed, falling back to deterministic reply", "error", err, "stage", t.stage)
		t.source = sourceFallback
		t.reply = joinReply(e.phrasing.ModelUnavailable, e.phrasing.Question(t.stage, t.captured))
		return
	}

	proposal, err := ParseProposal(resp.Text)
	if err != nil {
		logger.Warn("malformed model proposal", "error", err, "stage", t.stage, "preview", logging.Preview(resp.Text, 200))
		t.source = sourceFallback
		t.reply = e.phrasing.Question(t.stage, t.captured)
		return
	}

	accepted, rules := e.acceptProposedFields(proposal.Captured, t)
	t.changed = append(t.changed, t.captured.Merge(accepted, false)...)
	t.stage = ResolveStage(t.captured, t.prev, t.intent)

	reviewed := e.guard.Review(GuardInput{
		Proposal: proposal,
		Resolved: t.stage,
		Previous: t.prev,
		Intent:   t.intent,
		Captured: t.captured,
	})
	t.stage, t.reply = reviewed.Stage, reviewed.Reply
	t.source = sourceModel

	for _, rule := range append(rules, reviewed.Rules...) {
		e.metrics.ObserveGuardOverride(guardRuleLabel(rule))
		logger.Info("guard override", "rule", rule, "proposed_stage", proposal.RawStage, "stage", t.stage)
	}
	if t.redirect {
		t.reply = e.phrasing.RedirectMessage(e.extractor.Destinations())
	}
}

func guardRuleLabel(rule string) string {
	if i := strings.Index(rule, ":"); i >= 0 {
		return rule[:i]
	}
	return rule
}

// acceptProposedFields keeps the model's captured values that are valid and,
// for contact details, appear in something the user actually wrote.
func (e *Engine) acceptProposedFields(p CapturedLead, t *turn) (CapturedLead, []string) {
	transcript := userTranscript(t.history)
	digits := onlyDigits(transcript)
	var out CapturedLead
	var rules []string

	if p.Destination != "" {
		if canon, ok := e.extractor.CanonicalDestination(p.Destination); ok {
			out.Destination = canon
		} else {
			rules = append(rules, RuleUnsupportedDest+":"+p.Destination)
			if t.captured.Destination == "" {
				t.redirect = true
			}
		}
	}

	if p.Email != "" {
		switch email := ExtractEmail(p.Email); {
		case email == "":
			rules = append(rules, RuleInvalidField+":email")
		case !strings.Contains(transcript, email):
			rules = append(rules, RuleUngroundedField+":email")
		default:
			out.Email = email
		}
	}

	if p.WhatsApp != "" {
		phone := e.extractor.NormalizePhone(p.WhatsApp)
		switch {
		case phone == "":
			rules = append(rules, RuleInvalidField+":whatsapp")
		case !strings.Contains(digits, lastDigits(phone, 9)):
			rules = append(rules, RuleUngroundedField+":whatsapp")
		default:
			out.WhatsApp = phone
		}
	}

	if name := strings.TrimSpace(p.Name); name != "" {
		if strings.Contains(transcript, strings.ToLower(firstName(name))) {
			out.Name = name
		} else {
			rules = append(rules, RuleUngroundedField+":name")
		}
	}

	if city := strings.TrimSpace(p.FromCity); city != "" {
		if strings.Contains(transcript, strings.ToLower(city)) {
			out.FromCity = city
		} else {
			rules = append(rules, RuleUngroundedField+":fromCity")
		}
	}

	if p.Budget != "" {
		budget, perPerson := extractBudget(p.Budget)
		if budget == "" && !perPerson {
			budget = strings.TrimSpace(p.Budget)
		}
		switch {
		case perPerson || countDigits(budget) == 0:
			rules = append(rules, RuleInvalidField+":budget")
		case !budgetStatedAsTotal(t.history, budget):
			rules = append(rules, RuleUngroundedField+":budget")
		default:
			out.Budget = budget
		}
	}

	out.Dates = strings.TrimSpace(p.Dates)
	if n := onlyDigits(p.Nights); n != "" {
		out.Nights = n
	}
	if n := onlyDigits(p.Travellers); n != "" && n != "0" {
		out.Travellers = n
	}
	out.Style = canonicalPreferences(p.Style, styleVocabulary)
	out.Priorities = canonicalPreferences(p.Priorities, priorityVocabulary)
	return out, rules
}

// budgetStatedAsTotal reports whether the most recent user message that
// mentions amount gave it as a whole-trip figure.
func budgetStatedAsTotal(messages []ChatMessage, amount string) bool {
	want := onlyDigits(amount)
	if want == "" {
		return false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != RoleUser {
			continue
		}
		mentioned := strings.Contains(onlyDigits(m.Text), want)
		switch stated, perPerson := extractBudget(m.Text); {
		case perPerson:
			if mentioned {
				return false
			}
		case stated != "":
			if onlyDigits(stated) == want {
				return true
			}
		case mentioned:
			return true
		}
	}
	return false
}

func lastDigits(phone string, n int) string {
	d := onlyDigits(phone)
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

// finish applies the destination redirect, dispatches the advisor
// notification for completed leads and builds the next state.
func (e *Engine) finish(ctx context.Context, t *turn, logger *logging.Logger) SessionState {
	if t.redirect {
		t.captured.Destination = ""
		t.stage = NextOpenStage(t.captured)
	}
	next := SessionState{Stage: t.stage, Captured: t.captured, LastEmailHash: t.lastHash}
	if t.stage != StageCompleted {
		return next
	}

	t.reply = e.guard.EnsureHandoff(t.reply)
	result := e.notifier.MaybeNotify(ctx, t.sessionID, t.captured, t.lastHash)
	if result.Hash != "" {
		next.LastEmailHash = result.Hash
	}
	if result.Sent {
		logger.Info("advisor notified", "kind", result.Kind, "hash", result.Hash)
	}
	return next
}
