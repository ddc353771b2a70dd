package conversation

import (
	"regexp"
	"strings"
)

// Guard rule names, used for logging and metrics.
const (
	RuleForbiddenPhrase    = "forbidden_phrase"
	RulePerPersonRewrite   = "per_person_rewrite"
	RulePrematureComplete  = "premature_completion"
	RuleConfirmNoQuestion  = "confirm_without_question"
	RuleRepeatedContactAsk = "repeated_contact_question"
	RulePendingQuestion    = "pending_question_appended"
	RuleHandoffAppended    = "handoff_appended"
	RuleUnsupportedDest    = "unsupported_destination"
	RuleUngroundedField    = "ungrounded_field"
	RuleInvalidField       = "invalid_field"
)

// guardPattern flags reply text that must never reach a traveller.
type guardPattern struct {
	re     *regexp.Regexp
	reason string
	block  bool // block replaces the reply; otherwise the offending sentence is dropped
}

var forbiddenReplyPatterns = []guardPattern{
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "system_prompt_disclosure", true},
	{regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include|require)`), "instructions_disclosure", true},
	{regexp.MustCompile(`(?i)i('m| am) (programmed|instructed|told|designed|configured) to`), "programming_disclosure", true},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines|prompts)`), "rules_listing", true},
	{regexp.MustCompile(`(?i)(powered by|built on|running on|using)\s+(Claude|GPT|OpenAI|Anthropic|Bedrock|Gemini|AWS)`), "tech_stack", true},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "aws_key", true},
	{regexp.MustCompile(`(?i)(postgres|mysql|redis)://\S+`), "database_url", true},
	{regexp.MustCompile(`"(stage|captured|lastEmailHash)"\s*:`), "state_json", true},
	{regexp.MustCompile(`(?i)i('m| am) (a|an) (AI|artificial intelligence|language model|LLM|chatbot|chat bot)\b`), "ai_identity", false},
	{regexp.MustCompile(`(?i)\b(we|i) (guarantee|promise)\b`), "guarantee", false},
	{regexp.MustCompile(`(?i)\b(i('ve| have)|we('ve| have)) (booked|reserved|confirmed) (your|the)\b`), "booking_claim", false},
}

var (
	perPersonReplyPattern = regexp.MustCompile(`(?i)\b(?:per[- ]person|per head|per traveller|per traveler|per pax|pp)\b`)
	perPersonEachPattern  = regexp.MustCompile(`(?i)((?:[£$€]\s?\d[\d,.]*k?|\d[\d,.]*k?\s*(?:gbp|pounds?|quid|usd|dollars?|eur|euros?)))\s+each\b`)
	confirmPhrasePattern  = regexp.MustCompile(`(?i)anything else`)
	sentenceSplit         = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// stageAskPatterns recognise a reply that already asks for a stage's field.
var stageAskPatterns = map[Stage]*regexp.Regexp{
	StageContactName:      regexp.MustCompile(`(?i)\byour (?:full |first )?name\b|\bwhat name\b|\bname should i\b|who am i (speaking|chatting) (to|with)`),
	StageContactEmail:     regexp.MustCompile(`(?i)\be-?mail\b`),
	StageContactWhatsApp:  regexp.MustCompile(`(?i)\bwhatsapp\b|\b(?:phone|mobile|contact) (?:number|no)\b|\byour (?:phone|mobile|number)\b`),
	StageContactFromCity:  regexp.MustCompile(`(?i)\b(which|what) city\b|\b(flying|travell?ing|departing|coming|leaving) from\b|\bdeparture (city|airport)\b`),
	StageRefineStyle:      regexp.MustCompile(`(?i)\b(style|kind of trip|type of trip|vibe)\b`),
	StageRefinePriorities: regexp.MustCompile(`(?i)\bpriorit`),
	StageConfirmDone:      confirmPhrasePattern,
	StageAddMore:          regexp.MustCompile(`(?i)\badd\b`),
}

// GuardInput is everything the guard needs to review one model proposal.
type GuardInput struct {
	Proposal Proposal
	// Resolved is the stage the resolver chose after merging this turn.
	Resolved Stage
	Previous Stage
	Intent   Intent
	Captured CapturedLead
}

// GuardResult is the reviewed reply and stage.
type GuardResult struct {
	Stage Stage
	Reply string
	Rules []string
}

// Guard enforces the invariants a model reply cannot be trusted to keep.
type Guard struct {
	phrasing Phrasing
}

func NewGuard(phrasing Phrasing) *Guard {
	return &Guard{phrasing: phrasing.withDefaults()}
}

// Review applies the guard rules in order: forbidden phrasing, budget
// wording, stage corrections, repeated contact questions, then the pending
// question and hand-off sentence.
func (g *Guard) Review(in GuardInput) GuardResult {
	res := GuardResult{Stage: in.Resolved, Reply: strings.TrimSpace(in.Proposal.Reply)}

	if cleaned, fired := scrubReply(res.Reply); fired {
		res.Rules = append(res.Rules, RuleForbiddenPhrase)
		res.Reply = cleaned
	}

	if perPersonReplyPattern.MatchString(res.Reply) || perPersonEachPattern.MatchString(res.Reply) {
		res.Reply = perPersonEachPattern.ReplaceAllString(res.Reply, "$1 for the whole trip")
		res.Reply = perPersonReplyPattern.ReplaceAllString(res.Reply, "for the whole trip")
		res.Rules = append(res.Rules, RulePerPersonRewrite)
	}

	completionEarned := in.Previous == StageConfirmDone && in.Intent == IntentNegative
	switch {
	case in.Proposal.Stage == StageCompleted && !completionEarned:
		res.Rules = append(res.Rules, RulePrematureComplete)
		if in.Resolved.IsClosing() {
			res.Stage = StageConfirmDone
			res.Reply = g.phrasing.GuardConfirm
			return res
		}
		res.Reply = g.phrasing.Question(in.Resolved, in.Captured)
		return res
	case in.Proposal.Stage == StageConfirmDone && !confirmPhrasePattern.MatchString(res.Reply):
		res.Rules = append(res.Rules, RuleConfirmNoQuestion)
		if in.Resolved == StageConfirmDone {
			res.Stage = StageRefinePriorities
			res.Reply = g.phrasing.GuardConfirm
			return res
		}
	}

	if field, asked := asksForKnownContact(res.Reply, in.Captured); asked {
		res.Rules = append(res.Rules, RuleRepeatedContactAsk+":"+field)
		res.Reply = g.phrasing.Question(res.Stage, in.Captured)
	}

	if res.Reply == "" {
		res.Reply = g.phrasing.Question(res.Stage, in.Captured)
	} else if res.Stage != StageIntake && res.Stage != StageCompleted && !asksFor(res.Reply, res.Stage) {
		res.Reply = joinReply(res.Reply, g.phrasing.Question(res.Stage, in.Captured))
		res.Rules = append(res.Rules, RulePendingQuestion)
	}

	if res.Stage == StageCompleted {
		if withHandoff := g.EnsureHandoff(res.Reply); withHandoff != res.Reply {
			res.Reply = withHandoff
			res.Rules = append(res.Rules, RuleHandoffAppended)
		}
	}
	return res
}

// EnsureHandoff appends the advisor hand-off sentence when it is missing.
func (g *Guard) EnsureHandoff(reply string) string {
	if strings.Contains(reply, g.phrasing.Handoff) {
		return reply
	}
	return joinReply(reply, g.phrasing.Handoff)
}

// scrubReply removes forbidden phrasing. Blocking patterns empty the reply;
// the others drop only the offending sentence.
func scrubReply(reply string) (string, bool) {
	fired := false
	for _, p := range forbiddenReplyPatterns {
		if !p.re.MatchString(reply) {
			continue
		}
		fired = true
		if p.block {
			return "", true
		}
	}
	if !fired {
		return reply, false
	}
	var kept []string
	for _, sentence := range sentenceSplit.FindAllString(reply, -1) {
		if matchesAny(sentence) {
			continue
		}
		if s := strings.TrimSpace(sentence); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " "), true
}

func matchesAny(sentence string) bool {
	for _, p := range forbiddenReplyPatterns {
		if p.re.MatchString(sentence) {
			return true
		}
	}
	return false
}

var contactStages = []struct {
	field string
	stage Stage
	known func(CapturedLead) bool
}{
	{"name", StageContactName, func(c CapturedLead) bool { return c.Name != "" }},
	{"email", StageContactEmail, func(c CapturedLead) bool { return c.Email != "" }},
	{"whatsapp", StageContactWhatsApp, func(c CapturedLead) bool { return c.WhatsApp != "" }},
	{"fromCity", StageContactFromCity, func(c CapturedLead) bool { return c.FromCity != "" }},
}

// asksForKnownContact reports whether any question sentence in reply requests
// a contact field that is already captured.
func asksForKnownContact(reply string, c CapturedLead) (string, bool) {
	for _, q := range questionSentences(reply) {
		for _, cs := range contactStages {
			if cs.known(c) && stageAskPatterns[cs.stage].MatchString(q) {
				return cs.field, true
			}
		}
	}
	return "", false
}

// asksFor reports whether reply already contains the stage's question.
func asksFor(reply string, stage Stage) bool {
	re, ok := stageAskPatterns[stage]
	if !ok {
		return true
	}
	if stage == StageConfirmDone {
		return re.MatchString(reply)
	}
	for _, q := range questionSentences(reply) {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

func questionSentences(reply string) []string {
	var out []string
	for _, s := range sentenceSplit.FindAllString(reply, -1) {
		if strings.HasSuffix(strings.TrimSpace(s), "?") {
			out = append(out, s)
		}
	}
	return out
}

func joinReply(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
