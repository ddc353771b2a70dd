package conversation

import (
	"regexp"
	"strings"
)

// Intent is the closed set of closing-stage signals the resolver acts on.
type Intent string

const (
	IntentAffirmative Intent = "affirmative"
	IntentNegative    Intent = "negative"
	IntentAddMore     Intent = "add_more"
	IntentOther       Intent = "other"
)

const courtesyExpr = `thanks|thank you|thankyou|thx|ty|cheers|ta|so much|very much|please|for now|i think|at the moment|for the moment|mate|again|a lot|lots`

var (
	negativeUnitExpr = `no|nope|nah|nothing|nothing else|nothing more|none|no more|not really|not at all|no thanks|that'?s all|that'?s it|that'?s everything|that is all|that is it|that is everything|all good|all done|all set|done|(?:i'?m|we'?re|i am|we are) (?:good|fine|done|all set|ok|okay|sorted)|good to go|nothing to add|i have nothing to add|we'?re sorted|sorted|no that'?s all`
	negativePattern  = regexp.MustCompile(`^(?:` + negativeUnitExpr + `)(?: (?:` + negativeUnitExpr + `|` + courtesyExpr + `))*$`)

	affirmativeUnitExpr = `yes|yeah|yep|yup|ya|sure|ok|okay|k|great|perfect|lovely|brilliant|awesome|amazing|wonderful|fantastic|cool|nice|absolutely|of course|definitely|correct|right|exactly|go ahead|sounds good|sounds great|that'?s great|that'?s perfect|looks good|good|fine|` + courtesyExpr
	affirmativePattern  = regexp.MustCompile(`^(?:` + affirmativeUnitExpr + `)(?: (?:` + affirmativeUnitExpr + `))*$`)

	addMorePattern = regexp.MustCompile(`\b(?:i'?d like to add|i would like to add|i want to add|we'?d like to add|can i add|could i add|can we add|let me add|add (?:something|that|a note|one more)|one more thing|another thing|i forgot|oh and|and also|also|something else|there'?s one more|there is one more|actually|one thing)\b`)

	correctionPattern = regexp.MustCompile(`(?i)\b(?:actually|sorry|correction|i meant|my mistake|typo|wrong|instead|change (?:my|the|it|that)|update (?:my|the|it|that)|not \w+,? but|should be|should have said)\b`)

	questionStartPattern = regexp.MustCompile(`^(?:what|when|where|which|who|whom|whose|why|how|can|could|would|will|do|does|did|is|are|was|were|should|have|has|any idea|tell me)\b`)

	intentPunctuation = regexp.MustCompile(`[^a-z0-9' ]+`)
	intentSpaces      = regexp.MustCompile(`\s+`)
)

// normalizeIntentText lowercases and strips punctuation and emoji so
// "No, thanks!" and "no thanks" classify the same.
func normalizeIntentText(text string) string {
	text = strings.ToLower(normalizeQuotes(text))
	text = intentPunctuation.ReplaceAllString(text, " ")
	return strings.TrimSpace(intentSpaces.ReplaceAllString(text, " "))
}

// ClassifyIntent labels an utterance. Whole-utterance negatives win over
// affirmatives so "no thanks" is a negative even though "thanks" alone is a
// pleasantry.
func ClassifyIntent(text string) Intent {
	norm := normalizeIntentText(text)
	switch {
	case norm == "":
		return IntentOther
	case negativePattern.MatchString(norm):
		return IntentNegative
	case affirmativePattern.MatchString(norm):
		return IntentAffirmative
	case addMorePattern.MatchString(norm):
		return IntentAddMore
	default:
		return IntentOther
	}
}

// IsQuestion reports whether the user is asking something rather than
// answering.
func IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	return questionStartPattern.MatchString(normalizeIntentText(trimmed))
}

// IsCorrection reports whether the user is explicitly changing something they
// said before.
func IsCorrection(text string) bool {
	return correctionPattern.MatchString(normalizeQuotes(text))
}

var addMoreLeadIn = regexp.MustCompile(`^(?:(?:` + affirmativeUnitExpr + `|oh|and|also|actually|one more thing|another thing|i forgot|i'?d like to add|i would like to add|i want to add|can i add|could i add|let me add|something(?: else)?|a note|one more|to add|please)\b ?)+`)

// noteContent strips lead-ins like "yes, also" from an add-more utterance and
// returns the remaining substance, or "" when nothing is left.
func noteContent(text string) string {
	norm := normalizeIntentText(text)
	rest := strings.TrimSpace(addMoreLeadIn.ReplaceAllString(norm, ""))
	if len(strings.Fields(rest)) < 2 && len(rest) < 8 {
		return ""
	}
	return strings.TrimSpace(text)
}
