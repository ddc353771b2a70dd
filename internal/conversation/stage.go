package conversation

import (
	"fmt"
	"strings"
)

// NextOpenStage returns the first funnel step whose field is still unknown, or
// confirm_done when everything has been collected.
func NextOpenStage(c CapturedLead) Stage {
	switch {
	case !c.HasTripBasics():
		return StageIntake
	case c.Name == "":
		return StageContactName
	case c.Email == "":
		return StageContactEmail
	case c.WhatsApp == "":
		return StageContactWhatsApp
	case c.FromCity == "":
		return StageContactFromCity
	case len(c.Style) == 0:
		return StageRefineStyle
	case len(c.Priorities) == 0:
		return StageRefinePriorities
	default:
		return StageConfirmDone
	}
}

// ResolveStage decides the stage after a user turn. It is the only authority
// over transitions: the model may suggest a stage but never sets one.
//
// Until every field is known the funnel position is derived from the captured
// data alone. Once the lead is complete, the closing loop applies: a negative
// at confirm_done completes the lead, anything else opens add_more, and a
// negative while adding returns to confirm_done.
func ResolveStage(c CapturedLead, prev Stage, intent Intent) Stage {
	open := NextOpenStage(c)
	if open != StageConfirmDone {
		return open
	}
	switch prev {
	case StageConfirmDone:
		if intent == IntentNegative {
			return StageCompleted
		}
		return StageAddMore
	case StageCompleted:
		if intent == IntentNegative || intent == IntentAffirmative {
			return StageCompleted
		}
		return StageAddMore
	case StageAddMore:
		if intent == IntentNegative {
			return StageConfirmDone
		}
		return StageAddMore
	default:
		return StageConfirmDone
	}
}

// Phrasing holds every fixed sentence the engine can send. Zero-value fields
// fall back to DefaultPhrasing.
type Phrasing struct {
	Empty            string
	NotConfigured    string
	ModelUnavailable string
	Handoff          string
	Completion       string
	AllSet           string

	AskName       string
	AskEmail      string
	AskWhatsApp   string
	AskFromCity   string
	AskStyle      string
	AskPriorities string
	ConfirmDone   string
	AskAddMore    string
	NoteAdded     string
	LeadUpdated   string
	GuardConfirm  string

	BudgetPerPerson string
	InvalidEmail    string
	InvalidPhone    string
	// Redirect is a format string taking the joined destination list.
	Redirect string
}

// HandoffSentence closes every completed conversation.
const HandoffSentence = "A Wayloft travel advisor will now review your trip and reach out by email or WhatsApp within 24 hours."

// DefaultPhrasing is the Wayloft house voice.
var DefaultPhrasing = Phrasing{
	Empty:            "Tell me your destination, dates, budget, and travellers and I'll plan it.",
	NotConfigured:    "Sorry, I can't plan trips right now. Please try again shortly or use the trip request form.",
	ModelUnavailable: "Sorry, I had a hiccup there.",
	Handoff:          HandoffSentence,
	Completion:       "Wonderful, that's everything I need.",
	AllSet:           "You're all set. If anything changes, just tell me here.",

	AskName:       "What name should I put the trip request under?",
	AskEmail:      "What's the best email address for your travel advisor to reach you?",
	AskWhatsApp:   "And your WhatsApp number, so your advisor can send ideas over quickly?",
	AskFromCity:   "Which city will you be travelling from?",
	AskStyle:      "What kind of trip are you after? For example Luxury, Romantic, Adventure, Relaxation, Foodie or Family. Say \"no preference\" if you're open to anything.",
	AskPriorities: "Any priorities I should pass on? For example 5-star stays, Best views, Local experiences or Hidden gems.",
	ConfirmDone:   "Perfect, I have everything your advisor needs. Is there anything else?",
	AskAddMore:    "Of course. What would you like to add?",
	NoteAdded:     "Got it, I've added that for your advisor. Is there anything else?",
	LeadUpdated:   "Thanks, I've updated that. Is there anything else?",
	GuardConfirm:  "I've noted that — anything else you want to add?",

	BudgetPerPerson: "Just to check, is that per person? I plan around the total budget for the whole trip, so what's the total for everyone travelling?",
	InvalidEmail:    "That email address doesn't look quite right. Could you send it again?",
	InvalidPhone:    "I couldn't read that as a full phone number. Could you send it with the area code, for example 07123 456789?",
	Redirect:        "We currently plan trips to %s. Which of these would you like to explore?",
}

func (p Phrasing) withDefaults() Phrasing {
	d := DefaultPhrasing
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&p.Empty, d.Empty)
	fill(&p.NotConfigured, d.NotConfigured)
	fill(&p.ModelUnavailable, d.ModelUnavailable)
	fill(&p.Handoff, d.Handoff)
	fill(&p.Completion, d.Completion)
	fill(&p.AllSet, d.AllSet)
	fill(&p.AskName, d.AskName)
	fill(&p.AskEmail, d.AskEmail)
	fill(&p.AskWhatsApp, d.AskWhatsApp)
	fill(&p.AskFromCity, d.AskFromCity)
	fill(&p.AskStyle, d.AskStyle)
	fill(&p.AskPriorities, d.AskPriorities)
	fill(&p.ConfirmDone, d.ConfirmDone)
	fill(&p.AskAddMore, d.AskAddMore)
	fill(&p.NoteAdded, d.NoteAdded)
	fill(&p.LeadUpdated, d.LeadUpdated)
	fill(&p.GuardConfirm, d.GuardConfirm)
	fill(&p.BudgetPerPerson, d.BudgetPerPerson)
	fill(&p.InvalidEmail, d.InvalidEmail)
	fill(&p.InvalidPhone, d.InvalidPhone)
	fill(&p.Redirect, d.Redirect)
	return p
}

// Question returns the deterministic question for a stage. Intake asks for
// whichever trip basics are still missing.
func (p Phrasing) Question(stage Stage, c CapturedLead) string {
	switch stage {
	case StageIntake:
		return intakeQuestion(c)
	case StageContactName:
		return p.AskName
	case StageContactEmail:
		if first := firstName(c.Name); first != "" {
			return fmt.Sprintf("Thanks, %s. %s", first, p.AskEmail)
		}
		return p.AskEmail
	case StageContactWhatsApp:
		return p.AskWhatsApp
	case StageContactFromCity:
		return p.AskFromCity
	case StageRefineStyle:
		return p.AskStyle
	case StageRefinePriorities:
		return p.AskPriorities
	case StageConfirmDone:
		return p.ConfirmDone
	case StageAddMore:
		return p.AskAddMore
	case StageCompleted:
		return p.AllSet
	default:
		return intakeQuestion(c)
	}
}

// RedirectMessage lists the destinations on offer.
func (p Phrasing) RedirectMessage(destinations []string) string {
	return fmt.Sprintf(p.Redirect, joinWithAnd(destinations))
}

func intakeQuestion(c CapturedLead) string {
	missing := c.MissingTripBasics()
	if len(missing) == 0 {
		return ""
	}
	labels := map[string]string{
		"destination": "where you'd like to go",
		"dates":       "your travel dates",
		"budget":      "your total budget",
		"travellers":  "how many people are travelling",
	}
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		parts = append(parts, labels[m])
	}
	return fmt.Sprintf("Could you tell me %s?", joinWithAnd(parts))
}

// tripSummary acknowledges the trip basics when intake finishes.
func tripSummary(c CapturedLead) string {
	parts := []string{c.Destination, c.Dates}
	if c.Nights != "" {
		parts = append(parts, c.Nights+" nights")
	}
	parts = append(parts, formatTravellers(c.Travellers), c.Budget+" total")
	return "Great: " + strings.Join(parts, ", ") + "."
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
