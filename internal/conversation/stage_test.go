package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeLead() CapturedLead {
	return CapturedLead{
		Name:        "John",
		Email:       "john@x.com",
		WhatsApp:    "+447123456789",
		FromCity:    "London",
		Destination: "Morocco",
		Dates:       "12 Jan to 16 Jan",
		Nights:      "4",
		Budget:      "£2000",
		Travellers:  "2",
		Style:       []string{"Luxury"},
		Priorities:  []string{"Best views"},
	}
}

func TestNextOpenStageAsksFirstMissingField(t *testing.T) {
	lead := completeLead()
	assert.Equal(t, StageConfirmDone, NextOpenStage(lead))

	steps := []struct {
		clear func(*CapturedLead)
		want  Stage
	}{
		{func(c *CapturedLead) { c.Priorities = nil }, StageRefinePriorities},
		{func(c *CapturedLead) { c.Style = nil }, StageRefineStyle},
		{func(c *CapturedLead) { c.FromCity = "" }, StageContactFromCity},
		{func(c *CapturedLead) { c.WhatsApp = "" }, StageContactWhatsApp},
		{func(c *CapturedLead) { c.Email = "" }, StageContactEmail},
		{func(c *CapturedLead) { c.Name = "" }, StageContactName},
		{func(c *CapturedLead) { c.Budget = "" }, StageIntake},
	}
	for _, step := range steps {
		step.clear(&lead)
		assert.Equal(t, step.want, NextOpenStage(lead))
	}
}

func TestResolveStageCompletesOnlyOnNegativeAtConfirmDone(t *testing.T) {
	stages := []Stage{
		StageIntake, StageContactName, StageContactEmail, StageContactWhatsApp, StageContactFromCity,
		StageRefineStyle, StageRefinePriorities, StageConfirmDone, StageCompleted, StageAddMore,
	}
	intents := []Intent{IntentAffirmative, IntentNegative, IntentAddMore, IntentOther}
	lead := completeLead()

	for _, prev := range stages {
		for _, intent := range intents {
			got := ResolveStage(lead, prev, intent)
			enteredCompletion := got == StageCompleted && prev != StageCompleted
			if enteredCompletion != (prev == StageConfirmDone && intent == IntentNegative) {
				t.Fatalf("ResolveStage(prev=%s, intent=%s) = %s", prev, intent, got)
			}
		}
	}
}

func TestResolveStageNeverCompletesIncompleteLead(t *testing.T) {
	lead := completeLead()
	lead.Email = ""
	for _, prev := range []Stage{StageConfirmDone, StageCompleted, StageAddMore} {
		assert.Equal(t, StageContactEmail, ResolveStage(lead, prev, IntentNegative))
	}
}

func TestResolveStageClosingLoop(t *testing.T) {
	lead := completeLead()
	assert.Equal(t, StageConfirmDone, ResolveStage(lead, StageRefinePriorities, IntentOther))
	assert.Equal(t, StageAddMore, ResolveStage(lead, StageConfirmDone, IntentAffirmative))
	assert.Equal(t, StageAddMore, ResolveStage(lead, StageConfirmDone, IntentAddMore))
	assert.Equal(t, StageConfirmDone, ResolveStage(lead, StageAddMore, IntentNegative))
	assert.Equal(t, StageAddMore, ResolveStage(lead, StageAddMore, IntentOther))
	assert.Equal(t, StageCompleted, ResolveStage(lead, StageCompleted, IntentAffirmative))
	assert.Equal(t, StageCompleted, ResolveStage(lead, StageCompleted, IntentNegative))
	assert.Equal(t, StageAddMore, ResolveStage(lead, StageCompleted, IntentOther))
}

func TestConfirmQuestionAsksAnythingElse(t *testing.T) {
	q := DefaultPhrasing.Question(StageConfirmDone, completeLead())
	assert.True(t, strings.Contains(q, "anything else?"))
}

func TestIntakeQuestionListsMissingBasics(t *testing.T) {
	q := DefaultPhrasing.Question(StageIntake, CapturedLead{Destination: "Jordan", Travellers: "2"})
	assert.Equal(t, "Could you tell me your travel dates and your total budget?", q)
}

func TestPhrasingDefaultsFillBlanks(t *testing.T) {
	p := Phrasing{AskName: "Who's travelling?"}.withDefaults()
	assert.Equal(t, "Who's travelling?", p.AskName)
	assert.Equal(t, DefaultPhrasing.AskEmail, p.AskEmail)
	assert.Equal(t, "We currently plan trips to Morocco and Jordan. Which of these would you like to explore?",
		p.RedirectMessage([]string{"Morocco", "Jordan"}))
}
