package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsKnownFieldsWithoutCorrection(t *testing.T) {
	lead := CapturedLead{Email: "john@x.com", Budget: "£2000"}

	changed := lead.Merge(CapturedLead{Email: "other@x.com", Name: "John"}, false)
	assert.Equal(t, []string{"name"}, changed)
	assert.Equal(t, "john@x.com", lead.Email)
	assert.Equal(t, "John", lead.Name)

	changed = lead.Merge(CapturedLead{Email: "other@x.com"}, true)
	assert.Equal(t, []string{"email"}, changed)
	assert.Equal(t, "other@x.com", lead.Email)
}

func TestMergeNeverClearsFields(t *testing.T) {
	lead := completeLead()
	changed := lead.Merge(CapturedLead{}, true)
	assert.Empty(t, changed)
	assert.Equal(t, completeLead(), lead)
}

func TestNotesAreAppendOnly(t *testing.T) {
	var lead CapturedLead
	assert.True(t, lead.AppendNote("rooftop pool"))
	assert.True(t, lead.AppendNote("vegetarian"))
	assert.False(t, lead.AppendNote("Rooftop pool"))
	assert.False(t, lead.AppendNote("  "))
	assert.Equal(t, "rooftop pool\nvegetarian", lead.Notes)

	lead.Merge(CapturedLead{Notes: "late checkout"}, false)
	assert.Equal(t, "rooftop pool\nvegetarian\nlate checkout", lead.Notes)
}

func TestCapturedLeadJSONUsesNullForUnknown(t *testing.T) {
	raw, err := json.Marshal(CapturedLead{Destination: "Morocco", Style: []string{"Luxury"}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Morocco", decoded["destination"])
	assert.Nil(t, decoded["email"])
	assert.Contains(t, decoded, "email")
	assert.Nil(t, decoded["priorities"])
	assert.Equal(t, []any{"Luxury"}, decoded["style"])
}

func TestSessionStateRoundTrip(t *testing.T) {
	in := `{"stage":"contact:email","captured":{"name":"John","email":null,"style":null},"lastEmailHash":null}`
	var state SessionState
	require.NoError(t, json.Unmarshal([]byte(in), &state))
	assert.Equal(t, StageContactEmail, state.Stage)
	assert.Equal(t, "John", state.Captured.Name)
	assert.Empty(t, state.LastEmailHash)

	raw, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastEmailHash":null`)
}

func TestNormalizedStateDefaultsUnknownStage(t *testing.T) {
	state := SessionState{Stage: "bogus", Captured: CapturedLead{Name: "  John "}}.normalized()
	assert.Equal(t, StageIntake, state.Stage)
	assert.Equal(t, "John", state.Captured.Name)

	stage, ok := ParseStage("contact")
	assert.True(t, ok)
	assert.Equal(t, StageContactName, stage)
	stage, ok = ParseStage("contact:fromcity")
	assert.True(t, ok)
	assert.Equal(t, StageContactFromCity, stage)
}
