package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProposalToleratesFencesAndLooseTypes(t *testing.T) {
	raw := "Sure! Here you go:\n```json\n" +
		`{"stage":"contact","reply":"Lovely choice.","captured":{"destination":"Jordan","travellers":2,"nights":"5","style":"Luxury, Foodie","priorities":["Best views",null],"email":null}}` +
		"\n```"
	p, err := ParseProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, StageContactName, p.Stage)
	assert.Equal(t, "contact", p.RawStage)
	assert.Equal(t, "Lovely choice.", p.Reply)
	assert.Equal(t, "Jordan", p.Captured.Destination)
	assert.Equal(t, "2", p.Captured.Travellers)
	assert.Equal(t, "5", p.Captured.Nights)
	assert.Equal(t, []string{"Luxury", "Foodie"}, p.Captured.Style)
	assert.Equal(t, []string{"Best views"}, p.Captured.Priorities)
	assert.Empty(t, p.Captured.Email)
}

func TestParseProposalRejectsGarbage(t *testing.T) {
	_, err := ParseProposal("I'm not sure what you mean")
	assert.Error(t, err)

	_, err = ParseProposal(`{"stage":"intake","reply":"   "}`)
	assert.ErrorIs(t, err, errEmptyReply)
}

func TestParseProposalUnknownStageIsEmpty(t *testing.T) {
	p, err := ParseProposal(`{"stage":"booking","reply":"ok"}`)
	require.NoError(t, err)
	assert.Equal(t, Stage(""), p.Stage)
	assert.Equal(t, "booking", p.RawStage)
}
