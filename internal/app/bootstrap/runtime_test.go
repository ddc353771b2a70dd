package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/conversation"
	"github.com/wolfman30/wayloft-concierge/internal/leads"
	"github.com/wolfman30/wayloft-concierge/internal/notify"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true))
}

func TestBuildLeadRepositoryDefaultsToMemory(t *testing.T) {
	repo, pool, err := BuildLeadRepository(context.Background(), &appconfig.Config{}, logging.New("error"))
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.IsType(t, &leads.InMemoryRepository{}, repo)
}

func TestBuildEmailSenderSelection(t *testing.T) {
	logger := logging.New("error")
	ctx := context.Background()

	sender, err := BuildEmailSender(ctx, &appconfig.Config{}, logger)
	require.NoError(t, err)
	assert.Nil(t, sender)

	sender, err = BuildEmailSender(ctx, &appconfig.Config{SendGridAPIKey: "SG.test", EmailFrom: "hello@wayloft.example"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	sender, err = BuildEmailSender(ctx, &appconfig.Config{EmailProvider: "sendgrid"}, logger)
	require.NoError(t, err)
	assert.Nil(t, sender)

	sender, err = BuildEmailSender(ctx, &appconfig.Config{EmailProvider: "stub"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	sender, err = BuildEmailSender(ctx, &appconfig.Config{
		EmailProvider:      "ses",
		AWSRegion:          "eu-west-2",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.SESSender{}, sender)

	_, err = BuildEmailSender(ctx, &appconfig.Config{EmailProvider: "pigeon"}, logger)
	assert.ErrorIs(t, err, ErrUnknownEmailProvider)
}

func TestBuildDispatcherRequiresSenderAndInbox(t *testing.T) {
	logger := logging.New("error")
	stub := notify.NewStubEmailSender(logger)

	assert.Nil(t, BuildDispatcher(&appconfig.Config{}, stub, nil, nil, nil, logger))
	assert.Nil(t, BuildDispatcher(&appconfig.Config{LeadsToEmail: "advisor@wayloft.example"}, nil, nil, nil, nil, logger))
	assert.NotNil(t, BuildDispatcher(&appconfig.Config{LeadsToEmail: "advisor@wayloft.example"}, stub, nil, leads.NewInMemoryRepository(), nil, logger))
}

func TestBuildWithoutCredentialsReportsNotConfigured(t *testing.T) {
	rt, err := Build(context.Background(), &appconfig.Config{
		LLMProvider:           ProviderAnthropic,
		SupportedDestinations: appconfig.DefaultDestinations,
		DefaultCountryCode:    "44",
	}, logging.New("error"))
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Dispatcher)
	assert.NotNil(t, rt.MetricsHandler)

	state := conversation.SessionState{Stage: conversation.StageIntake}
	resp, err := rt.Engine.Turn(context.Background(), conversation.TurnRequest{
		SessionID: "s-1",
		Messages:  []conversation.ChatMessage{{Role: conversation.RoleUser, Text: "Morocco please"}},
		State:     state,
	})
	assert.ErrorIs(t, err, conversation.ErrNotConfigured)
	assert.Equal(t, state, resp.State)
}

func TestBuildWiresStubSenderAndLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	rt, err := Build(context.Background(), &appconfig.Config{
		AnthropicAPIKey:       "sk-test",
		LLMProvider:           ProviderAnthropic,
		LLMTimeout:            time.Second,
		EmailProvider:         "stub",
		LeadsToEmail:          "advisor@wayloft.example",
		RedisAddr:             mr.Addr(),
		SupportedDestinations: appconfig.DefaultDestinations,
	}, logging.New("error"))
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Dispatcher)
	require.NoError(t, rt.Dispatcher.SendForm(context.Background(), notify.TripSummary{
		Name:        "Ana",
		Email:       "ana@example.com",
		Destination: "Jordan",
	}))
	mem, ok := rt.Leads.(*leads.InMemoryRepository)
	require.True(t, ok)
	assert.Equal(t, 1, mem.Len())
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil)
	assert.Error(t, err)
}
