package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/llm"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

func TestBuildLLMClientRequiresConfig(t *testing.T) {
	_, err := BuildLLMClient(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestBuildLLMClientWithoutCredentialsReturnsNil(t *testing.T) {
	logger := logging.New("error")
	for _, provider := range []string{"", ProviderAnthropic, ProviderGemini, ProviderBedrock} {
		client, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: provider}, logger)
		require.NoError(t, err, provider)
		assert.Nil(t, client, provider)
	}
}

func TestBuildLLMClientUnknownProvider(t *testing.T) {
	_, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "oracle"}, logging.New("error"))
	assert.Error(t, err)
}

func TestBuildLLMClientWrapsPrimaryInFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         ProviderAnthropic,
		AnthropicAPIKey:     "sk-test",
		LLMFallbackProvider: ProviderBedrock,
		BedrockModelID:      "anthropic.claude-3-haiku-20240307-v1:0",
		AWSRegion:           "eu-west-2",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
	}
	client, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	assert.IsType(t, &llm.FallbackClient{}, client)
}

func TestBuildLLMClientBedrockPrimary(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         ProviderBedrock,
		BedrockModelID:      "anthropic.claude-3-haiku-20240307-v1:0",
		AWSRegion:           "eu-west-2",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	client, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	require.NoError(t, err)
	assert.NotNil(t, client)
}
