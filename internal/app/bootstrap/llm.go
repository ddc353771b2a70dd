package bootstrap

import (
	"context"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/llm"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// BuildLLMClient wires the configured provider, wrapped with an optional
// fallback provider and the per-call timeout. It returns nil, nil when the
// primary provider has no credentials, leaving the chat endpoint in its
// not-configured state.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primary, err := buildProvider(ctx, cfg, cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Warn("no language model configured; chat will report not configured", "provider", cfg.LLMProvider)
		return nil, nil
	}

	var fallback llm.Client
	if name := strings.TrimSpace(cfg.LLMFallbackProvider); name != "" && name != cfg.LLMProvider {
		fallback, err = buildProvider(ctx, cfg, name, cfg.LLMFallbackModel)
		if err != nil {
			logger.Warn("fallback LLM unavailable", "provider", name, "error", err)
			fallback = nil
		}
	}

	logger.Info("language model configured",
		"provider", cfg.LLMProvider,
		"fallback", cfg.LLMFallbackProvider,
		"fallback_ready", fallback != nil,
		"timeout", cfg.LLMTimeout.String(),
	)
	return llm.NewFallbackClient(primary, fallback, cfg.LLMTimeout, logger), nil
}

// buildProvider returns nil, nil when the provider is known but lacks credentials.
func buildProvider(ctx context.Context, cfg *appconfig.Config, provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderAnthropic:
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			return nil, nil
		}
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, model)
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil
		}
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
	case ProviderBedrock:
		modelID := strings.TrimSpace(model)
		if modelID == "" {
			modelID = strings.TrimSpace(cfg.BedrockModelID)
		}
		if modelID == "" {
			return nil, nil
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return llm.NewBedrockClient(newBedrockClient(awsCfg, cfg), modelID), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}
