package llm

import (
	"context"
	"time"

	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

// FallbackClient wraps a primary client with an optional fallback provider.
// Each provider gets one attempt; the fallback runs only when the primary errors.
type FallbackClient struct {
	primary  Client
	fallback Client
	timeout  time.Duration
	logger   *logging.Logger
}

// NewFallbackClient creates a fallback-enabled client. A zero timeout leaves
// deadlines to the caller's context.
func NewFallbackClient(primary, fallback Client, timeout time.Duration, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, fallback: fallback, timeout: timeout, logger: logger}
}

func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.attempt(ctx, c.primary, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := c.attempt(ctx, c.fallback, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Response{}, fallbackErr
	}
	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

func (c *FallbackClient) attempt(ctx context.Context, client Client, req Request) (Response, error) {
	if c.timeout <= 0 {
		return client.Complete(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return client.Complete(callCtx, req)
}
