package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/conversation"
	"github.com/wolfman30/wayloft-concierge/internal/leads"
	"github.com/wolfman30/wayloft-concierge/internal/notify"
	"github.com/wolfman30/wayloft-concierge/internal/observability/metrics"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

// Runtime holds the long-lived collaborators shared by the API server and
// the chat CLI.
type Runtime struct {
	Engine         *conversation.Engine
	Dispatcher     *notify.Dispatcher
	Leads          leads.Repository
	Metrics        *metrics.ConciergeMetrics
	MetricsHandler http.Handler
	Gatherer       prometheus.Gatherer

	closers []func()
}

// Build wires the concierge from config. Missing model or email credentials
// are not errors: the engine is still built and reports itself not configured.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt := &Runtime{}
	reg := prometheus.NewRegistry()
	rt.Metrics = metrics.NewConciergeMetrics(reg)
	rt.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	rt.Gatherer = reg

	client, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, pool, err := BuildLeadRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Leads = repo
	if pool != nil {
		rt.closers = append(rt.closers, pool.Close)
	}

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	sender, err := BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Dispatcher = BuildDispatcher(cfg, sender, redisClient, repo, rt.Metrics, logger)

	// A nil *Dispatcher must reach the engine as a nil interface.
	var notifier conversation.Notifier
	if rt.Dispatcher != nil {
		notifier = rt.Dispatcher
	}

	rt.Engine = conversation.NewEngine(client, notifier, conversation.EngineConfig{
		Destinations: cfg.SupportedDestinations,
		CountryCode:  cfg.DefaultCountryCode,
		MaxTokens:    int32(cfg.LLMMaxTokens),
	}, logger, conversation.WithMetrics(rt.Metrics))

	logger.Info("concierge runtime ready",
		"llm_configured", client != nil,
		"notifier_configured", notifier != nil,
		"redis_ledger", redisClient != nil,
		"postgres_lead_log", pool != nil,
		"destinations", strings.Join(cfg.SupportedDestinations, ","),
	)
	return rt, nil
}

// Close releases pooled connections in reverse order of creation.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; notification ledger disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLeadRepository returns the Postgres lead log when DATABASE_URL is set
// and the in-memory log otherwise. The pool is returned so the caller can
// close it; it is nil for the in-memory log.
func BuildLeadRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (leads.Repository, *pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("lead log kept in memory")
		return leads.NewInMemoryRepository(), nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("lead log stored in postgres")
	return leads.NewPostgresRepository(pool), pool, nil
}

// ErrUnknownEmailProvider is returned for an unrecognised EMAIL_PROVIDER.
var ErrUnknownEmailProvider = errors.New("bootstrap: unknown email provider")

// BuildEmailSender selects the advisor mail transport. With no provider set,
// SendGrid is used when its key is present. It returns nil when nothing is
// configured.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	if provider == "" && strings.TrimSpace(cfg.SendGridAPIKey) != "" {
		provider = "sendgrid"
	}
	switch provider {
	case "":
		logger.Warn("no email provider configured")
		return nil, nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty")
			return nil, nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return notify.NewSESSender(newSESClient(awsCfg, cfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	case "stub", "log":
		logger.Warn("using stub email sender; advisor emails are only logged")
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailProvider, provider)
	}
}

// BuildDispatcher returns nil when there is no sender or no advisor inbox,
// which leaves the engine unconfigured.
func BuildDispatcher(cfg *appconfig.Config, sender notify.EmailSender, redisClient *redis.Client, repo leads.Repository, m *metrics.ConciergeMetrics, logger *logging.Logger) *notify.Dispatcher {
	if cfg == nil || sender == nil || strings.TrimSpace(cfg.LeadsToEmail) == "" {
		return nil
	}
	opts := []notify.DispatcherOption{notify.WithMetrics(m)}
	if repo != nil {
		opts = append(opts, notify.WithRecorder(leads.NewRecorder(repo)))
	}
	if ledger := notify.NewRedisLedger(redisClient, cfg.NotifyDedupeTTL); ledger != nil {
		opts = append(opts, notify.WithLedger(ledger))
	}
	return notify.NewDispatcher(sender, notify.DispatcherConfig{To: cfg.LeadsToEmail}, logger, opts...)
}
