package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/wayloft-concierge/internal/conversation"
	"github.com/wolfman30/wayloft-concierge/internal/observability/metrics"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

var tracer = otel.Tracer("wayloft.internal.notify")

// ErrNoRecipient is returned when LEADS_TO_EMAIL is not configured.
var ErrNoRecipient = errors.New("notify: advisor recipient not configured")

const defaultSendTimeout = 10 * time.Second

// SentNotification is what gets written to the lead log after a successful
// send.
type SentNotification struct {
	ID        string
	Source    Source
	Kind      conversation.NoticeKind
	SessionID string
	Hash      string
	Recipient string
	Subject   string
	Summary   TripSummary
	SentAt    time.Time
}

// LeadRecorder persists sent notifications.
type LeadRecorder interface {
	RecordNotification(ctx context.Context, n SentNotification) error
}

// DispatcherConfig configures the advisor notifications.
type DispatcherConfig struct {
	// To is the advisor inbox.
	To          string
	SendTimeout time.Duration
}

// Dispatcher emails the advisor when a lead is finalized.
type Dispatcher struct {
	sender   EmailSender
	to       string
	timeout  time.Duration
	ledger   Ledger
	recorder LeadRecorder
	metrics  *metrics.ConciergeMetrics
	logger   *logging.Logger
	now      func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithLedger adds cross-replica dedupe on top of the hash comparison.
func WithLedger(l Ledger) DispatcherOption {
	return func(d *Dispatcher) { d.ledger = l }
}

func WithRecorder(r LeadRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithMetrics(m *metrics.ConciergeMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(sender EmailSender, cfg DispatcherConfig, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	d := &Dispatcher{
		sender:  sender,
		to:      strings.TrimSpace(cfg.To),
		timeout: cfg.SendTimeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaybeNotify sends the advisor email for a completed chat lead unless this
// exact snapshot was already sent. The returned hash is recorded by the caller
// whether or not delivery succeeded, so a failed send is not retried for the
// same snapshot.
func (d *Dispatcher) MaybeNotify(ctx context.Context, sessionID string, lead conversation.CapturedLead, lastHash string) conversation.DispatchResult {
	ctx, span := tracer.Start(ctx, "notify.maybe_notify")
	defer span.End()

	hash := LeadHash(sessionID, lead)
	result := conversation.DispatchResult{Hash: hash}
	span.SetAttributes(attribute.String("wayloft.session_id", sessionID), attribute.String("wayloft.lead_hash", hash))
	if hash == lastHash {
		span.SetAttributes(attribute.Bool("wayloft.notify_skipped", true))
		return result
	}

	result.Kind = conversation.NoticeCompletion
	if lastHash != "" {
		result.Kind = conversation.NoticeUpdate
	}
	logger := d.logger.WithSession(sessionID)

	if d.ledger != nil {
		claimed, err := d.ledger.Claim(ctx, sessionID, hash)
		switch {
		case err != nil:
			logger.Warn("notification ledger unavailable, sending anyway", "error", err, "hash", hash)
		case !claimed:
			logger.Info("notification already sent for snapshot", "hash", hash)
			d.metrics.ObserveNotification(string(result.Kind), "duplicate")
			return result
		}
	}

	err := d.deliver(ctx, SentNotification{
		Source:    SourceChat,
		Kind:      result.Kind,
		SessionID: sessionID,
		Hash:      hash,
		Summary:   SummaryFromLead(lead),
	})
	if err != nil {
		span.RecordError(err)
		return result
	}
	result.Sent = true
	return result
}

// SendForm delivers a trip builder form submission. Unlike chat
// notifications the error is returned so the form can report it.
func (d *Dispatcher) SendForm(ctx context.Context, summary TripSummary) error {
	ctx, span := tracer.Start(ctx, "notify.send_form")
	defer span.End()

	err := d.deliver(ctx, SentNotification{
		Source:  SourceForm,
		Kind:    conversation.NoticeCompletion,
		Summary: summary,
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, n SentNotification) error {
	kind := string(n.Kind)
	if d.sender == nil || d.to == "" {
		d.logger.Error("advisor notification not sent", "error", ErrNoRecipient, "source", n.Source, "session_id", n.SessionID)
		d.metrics.ObserveNotification(kind, "failed")
		return ErrNoRecipient
	}

	msg := n.Summary.Message(d.to, n.Kind)
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.logger.Error("advisor notification failed", "error", err, "source", n.Source, "kind", n.Kind, "session_id", n.SessionID, "hash", n.Hash)
		d.metrics.ObserveNotification(kind, "failed")
		return fmt.Errorf("notify: send %s notification: %w", n.Kind, err)
	}
	d.metrics.ObserveNotification(kind, "sent")

	n.ID = uuid.NewString()
	n.Recipient = d.to
	n.Subject = msg.Subject
	n.SentAt = d.now().UTC()
	if d.recorder != nil {
		if err := d.recorder.RecordNotification(ctx, n); err != nil {
			d.logger.Warn("failed to record sent notification", "error", err, "notification_id", n.ID)
		}
	}
	d.logger.Info("advisor notification sent", "source", n.Source, "kind", n.Kind, "session_id", n.SessionID, "subject", msg.Subject)
	return nil
}

var _ conversation.Notifier = (*Dispatcher)(nil)
