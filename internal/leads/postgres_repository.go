package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is satisfied by *pgxpool.Pool and pgxmock pools.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the lead log in the lead_notifications table.
type PostgresRepository struct {
	db db
}

func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	summary := n.Summary
	if len(summary) == 0 {
		summary = []byte("{}")
	}

	query := `
		INSERT INTO lead_notifications
			(id, source, kind, session_id, hash, recipient, subject, name, email, whatsapp, destination, summary, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := r.db.Exec(ctx, query,
		n.ID,
		n.Source,
		n.Kind,
		n.SessionID,
		n.Hash,
		n.Recipient,
		n.Subject,
		n.Name,
		n.Email,
		n.WhatsApp,
		n.Destination,
		summary,
		n.SentAt,
	); err != nil {
		return fmt.Errorf("leads: insert notification: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	query := `
		SELECT id, source, kind, session_id, hash, recipient, subject, name, email, whatsapp, destination, summary, sent_at
		FROM lead_notifications
		WHERE id = $1
	`
	var n Notification
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.Source,
		&n.Kind,
		&n.SessionID,
		&n.Hash,
		&n.Recipient,
		&n.Subject,
		&n.Name,
		&n.Email,
		&n.WhatsApp,
		&n.Destination,
		&n.Summary,
		&n.SentAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("leads: select notification: %w", err)
	}
	return &n, nil
}
