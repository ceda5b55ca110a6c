package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository keeps the audit trail of gateway notifications. It never
// stores payment state; the gateway stays the source of truth.
type Repository interface {
	// Save records an arrival. A repeated (session_id, ts) pair bumps the
	// attempt counter of the existing row; processed reports whether that
	// row was already handled successfully.
	Save(ctx context.Context, n *Notification) (id int64, processed bool, err error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, kind, reason string) error
	ListBySession(ctx context.Context, sessionID string) ([]Notification, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, n *Notification) (int64, bool, error) {
	const q = `
	INSERT INTO payu_notifications (pos_id, session_id, ts, payload)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (session_id, ts)
	DO UPDATE SET attempts = payu_notifications.attempts + 1, received_at = now()
	RETURNING id, processed_at IS NOT NULL;
	`

	var (
		id        int64
		processed bool
	)
	err := r.db.QueryRowContext(ctx, q, n.PosID, n.SessionID, n.Ts, []byte(n.Payload)).Scan(&id, &processed)
	if err != nil {
		return 0, false, fmt.Errorf("save notification: %w", err)
	}

	return id, processed, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id int64) error {
	const q = `
	UPDATE payu_notifications
	SET processed_at = now(), failure_kind = NULL, process_error = NULL
	WHERE id = $1;
	`

	return r.exec(ctx, q, id)
}

func (r *repository) MarkFailed(ctx context.Context, id int64, kind, reason string) error {
	const q = `
	UPDATE payu_notifications
	SET failure_kind = $2, process_error = $3
	WHERE id = $1;
	`

	return r.exec(ctx, q, id, kind, reason)
}

func (r *repository) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, pos_id, session_id, ts, payload, attempts, received_at, processed_at, failure_kind, process_error
	FROM payu_notifications
`

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+`WHERE session_id = $1 ORDER BY received_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, selectColumns+`WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(s scanner) (*Notification, error) {
	var (
		n            Notification
		payload      []byte
		processedAt  sql.NullTime
		failureKind  sql.NullString
		processError sql.NullString
	)

	err := s.Scan(
		&n.ID, &n.PosID, &n.SessionID, &n.Ts, &payload, &n.Attempts,
		&n.ReceivedAt, &processedAt, &failureKind, &processError,
	)
	if err != nil {
		return nil, err
	}

	n.Payload = payload
	if processedAt.Valid {
		n.ProcessedAt = &processedAt.Time
	}
	if failureKind.Valid {
		n.FailureKind = &failureKind.String
	}
	if processError.Valid {
		n.ProcessError = &processError.String
	}
	return &n, nil
}
