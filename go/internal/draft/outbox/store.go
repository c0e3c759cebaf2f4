package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store reads and settles outbox rows.
type Store interface {
	FetchUnsent(ctx context.Context, limit int32) ([]Event, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*Event, error)
	MarkSent(ctx context.Context, ids ...uuid.UUID) error
	CountUnsent(ctx context.Context) (int, error)
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const eventColumns = `id, draft_id, event_type, payload, created_at, sent_at`

// FetchUnsent returns undelivered rows oldest first. Outside a transaction
// SKIP LOCKED only skips rows another statement holds at that instant, so
// concurrent relays can still pick up the same batch; JetStream message IDs
// make the resulting double publish a no-op.
func (s *SQLStore) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (s *SQLStore) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM draft_outbox
		WHERE id = $1 AND sent_at IS NULL`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event %s not found or already sent", id)
		}
		return nil, err
	}
	return ev, nil
}

func (s *SQLStore) MarkSent(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE draft_outbox
		SET sent_at = NOW()
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox events sent: %w", err)
	}
	return nil
}

func (s *SQLStore) CountUnsent(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM draft_outbox WHERE sent_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unsent outbox events: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var ev Event
	var payload []byte
	var sentAt sql.NullTime
	if err := row.Scan(&ev.ID, &ev.DraftID, &ev.EventType, &payload, &ev.CreatedAt, &sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan outbox event: %w", err)
	}
	ev.Payload = payload
	if sentAt.Valid {
		t := sentAt.Time
		ev.SentAt = &t
	}
	return &ev, nil
}
