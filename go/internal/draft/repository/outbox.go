package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// OutboxRepository is the write side of the transactional outbox. The worker
// in the outbox package drains what lands here.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// WriteEvent records an event row and notifies listeners so the worker can
// drain without waiting for its poll interval.
func (r *OutboxRepository) WriteEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	id := uuid.New()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_outbox (id, draft_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		id, draftID, eventType, pqtype.NullRawMessage{RawMessage: body, Valid: true}); err != nil {
		return fmt.Errorf("insert %s outbox event: %w", eventType, err)
	}

	// Notify failures are tolerable; the worker's poll loop drains missed rows.
	_, _ = r.db.ExecContext(ctx, `SELECT pg_notify('draft_outbox', $1)`, id.String())
	return nil
}
