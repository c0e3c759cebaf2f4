package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/models"
)

// AppendOutcome reports what a pick-log append actually did.
type AppendOutcome int

const (
	// AppendCommitted means the row was written for the first time.
	AppendCommitted AppendOutcome = iota
	// AppendDuplicate means a row already existed for (draft, overall pick).
	// Not an error: the pick was committed by an earlier attempt.
	AppendDuplicate
)

// SessionStore defines what the engine needs from the draft session store.
type SessionStore interface {
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft) error
}

// PickLogStore defines what the engine needs from the durable pick log.
// AppendPick must enforce a uniqueness constraint on (draft, overall pick);
// that constraint, not the engine's in-memory guard, is the correctness
// backstop against double commits.
type PickLogStore interface {
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
	GetPick(ctx context.Context, draftID uuid.UUID, overallPick int) (*models.DraftPick, error)
	AppendPick(ctx context.Context, pick models.DraftPick) (AppendOutcome, error)
}

// OutboxWriter records an event for asynchronous delivery.
type OutboxWriter interface {
	WriteEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload any) error
}
