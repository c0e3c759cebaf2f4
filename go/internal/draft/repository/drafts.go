package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/models"
	"github.com/pennant-sim/pennant/go/internal/sqlutil"
)

// DraftRepository persists draft sessions. It runs over database/sql with
// the pgx stdlib driver; settings live in a JSONB column.
type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

type CreateDraftRequest struct {
	ID       uuid.UUID            `json:"id"`
	Settings models.DraftSettings `json:"settings"`
}

const draftColumns = `id, status, settings, current_pick, current_round, started_at, completed_at, created_at, updated_at`

func (r *DraftRepository) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	settings, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal draft settings: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO drafts (id, status, settings, current_pick, current_round, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
		RETURNING `+draftColumns,
		req.ID, models.DraftStatusSetup, settings)

	draft, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return draft, nil
}

// CreateDraftWithTeams writes the session row and its team rows in one
// transaction, so a half-created draft never becomes visible.
func (r *DraftRepository) CreateDraftWithTeams(ctx context.Context, req CreateDraftRequest, teams []models.Team) (*models.Draft, error) {
	settings, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal draft settings: %w", err)
	}

	var draft *models.Draft
	err = sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO drafts (id, status, settings, current_pick, current_round, created_at, updated_at)
			VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
			RETURNING `+draftColumns,
			req.ID, models.DraftStatusSetup, settings)
		draft, err = scanDraft(row)
		if err != nil {
			return err
		}
		for _, team := range teams {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO draft_teams (id, draft_id, name, control, draft_position)
				VALUES ($1, $2, $3, $4, $5)`,
				team.ID, team.DraftID, team.Name, team.Control, team.DraftPosition); err != nil {
				return fmt.Errorf("create team %s: %w", team.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return draft, nil
}

func (r *DraftRepository) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", id, err)
	}
	return draft, nil
}

// SaveDraft writes back the mutable session fields. Settings are fixed at
// creation and are deliberately not updatable here.
func (r *DraftRepository) SaveDraft(ctx context.Context, draft *models.Draft) error {
	var startedAt, completedAt sql.NullTime
	if draft.StartedAt != nil {
		startedAt = sql.NullTime{Time: *draft.StartedAt, Valid: true}
	}
	if draft.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *draft.CompletedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE drafts
		SET status = $2, current_pick = $3, current_round = $4,
		    started_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $1`,
		draft.ID, draft.Status, draft.CurrentPick, draft.CurrentRound,
		startedAt, completedAt, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", draft.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save draft %s: %w", draft.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("save draft %s: %w", draft.ID, sql.ErrNoRows)
	}
	return nil
}

// ListDraftsByStatus returns sessions in a given state, oldest first. Used
// by the orchestrator's recovery scan at startup.
func (r *DraftRepository) ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+draftColumns+` FROM drafts WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("list drafts by status %s: %w", status, err)
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("list drafts by status %s: %w", status, err)
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

// NextDeadline is the soonest pick deadline across in-progress drafts.
type NextDeadline struct {
	DraftID  uuid.UUID  `json:"draft_id"`
	Deadline *time.Time `json:"deadline"`
}

// FetchNextDeadline returns the in-progress draft whose deadline comes first,
// or nil when no draft has one set.
func (r *DraftRepository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	var nd NextDeadline
	var deadline sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, next_deadline FROM drafts
		WHERE status = $1 AND next_deadline IS NOT NULL
		ORDER BY next_deadline
		LIMIT 1`, models.DraftStatusInProgress).Scan(&nd.DraftID, &deadline)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch next deadline: %w", err)
	}
	if deadline.Valid {
		t := deadline.Time
		nd.Deadline = &t
	}
	return &nd, nil
}

// UpdateNextDeadline records when the current pick times out. A nil deadline
// clears it.
func (r *DraftRepository) UpdateNextDeadline(ctx context.Context, draftID uuid.UUID, deadline *time.Time) error {
	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: *deadline, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE drafts SET next_deadline = $2, updated_at = NOW() WHERE id = $1`,
		draftID, dl); err != nil {
		return fmt.Errorf("update next deadline for draft %s: %w", draftID, err)
	}
	return nil
}

// FetchDraftsDueForPick returns in-progress drafts whose pick deadline has
// passed, the orchestrator's restart-safe trigger for overdue CPU picks.
func (r *DraftRepository) FetchDraftsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM drafts
		WHERE status = $1 AND next_deadline IS NOT NULL AND next_deadline <= NOW()
		ORDER BY next_deadline
		LIMIT $2`, models.DraftStatusInProgress, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch drafts due for pick: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("fetch drafts due for pick: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		d           models.Draft
		settings    []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Status, &settings, &d.CurrentPick, &d.CurrentRound,
		&startedAt, &completedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &d.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal draft settings: %w", err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		d.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return &d, nil
}
