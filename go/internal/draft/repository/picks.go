package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/models"
	"github.com/pennant-sim/pennant/go/internal/sqlutil"
)

// PickLogRepository is the durable pick log. The draft_picks table carries a
// UNIQUE (draft_id, overall_pick) constraint; AppendPick leans on it to turn
// a double commit into a detectable no-op instead of a second occupant.
type PickLogRepository struct {
	db *sql.DB
}

func NewPickLogRepository(db *sql.DB) *PickLogRepository {
	return &PickLogRepository{db: db}
}

const pickColumns = `id, draft_id, round, pick, overall_pick, team_id, season_id, player_ref, position, slot_index, picked_at`

func (r *PickLogRepository) AppendPick(ctx context.Context, pick models.DraftPick) (engine.AppendOutcome, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_picks (`+pickColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (draft_id, overall_pick) DO NOTHING`,
		pick.ID, pick.DraftID, pick.Round, pick.Pick, pick.OverallPick, pick.TeamID,
		sqlutil.ToNullUUID(pick.SeasonID), sqlutil.ToSqlString(pick.PlayerRef),
		pick.Position, sqlutil.ToSqlInt32(pick.SlotIndex), sqlutil.ToSqlTime(pick.PickedAt))
	if err != nil {
		return 0, fmt.Errorf("append pick %d for draft %s: %w", pick.OverallPick, pick.DraftID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("append pick %d for draft %s: %w", pick.OverallPick, pick.DraftID, err)
	}
	if n == 0 {
		return engine.AppendDuplicate, nil
	}
	return engine.AppendCommitted, nil
}

func (r *PickLogRepository) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE draft_id = $1
		ORDER BY overall_pick`, draftID)
	if err != nil {
		return nil, fmt.Errorf("list picks for draft %s: %w", draftID, err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("list picks for draft %s: %w", draftID, err)
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}

func (r *PickLogRepository) GetPick(ctx context.Context, draftID uuid.UUID, overallPick int) (*models.DraftPick, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks
		WHERE draft_id = $1 AND overall_pick = $2`, draftID, overallPick)
	p, err := scanPick(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pick %d for draft %s: %w", overallPick, draftID, err)
		}
		return nil, fmt.Errorf("get pick %d for draft %s: %w", overallPick, draftID, err)
	}
	return p, nil
}

func scanPick(row rowScanner) (*models.DraftPick, error) {
	var (
		p         models.DraftPick
		seasonID  uuid.NullUUID
		playerRef sql.NullString
		slotIndex sql.NullInt32
		pickedAt  sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.DraftID, &p.Round, &p.Pick, &p.OverallPick, &p.TeamID,
		&seasonID, &playerRef, &p.Position, &slotIndex, &pickedAt); err != nil {
		return nil, err
	}
	p.SeasonID = sqlutil.FromNullUUID(seasonID)
	p.PlayerRef = sqlutil.FromSqlStringPtr(playerRef)
	p.SlotIndex = sqlutil.FromSqlInt32(slotIndex)
	p.PickedAt = sqlutil.FromSqlTime(pickedAt)
	return &p, nil
}
