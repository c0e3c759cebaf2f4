package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pennant-sim/pennant/go/internal/models"
)

// TeamRepository persists draft teams. Rosters are never stored; they are
// rebuilt from the pick log on demand.
type TeamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) CreateTeam(ctx context.Context, team models.Team) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_teams (id, draft_id, name, control, draft_position)
		VALUES ($1, $2, $3, $4, $5)`,
		team.ID, team.DraftID, team.Name, team.Control, team.DraftPosition); err != nil {
		return fmt.Errorf("create team %s: %w", team.Name, err)
	}
	return nil
}

func (r *TeamRepository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var t models.Team
	err := r.db.QueryRowContext(ctx, `
		SELECT id, draft_id, name, control, draft_position
		FROM draft_teams WHERE id = $1`, id).
		Scan(&t.ID, &t.DraftID, &t.Name, &t.Control, &t.DraftPosition)
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}
	return &t, nil
}

func (r *TeamRepository) GetTeamsByDraft(ctx context.Context, draftID uuid.UUID) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, name, control, draft_position
		FROM draft_teams WHERE draft_id = $1
		ORDER BY draft_position`, draftID)
	if err != nil {
		return nil, fmt.Errorf("get teams for draft %s: %w", draftID, err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.DraftID, &t.Name, &t.Control, &t.DraftPosition); err != nil {
			return nil, fmt.Errorf("scan team for draft %s: %w", draftID, err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
