package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/models"
	"github.com/pennant-sim/pennant/go/internal/sqlutil"
)

// CandidateRepository reads historical player seasons. Rows come back rating
// descending with a stable tiebreak so repeated pages never shuffle.
type CandidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

const candidateColumns = `season_id, player_ref, name, season_year, position, rating, bats, plate_appearances, at_bats, outs_pitched, saves`

func (r *CandidateRepository) ListCandidates(ctx context.Context, filter models.SeasonFilter, category pool.Category, limit, offset int) ([]models.Candidate, error) {
	pitcherClause := `NOT IN`
	if category == pool.CategoryPitchers {
		pitcherClause = `IN`
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+candidateColumns+`
		FROM player_seasons
		WHERE season_year BETWEEN $1 AND $2
		  AND position `+pitcherClause+` ('P', 'SP', 'RP', 'CL')
		ORDER BY rating DESC, season_year DESC, season_id
		LIMIT $3 OFFSET $4`,
		filter.FromYear, filter.ToYear, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s candidates: %w", category, err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var (
			c         models.Candidate
			playerRef sql.NullString
			pos       string
			bats      sql.NullString
		)
		if err := rows.Scan(&c.SeasonID, &playerRef, &c.Name, &c.SeasonYear, &pos, &c.Rating,
			&bats, &c.PlateAppearances, &c.AtBats, &c.OutsPitched, &c.Saves); err != nil {
			return nil, fmt.Errorf("scan %s candidate: %w", category, err)
		}
		c.PlayerRef = sqlutil.FromSqlString(playerRef, "")
		c.Position = models.Position(pos)
		c.Bats = models.ParseHandedness(sqlutil.FromSqlString(bats, ""))
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
