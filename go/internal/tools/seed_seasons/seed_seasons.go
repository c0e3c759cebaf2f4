package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pennant-sim/pennant/go/internal/dbconfig"
)

// PlayerSeason mirrors the season export layout. SeasonID is assigned here
// when the export omits one.
type PlayerSeason struct {
	SeasonID         *uuid.UUID `json:"season_id"`
	PlayerRef        string     `json:"player_ref"`
	Name             string     `json:"name"`
	SeasonYear       int        `json:"season_year"`
	Position         string     `json:"position"`
	Rating           float64    `json:"rating"`
	Bats             string     `json:"bats"`
	PlateAppearances int        `json:"plate_appearances"`
	AtBats           int        `json:"at_bats"`
	OutsPitched      int        `json:"outs_pitched"`
	Saves            int        `json:"saves"`
}

func main() {
	ctx := context.Background()

	path := "go/internal/assets/player_seasons.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var seasons []PlayerSeason
	if err := json.Unmarshal(data, &seasons); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal seasons: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := len(seasons), 0, 0, 0
	for _, s := range seasons {
		id := uuid.New()
		if s.SeasonID != nil {
			id = *s.SeasonID
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO player_seasons (
              season_id, player_ref, name, season_year, position, rating,
              bats, plate_appearances, at_bats, outs_pitched, saves
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
            ON CONFLICT (season_id) DO NOTHING
        `, id, s.PlayerRef, s.Name, s.SeasonYear, s.Position, s.Rating,
			s.Bats, s.PlateAppearances, s.AtBats, s.OutsPitched, s.Saves)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf("seasons: total=%d inserted=%d skipped=%d errors=%d\n", total, inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
