package main

import (
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/orchestrator"
	"github.com/pennant-sim/pennant/go/internal/draft/repository"
	"github.com/pennant-sim/pennant/go/internal/draft/selector"
)

type Services struct {
	Drafts       *repository.DraftRepository
	Teams        *repository.TeamRepository
	Picks        *repository.PickLogRepository
	Engine       *engine.Engine
	Orchestrator *orchestrator.Orchestrator
}

func setupServices(database *sql.DB, config *Config, logger zerolog.Logger) *Services {
	// Database layer → repository layer → engine → orchestrator.
	drafts := repository.NewDraftRepository(database)
	teams := repository.NewTeamRepository(database)
	picks := repository.NewPickLogRepository(database)
	candidates := repository.NewCandidateRepository(database)
	outbox := repository.NewOutboxRepository(database)

	seed := config.SelectorSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	eng := engine.New(engine.Deps{
		Sessions:   drafts,
		Picks:      picks,
		Outbox:     outbox,
		Source:     candidates,
		Quota:      config.Roster,
		PoolQuotas: config.PoolQuotas,
		Thresholds: config.Thresholds,
		Selector:   selector.New(config.Selector, seed),
		Retry:      config.RetryPolicy(),
		Clock:      clockwork.NewRealClock(),
		Logger:     logger,
	})

	orch := orchestrator.NewOrchestrator(eng, drafts, teams, logger)

	return &Services{
		Drafts:       drafts,
		Teams:        teams,
		Picks:        picks,
		Engine:       eng,
		Orchestrator: orch,
	}
}
