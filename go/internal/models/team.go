package models

import (
	"github.com/google/uuid"
)

// ControlMode says who makes a team's picks.
type ControlMode string

const (
	ControlModeHuman ControlMode = "HUMAN"
	ControlModeCPU   ControlMode = "CPU"
)

// Team is one drafting franchise in a session.
type Team struct {
	ID            uuid.UUID   `json:"id"`
	DraftID       uuid.UUID   `json:"draft_id"`
	Name          string      `json:"name"`
	Control       ControlMode `json:"control"`
	DraftPosition int         `json:"draft_position"` // 1..numTeams
	Roster        []RosterSlot `json:"roster"`
}
