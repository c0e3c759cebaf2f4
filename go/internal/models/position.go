package models

import "fmt"

// Position is a player's primary position as recorded on a season record.
type Position string

const (
	PositionCatcher     Position = "C"
	PositionFirstBase   Position = "1B"
	PositionSecondBase  Position = "2B"
	PositionThirdBase   Position = "3B"
	PositionShortstop   Position = "SS"
	PositionLeftField   Position = "LF"
	PositionCenterField Position = "CF"
	PositionRightField  Position = "RF"
	PositionOutfield    Position = "OF"
	PositionDH          Position = "DH"
	PositionPitcher     Position = "P"
	PositionStarter     Position = "SP"
	PositionReliever    Position = "RP"
	PositionCloser      Position = "CL"
)

// SlotPosition is a roster slot's position code. It overlaps Position but
// adds BN and collapses the individual outfield spots into OF.
type SlotPosition string

const (
	SlotCatcher    SlotPosition = "C"
	SlotFirstBase  SlotPosition = "1B"
	SlotSecondBase SlotPosition = "2B"
	SlotThirdBase  SlotPosition = "3B"
	SlotShortstop  SlotPosition = "SS"
	SlotOutfield   SlotPosition = "OF"
	SlotDH         SlotPosition = "DH"
	SlotStarter    SlotPosition = "SP"
	SlotReliever   SlotPosition = "RP"
	SlotCloser     SlotPosition = "CL"
	SlotBench      SlotPosition = "BN"
)

var validPositions = map[Position]bool{
	PositionCatcher:     true,
	PositionFirstBase:   true,
	PositionSecondBase:  true,
	PositionThirdBase:   true,
	PositionShortstop:   true,
	PositionLeftField:   true,
	PositionCenterField: true,
	PositionRightField:  true,
	PositionOutfield:    true,
	PositionDH:          true,
	PositionPitcher:     true,
	PositionStarter:     true,
	PositionReliever:    true,
	PositionCloser:      true,
}

var validSlotPositions = map[SlotPosition]bool{
	SlotCatcher:    true,
	SlotFirstBase:  true,
	SlotSecondBase: true,
	SlotThirdBase:  true,
	SlotShortstop:  true,
	SlotOutfield:   true,
	SlotDH:         true,
	SlotStarter:    true,
	SlotReliever:   true,
	SlotCloser:     true,
	SlotBench:      true,
}

// ParsePosition validates a raw position code from an external source.
// Unrecognized codes are rejected rather than silently failing set lookups
// downstream.
func ParsePosition(s string) (Position, error) {
	p := Position(s)
	if !validPositions[p] {
		return "", fmt.Errorf("unrecognized position code: %q", s)
	}
	return p, nil
}

// ParseSlotPosition validates a raw roster slot code.
func ParseSlotPosition(s string) (SlotPosition, error) {
	p := SlotPosition(s)
	if !validSlotPositions[p] {
		return "", fmt.Errorf("unrecognized slot position code: %q", s)
	}
	return p, nil
}

// IsPitcher reports whether the position is a pitching role.
func (p Position) IsPitcher() bool {
	switch p {
	case PositionPitcher, PositionStarter, PositionReliever, PositionCloser:
		return true
	}
	return false
}

// IsPitcherSlot reports whether the slot holds a pitching role.
func (p SlotPosition) IsPitcherSlot() bool {
	switch p {
	case SlotStarter, SlotReliever, SlotCloser:
		return true
	}
	return false
}

// Handedness is a batter's handedness.
type Handedness string

const (
	BatsLeft   Handedness = "L"
	BatsRight  Handedness = "R"
	BatsSwitch Handedness = "S"
)

// ParseHandedness validates a raw handedness code. Unknown codes default to
// right rather than erroring; historical records are spotty here and
// handedness only feeds a scoring bonus.
func ParseHandedness(s string) Handedness {
	switch Handedness(s) {
	case BatsLeft, BatsSwitch:
		return Handedness(s)
	default:
		return BatsRight
	}
}
