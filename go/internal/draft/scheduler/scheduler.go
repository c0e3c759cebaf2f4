// Package scheduler computes snake-draft turn order. Everything here is a
// pure function of (overallPick, numTeams, draft order) so turns are
// replayable from the pick counter alone.
package scheduler

import (
	"fmt"

	"github.com/google/uuid"
)

// RoundOf returns the 1-based round for a 1-based overall pick.
func RoundOf(overallPick, numTeams int) int {
	return (overallPick-1)/numTeams + 1
}

// PickInRound returns the 1-based pick number within its round.
func PickInRound(overallPick, numTeams int) int {
	return (overallPick-1)%numTeams + 1
}

// SeatOnClock returns the 0-based draft-order index of the team making the
// given overall pick. Odd rounds ascend through the order, even rounds
// descend.
func SeatOnClock(overallPick, numTeams int) int {
	round := RoundOf(overallPick, numTeams)
	idx := (overallPick - 1) % numTeams
	if round%2 == 0 {
		return numTeams - 1 - idx
	}
	return idx
}

// TeamOnClock returns the team ID making the given overall pick.
func TeamOnClock(overallPick int, order []uuid.UUID) (uuid.UUID, error) {
	n := len(order)
	if n == 0 {
		return uuid.Nil, fmt.Errorf("draft order is empty")
	}
	if overallPick < 1 {
		return uuid.Nil, fmt.Errorf("overall pick must be >= 1, got %d", overallPick)
	}
	return order[SeatOnClock(overallPick, n)], nil
}

// NextTeam returns the team making the pick after overallPick, or uuid.Nil
// when overallPick is the last pick of the draft.
func NextTeam(overallPick, rounds int, order []uuid.UUID) (uuid.UUID, error) {
	n := len(order)
	if n == 0 {
		return uuid.Nil, fmt.Errorf("draft order is empty")
	}
	if overallPick >= rounds*n {
		return uuid.Nil, nil
	}
	return TeamOnClock(overallPick+1, order)
}

// Sequence expands the full pick order for a draft: element i is the team
// making overall pick i+1.
func Sequence(rounds int, order []uuid.UUID) []uuid.UUID {
	n := len(order)
	seq := make([]uuid.UUID, 0, rounds*n)
	for p := 1; p <= rounds*n; p++ {
		seq = append(seq, order[SeatOnClock(p, n)])
	}
	return seq
}
