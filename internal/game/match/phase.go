// Package match runs fights: the countdown/fighting/victory phase machine
// around a combat.Engine, fixed-rate pacing, stalemate handling, spectator
// fan-out and the registry of concurrent matches.
package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
)

// Phase is the match-level state.
type Phase string

const (
	PhaseCountdown Phase = "countdown"
	PhaseFighting  Phase = "fighting"
	PhaseVictory   Phase = "victory"
	PhaseAborted   Phase = "aborted"
)

// Terminal reports whether no further ticks will run in this phase.
func (p Phase) Terminal() bool { return p == PhaseVictory || p == PhaseAborted }

// Reason explains how a match ended.
type Reason string

const (
	ReasonKnockout Reason = "knockout"
	ReasonDecision Reason = "decision"
	ReasonAborted  Reason = "aborted"
)

// NoWinner is Result.Winner for draws and aborted matches.
const NoWinner = -1

// Snapshot is the full public state at the end of one tick.
type Snapshot struct {
	MatchID     string                `json:"matchId" msgpack:"matchId"`
	Phase       Phase                 `json:"phase" msgpack:"phase"`
	Tick        int64                 `json:"tick" msgpack:"tick"`
	SuddenDeath bool                  `json:"suddenDeath" msgpack:"suddenDeath"`
	Fighters    [2]combat.FighterView `json:"fighters" msgpack:"fighters"`
}

// Frame is what one tick publishes: exactly one snapshot and the events that
// happened during that tick only.
type Frame struct {
	Snapshot Snapshot       `json:"snapshot" msgpack:"snapshot"`
	Events   []combat.Event `json:"events" msgpack:"events"`
}

// Result is the recorded outcome of a finished match. Seed and Draws identify
// the random round so the match can be replayed.
type Result struct {
	MatchID   uuid.UUID        `json:"matchId" msgpack:"matchId"`
	Seed      uint64           `json:"seed" msgpack:"seed"`
	Draws     uint64           `json:"draws" msgpack:"draws"`
	Genomes   [2]genome.Genome `json:"genomes" msgpack:"genomes"`
	Winner    int              `json:"winner" msgpack:"winner"`
	Reason    Reason           `json:"reason" msgpack:"reason"`
	Detail    string           `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Ticks     int64            `json:"ticks" msgpack:"ticks"`
	FinalHP   [2]float64       `json:"finalHp" msgpack:"finalHp"`
	StartedAt time.Time        `json:"startedAt" msgpack:"startedAt"`
	EndedAt   time.Time        `json:"endedAt" msgpack:"endedAt"`
}

// WinnerID returns the winning genome's ID, or "" for no winner.
func (r Result) WinnerID() string {
	if r.Winner < 0 || r.Winner > 1 {
		return ""
	}
	return r.Genomes[r.Winner].ID
}
