package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// Settings configures one match.
type Settings struct {
	Arena  geom.Arena
	Tuning combat.Tuning
	// Countdown is held before the engine first steps.
	Countdown time.Duration
	// StalemateWarnAfter is the damage-free window per escalating warning.
	StalemateWarnAfter time.Duration
	// SuddenDeathAfter is the damage-free span that forces sudden death.
	SuddenDeathAfter time.Duration
	// MaxFightDuration ends the fight on a decision.
	MaxFightDuration time.Duration
	// WallClockLimit aborts a paced match that runs this long in real time.
	// Zero disables the limit.
	WallClockLimit time.Duration
	// SpawnSeparation is the starting distance between the fighters.
	SpawnSeparation float64
}

// DefaultSettings returns the shipped match settings.
func DefaultSettings() Settings {
	return Settings{
		Arena:              geom.Arena{Width: 400, Height: 200, Depth: 300},
		Tuning:             combat.DefaultTuning(),
		Countdown:          3 * time.Second,
		StalemateWarnAfter: 10 * time.Second,
		SuddenDeathAfter:   30 * time.Second,
		MaxFightDuration:   3 * time.Minute,
		WallClockLimit:     5 * time.Minute,
		SpawnSeparation:    200,
	}
}

// Validate reports every settings violation together.
//
// Postcondition: Returns nil iff the arena and tuning validate, the stalemate
// windows are ordered warn <= sudden death < max fight, and the fighters fit
// in the arena at the spawn separation.
func (s Settings) Validate() error {
	var errs []string
	if err := s.Arena.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.Tuning.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if s.Countdown < 0 {
		errs = append(errs, "countdown must be >= 0")
	}
	if s.StalemateWarnAfter <= 0 {
		errs = append(errs, "stalemate_warn_after must be > 0")
	}
	if s.SuddenDeathAfter < s.StalemateWarnAfter {
		errs = append(errs, "sudden_death_after must be >= stalemate_warn_after")
	}
	if s.MaxFightDuration <= s.SuddenDeathAfter {
		errs = append(errs, "max_fight_duration must be > sudden_death_after")
	}
	if s.WallClockLimit < 0 {
		errs = append(errs, "wall_clock_limit must be >= 0")
	}
	if s.SpawnSeparation <= 0 || s.SpawnSeparation >= s.Arena.Width {
		errs = append(errs, fmt.Sprintf("spawn_separation must be in (0, arena width %g), got %g", s.Arena.Width, s.SpawnSeparation))
	}
	if len(errs) > 0 {
		return fmt.Errorf("match settings validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s Settings) ticks(d time.Duration) int64 {
	return int64(s.Tuning.Ticks(d.Seconds()))
}
