package combat

import (
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// driveBaselines returns the resting aggression and caution for a stat block.
// Fury raises the aggression baseline; instinct and low fury raise caution.
// Sudden death shifts both baselines toward aggression.
//
// Postcondition: both values are in [0,1].
func driveBaselines(s genome.Stats, suddenDeath bool, t Tuning) (aggression, caution float64) {
	fury, inst := norm(s.Fury), norm(s.Instinct)
	aggression = 0.15 + 0.6*fury
	caution = 0.15 + 0.4*inst + 0.2*(1-fury)
	if suddenDeath {
		aggression += t.SuddenDeathDriveShift
		caution -= t.SuddenDeathDriveShift
	}
	return geom.Clamp01(aggression), geom.Clamp01(caution)
}

// updateDrives applies this tick's hit and damage pushes, then drifts both
// drives toward their baselines.
//
// Postcondition: aggression and caution are in [0,1].
func updateDrives(f *Fighter, suddenDeath bool, t Tuning) {
	if f.landedHit {
		f.aggression += t.HitAggression
	}
	if f.damageTaken > 0 {
		fury := f.fury()
		f.aggression += t.DamageDrive * fury
		f.caution += t.DamageDrive * (1 - fury)
	}
	baseA, baseC := driveBaselines(f.Genome.Stats, suddenDeath, t)
	f.aggression += t.DriftRate * (baseA - f.aggression)
	f.caution += t.DriftRate * (baseC - f.caution)
	f.aggression = geom.Clamp01(f.aggression)
	f.caution = geom.Clamp01(f.caution)
}
