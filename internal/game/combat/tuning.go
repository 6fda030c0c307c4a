package combat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixed curves. These are part of the stamina and health model and are not tunable.
const (
	StaminaMaxLow     = 50.0
	StaminaMaxHigh    = 150.0
	RegenLow          = 0.3
	RegenHigh         = 0.8
	LowStaminaRatio   = 0.30
	JumpCost          = 5.0
	SpecialCost       = 25.0
	MinAttackCost     = 8.0
	MaxAttackCost     = 18.0
	MaxHPLow          = 80.0
	MaxHPHigh         = 200.0
	ReadChanceLow     = 0.15
	ReadChanceHigh    = 0.70
	FeintCooldownLow  = 3.0
	FeintCooldownHigh = 5.0
	DefaultTickPeriod = 33 * time.Millisecond
)

// Tuning holds the designer-tunable constants of the simulation. Every field
// has a documented default in DefaultTuning; a YAML tuning file may override
// any subset of them.
type Tuning struct {
	// TickInterval is the simulated duration of one tick. Second-valued
	// constants below are converted to ticks with Ticks.
	TickInterval time.Duration `yaml:"tick_interval"`

	// HitAggression is added to aggression when a fighter lands a hit.
	HitAggression float64 `yaml:"hit_aggression"`
	// DamageDrive is split between aggression and caution by fury when hit.
	DamageDrive float64 `yaml:"damage_drive"`
	// DriftRate is the fraction of the distance to baseline recovered per tick.
	DriftRate float64 `yaml:"drift_rate"`
	// DriveMargin is how far aggression must exceed caution before a distant
	// fighter charges instead of closing carefully.
	DriveMargin float64 `yaml:"drive_margin"`
	// SuddenDeathDriveShift raises the aggression baseline and lowers the
	// caution baseline once sudden death is declared.
	SuddenDeathDriveShift float64 `yaml:"sudden_death_drive_shift"`

	// RegenBonus multiplies passive regen while circling or retreating.
	RegenBonus float64 `yaml:"regen_bonus"`
	// AttachRegenBonus multiplies passive regen while a wallcrawler is attached
	// to a surface. It compounds with RegenBonus.
	AttachRegenBonus float64 `yaml:"attach_regen_bonus"`
	// ExhaustedSpeedFloor is the lowest speed scale applied below LowStaminaRatio.
	ExhaustedSpeedFloor float64 `yaml:"exhausted_speed_floor"`

	// SpeedLow and SpeedHigh bound the top speed (units per tick) by the speed stat.
	SpeedLow  float64 `yaml:"speed_low"`
	SpeedHigh float64 `yaml:"speed_high"`
	// Acceleration is the fraction of the gap to the desired velocity closed per tick.
	Acceleration float64 `yaml:"acceleration"`
	// Gravity is the downward velocity change per tick for grounded bodies.
	Gravity float64 `yaml:"gravity"`
	// JumpImpulse is the vertical velocity of a jump or leap takeoff.
	JumpImpulse float64 `yaml:"jump_impulse"`
	// BodyRadiusLow and BodyRadiusHigh bound the collision radius by bulk.
	BodyRadiusLow  float64 `yaml:"body_radius_low"`
	BodyRadiusHigh float64 `yaml:"body_radius_high"`
	// EngageRange is the 3D distance at which an approach becomes an exchange.
	EngageRange float64 `yaml:"engage_range"`
	// StandoffFactor scales EngageRange into the circling radius.
	StandoffFactor float64 `yaml:"standoff_factor"`
	// FlankOffset is how far past the opponent, toward the arena center, a
	// fully instinctive ground fighter aims its approach.
	FlankOffset float64 `yaml:"flank_offset"`
	// WallMargin is the distance from a wall at which moves are penalized.
	WallMargin float64 `yaml:"wall_margin"`
	// WallPenalty weights the wall-proximity penalty against heading alignment.
	WallPenalty float64 `yaml:"wall_penalty"`
	// DiveHeight is how far above its target a flyer climbs before diving.
	DiveHeight float64 `yaml:"dive_height"`
	// FlyerMinAltitude is the altitude a flyer keeps away from the floor.
	FlyerMinAltitude float64 `yaml:"flyer_min_altitude"`
	// OrbitTiltRate is how fast (radians per tick) a flyer's orbit plane precesses.
	OrbitTiltRate float64 `yaml:"orbit_tilt_rate"`
	// ClimbSpeedFactor scales wallcrawler speed on walls and ceiling.
	ClimbSpeedFactor float64 `yaml:"climb_speed_factor"`
	// AttachDistance is how close a wallcrawler must be to a plane to grab it.
	AttachDistance float64 `yaml:"attach_distance"`
	// LeapRangeFactor scales weapon reach into the wallcrawler leap range.
	LeapRangeFactor float64 `yaml:"leap_range_factor"`
	// LeapSpeed is the launch speed of a wallcrawler leap.
	LeapSpeed float64 `yaml:"leap_speed"`

	// FeintBaseChance is the per-tick feint likelihood for an eligible fighter.
	FeintBaseChance float64 `yaml:"feint_base_chance"`
	// FeintFuryDamp reduces feint likelihood by fury.
	FeintFuryDamp float64 `yaml:"feint_fury_damp"`
	// FeintInstinctGain raises feint likelihood by instinct when caution dominates.
	FeintInstinctGain float64 `yaml:"feint_instinct_gain"`
	// FeintRangeFactor scales EngageRange into the feint telegraph range.
	FeintRangeFactor float64 `yaml:"feint_range_factor"`
	// FeintCooldownMin and FeintCooldownMax bound the drawn cooldown in seconds.
	// Both must lie within [FeintCooldownLow, FeintCooldownHigh].
	FeintCooldownMin float64 `yaml:"feint_cooldown_min"`
	FeintCooldownMax float64 `yaml:"feint_cooldown_max"`
	// FlinchShare is the share of unread feints that cause a flinch rather than a dodge.
	FlinchShare float64 `yaml:"flinch_share"`
	// FlinchStunSeconds is the forced stun of a flinch.
	FlinchStunSeconds float64 `yaml:"flinch_stun_seconds"`
	// DodgeWindowSeconds is the follow-up window after a wasted dodge.
	DodgeWindowSeconds float64 `yaml:"dodge_window_seconds"`
	// ExposedDodgeFactor scales the dodge term of a fighter inside that window.
	ExposedDodgeFactor float64 `yaml:"exposed_dodge_factor"`
	// DodgeImpulse is the velocity of the wasted defensive reposition.
	DodgeImpulse float64 `yaml:"dodge_impulse"`

	// HitChanceBase is the hit chance against a fighter with no dodge.
	HitChanceBase float64 `yaml:"hit_chance_base"`
	// DodgeLow and DodgeHigh bound the instinct-derived dodge term.
	DodgeLow  float64 `yaml:"dodge_low"`
	DodgeHigh float64 `yaml:"dodge_high"`
	// FuryDamageLow and FuryDamageHigh bound the fury damage scale.
	FuryDamageLow  float64 `yaml:"fury_damage_low"`
	FuryDamageHigh float64 `yaml:"fury_damage_high"`
	// DiveBonus is the maximum extra damage fraction of a flyer attacking from
	// a full arena height above. Must be within [0, 0.5].
	DiveBonus float64 `yaml:"dive_bonus"`
	// FlankBonus multiplies damage of attacks landing behind the target's facing.
	FlankBonus float64 `yaml:"flank_bonus"`
	// FlankDot is the facing dot product below which an attack counts as a flank.
	FlankDot float64 `yaml:"flank_dot"`
	// KnockbackBase is the impulse of a hit dealing base weapon damage.
	KnockbackBase float64 `yaml:"knockback_base"`
	// HeavyHitFraction of the target's max HP in one hit causes a stun.
	HeavyHitFraction float64 `yaml:"heavy_hit_fraction"`
	// HeavyStunSeconds is the stun caused by a heavy hit.
	HeavyStunSeconds float64 `yaml:"heavy_stun_seconds"`
	// WallStunSpeed is the impact speed into a wall that causes a stun.
	WallStunSpeed float64 `yaml:"wall_stun_speed"`
	// WallStunSeconds is the stun caused by a wall impact.
	WallStunSeconds float64 `yaml:"wall_stun_seconds"`
	// SpecialDamageMult multiplies the damage of a special attack.
	SpecialDamageMult float64 `yaml:"special_damage_mult"`
	// SpecialMinStamina is the stamina ratio required to consider a special.
	SpecialMinStamina float64 `yaml:"special_min_stamina"`
	// SpecialChance is the per-opportunity special likelihood at mid fury.
	SpecialChance float64 `yaml:"special_chance"`
}

// DefaultTuning returns the shipped tuning.
func DefaultTuning() Tuning {
	return Tuning{
		TickInterval: DefaultTickPeriod,

		HitAggression:         0.05,
		DamageDrive:           0.08,
		DriftRate:             0.01,
		DriveMargin:           0.10,
		SuddenDeathDriveShift: 0.5,

		RegenBonus:          1.5,
		AttachRegenBonus:    1.3,
		ExhaustedSpeedFloor: 0.35,

		SpeedLow:         2.0,
		SpeedHigh:        6.0,
		Acceleration:     0.25,
		Gravity:          0.6,
		JumpImpulse:      9.0,
		BodyRadiusLow:    6.0,
		BodyRadiusHigh:   12.0,
		EngageRange:      40.0,
		StandoffFactor:   1.6,
		FlankOffset:      30.0,
		WallMargin:       30.0,
		WallPenalty:      2.0,
		DiveHeight:       50.0,
		FlyerMinAltitude: 15.0,
		OrbitTiltRate:    0.02,
		ClimbSpeedFactor: 0.8,
		AttachDistance:   3.0,
		LeapRangeFactor:  3.0,
		LeapSpeed:        10.0,

		FeintBaseChance:    0.04,
		FeintFuryDamp:      0.7,
		FeintInstinctGain:  1.5,
		FeintRangeFactor:   1.75,
		FeintCooldownMin:   3.0,
		FeintCooldownMax:   5.0,
		FlinchShare:        0.5,
		FlinchStunSeconds:  0.4,
		DodgeWindowSeconds: 1.0,
		ExposedDodgeFactor: 0.25,
		DodgeImpulse:       6.0,

		HitChanceBase:     0.85,
		DodgeLow:          0.05,
		DodgeHigh:         0.35,
		FuryDamageLow:     0.75,
		FuryDamageHigh:    1.25,
		DiveBonus:         0.5,
		FlankBonus:        1.25,
		FlankDot:          -0.3,
		KnockbackBase:     4.0,
		HeavyHitFraction:  0.12,
		HeavyStunSeconds:  0.8,
		WallStunSpeed:     7.0,
		WallStunSeconds:   0.6,
		SpecialDamageMult: 1.8,
		SpecialMinStamina: 0.6,
		SpecialChance:     0.15,
	}
}

// Ticks converts a duration in seconds to a whole number of ticks, rounding to
// nearest. Any positive duration lasts at least one tick.
//
// Precondition: t.TickInterval > 0.
func (t Tuning) Ticks(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	n := int(math.Round(seconds / t.TickInterval.Seconds()))
	if n < 1 {
		n = 1
	}
	return n
}

// Validate checks every tuning invariant and reports all violations together.
//
// Postcondition: Returns nil iff probabilities are in [0,1], ranges are ordered,
// DiveBonus is in [0,0.5], feint cooldown bounds lie in [3s,5s] and all physical
// quantities are positive.
func (t Tuning) Validate() error {
	var errs []string
	if t.TickInterval <= 0 {
		errs = append(errs, "tick_interval must be > 0")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"hit_aggression", t.HitAggression},
		{"damage_drive", t.DamageDrive},
		{"drift_rate", t.DriftRate},
		{"drive_margin", t.DriveMargin},
		{"sudden_death_drive_shift", t.SuddenDeathDriveShift},
		{"exhausted_speed_floor", t.ExhaustedSpeedFloor},
		{"acceleration", t.Acceleration},
		{"feint_base_chance", t.FeintBaseChance},
		{"feint_fury_damp", t.FeintFuryDamp},
		{"flinch_share", t.FlinchShare},
		{"exposed_dodge_factor", t.ExposedDodgeFactor},
		{"hit_chance_base", t.HitChanceBase},
		{"dodge_low", t.DodgeLow},
		{"dodge_high", t.DodgeHigh},
		{"heavy_hit_fraction", t.HeavyHitFraction},
		{"special_min_stamina", t.SpecialMinStamina},
		{"special_chance", t.SpecialChance},
	} {
		if p.v < 0 || p.v > 1 || math.IsNaN(p.v) {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %g", p.name, p.v))
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"regen_bonus", t.RegenBonus},
		{"speed_low", t.SpeedLow},
		{"speed_high", t.SpeedHigh},
		{"gravity", t.Gravity},
		{"jump_impulse", t.JumpImpulse},
		{"body_radius_low", t.BodyRadiusLow},
		{"body_radius_high", t.BodyRadiusHigh},
		{"engage_range", t.EngageRange},
		{"standoff_factor", t.StandoffFactor},
		{"wall_margin", t.WallMargin},
		{"attach_distance", t.AttachDistance},
		{"leap_range_factor", t.LeapRangeFactor},
		{"leap_speed", t.LeapSpeed},
		{"feint_range_factor", t.FeintRangeFactor},
		{"fury_damage_low", t.FuryDamageLow},
		{"flank_bonus", t.FlankBonus},
		{"special_damage_mult", t.SpecialDamageMult},
		{"wall_stun_speed", t.WallStunSpeed},
	} {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			errs = append(errs, fmt.Sprintf("%s must be > 0, got %g", p.name, p.v))
		}
	}
	if !(t.RegenBonus > 1) {
		errs = append(errs, fmt.Sprintf("regen_bonus must be > 1, got %g", t.RegenBonus))
	}
	if !(t.AttachRegenBonus > 1) || math.IsInf(t.AttachRegenBonus, 0) {
		errs = append(errs, fmt.Sprintf("attach_regen_bonus must be > 1, got %g", t.AttachRegenBonus))
	}
	if t.SpeedLow > t.SpeedHigh {
		errs = append(errs, "speed_low must not exceed speed_high")
	}
	if t.BodyRadiusLow > t.BodyRadiusHigh {
		errs = append(errs, "body_radius_low must not exceed body_radius_high")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"feint_cooldown_min", t.FeintCooldownMin},
		{"feint_cooldown_max", t.FeintCooldownMax},
	} {
		if !(p.v >= FeintCooldownLow && p.v <= FeintCooldownHigh) {
			errs = append(errs, fmt.Sprintf("%s must be in [%g,%g], got %g", p.name, FeintCooldownLow, FeintCooldownHigh, p.v))
		}
	}
	if t.FeintCooldownMin > t.FeintCooldownMax {
		errs = append(errs, "feint_cooldown_min must not exceed feint_cooldown_max")
	}
	if t.DodgeLow > t.DodgeHigh {
		errs = append(errs, "dodge_low must not exceed dodge_high")
	}
	if t.FuryDamageLow > t.FuryDamageHigh {
		errs = append(errs, "fury_damage_low must not exceed fury_damage_high")
	}
	if t.DiveBonus < 0 || t.DiveBonus > 0.5 {
		errs = append(errs, fmt.Sprintf("dive_bonus must be in [0,0.5], got %g", t.DiveBonus))
	}
	if t.FlankDot < -1 || t.FlankDot > 0 {
		errs = append(errs, fmt.Sprintf("flank_dot must be in [-1,0], got %g", t.FlankDot))
	}
	if len(errs) > 0 {
		return fmt.Errorf("tuning validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadTuning reads a YAML tuning file over DefaultTuning. Fields absent from the
// file keep their defaults.
//
// Precondition: path must name a readable YAML file.
// Postcondition: Returns a validated Tuning or a non-nil error.
func LoadTuning(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("reading tuning file %q: %w", path, err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML tuning overrides over DefaultTuning. Unknown keys
// are rejected, including the fixed curve endpoints.
//
// Postcondition: Returns a validated Tuning or a non-nil error.
func ParseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("parsing tuning YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}
