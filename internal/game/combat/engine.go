package combat

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/geom"
)

// ErrDoubleProcessing is returned when a tick or a per-fighter phase would run twice.
var ErrDoubleProcessing = errors.New("fighter processed twice in one tick")

// phase indexes the per-fighter single-pass guard.
type phase int

const (
	phaseDecide phase = iota
	phaseMove
	phaseAct
	phaseDrives
	phaseCount
)

func (p phase) String() string {
	switch p {
	case phaseDecide:
		return "decide"
	case phaseMove:
		return "move"
	case phaseAct:
		return "act"
	default:
		return "drives"
	}
}

// Engine advances one two-fighter fight a tick at a time. An Engine is not
// safe for concurrent use; its owning match drives it from a single goroutine.
type Engine struct {
	fighters [2]*Fighter
	tactics  [2]Tactic
	arena    geom.Arena
	tuning   Tuning
	src      Source
	logger   *zap.Logger

	tick           int64
	lastDamageTick int64
	damageMult     float64
	suddenDeath    bool
	events         []Event
}

// NewEngine binds two fighters to an arena.
//
// Precondition: a.Index == 0 and b.Index == 1; arena and tuning must validate;
// src and logger must be non-nil.
// Postcondition: Returns a ready Engine or a non-nil error.
func NewEngine(a, b *Fighter, arena geom.Arena, t Tuning, src Source, logger *zap.Logger) (*Engine, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("engine requires two fighters")
	}
	if a.Index != 0 || b.Index != 1 {
		return nil, fmt.Errorf("fighter indices must be 0 and 1, got %d and %d", a.Index, b.Index)
	}
	if err := arena.Validate(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		fighters:       [2]*Fighter{a, b},
		arena:          arena,
		tuning:         t,
		src:            src,
		logger:         logger,
		tick:           -1,
		lastDamageTick: -1,
		damageMult:     1,
	}
	for i, f := range e.fighters {
		tac, err := TacticFor(f.Mobility)
		if err != nil {
			return nil, err
		}
		e.tactics[i] = tac
		f.Position = arena.Clamp(f.Position, arena.Center())
	}
	return e, nil
}

// Fighter returns the fighter in slot i for reading.
//
// Precondition: i is 0 or 1.
func (e *Engine) Fighter(i int) *Fighter { return e.fighters[i] }

// Views returns the published state of both fighters.
func (e *Engine) Views() [2]FighterView {
	return [2]FighterView{e.fighters[0].View(), e.fighters[1].View()}
}

// Tick returns the last processed tick, or -1 before the first Step.
func (e *Engine) Tick() int64 { return e.tick }

// TicksSinceDamage returns how many ticks have passed since either fighter last
// took damage, counted from the first Step.
func (e *Engine) TicksSinceDamage() int64 {
	if e.lastDamageTick < 0 {
		return 0
	}
	return e.tick - e.lastDamageTick
}

// SuddenDeath reports whether SetSuddenDeath has been called.
func (e *Engine) SuddenDeath() bool { return e.suddenDeath }

// SetSuddenDeath pushes both fighters' drive baselines toward aggression and
// sets the damage multiplier applied to every hit.
//
// Postcondition: the applied multiplier is at least 1.
func (e *Engine) SetSuddenDeath(mult float64) {
	if math.IsNaN(mult) || mult < 1 {
		mult = 1
	}
	e.suddenDeath = true
	e.damageMult = mult
}

// DamageMultiplier returns the match-level damage multiplier currently applied.
func (e *Engine) DamageMultiplier() float64 { return e.damageMult }

// Step advances the fight by one tick in the fixed order: timers, AI decision
// for both fighters, movement for both, collision and attack resolution, then
// drive and stamina update for both.
//
// Precondition: tick is greater than every tick previously passed to Step.
// Postcondition: Returns the events of this tick in occurrence order, or an
// error wrapping ErrDoubleProcessing if the tick or any phase repeats.
func (e *Engine) Step(tick int64) ([]Event, error) {
	if tick <= e.tick {
		return nil, fmt.Errorf("%w: tick %d already processed (last %d)", ErrDoubleProcessing, tick, e.tick)
	}
	if e.lastDamageTick < 0 {
		e.lastDamageTick = tick - 1
	}
	e.tick = tick
	e.events = nil

	for _, f := range e.fighters {
		beginTick(f)
	}
	for i, f := range e.fighters {
		if err := e.pass(f, phaseDecide); err != nil {
			return nil, err
		}
		e.decide(f, e.fighters[1-i])
	}
	for i, f := range e.fighters {
		if err := e.pass(f, phaseMove); err != nil {
			return nil, err
		}
		e.move(i)
	}

	e.separate()
	// Alternate who strikes first so neither slot has a standing edge.
	first := int(tick % 2)
	for _, i := range [2]int{first, 1 - first} {
		f := e.fighters[i]
		if err := e.pass(f, phaseAct); err != nil {
			return nil, err
		}
		e.act(f, e.fighters[1-i])
	}

	damaged := false
	for _, f := range e.fighters {
		if err := e.pass(f, phaseDrives); err != nil {
			return nil, err
		}
		if f.damageTaken > 0 {
			damaged = true
		}
		if f.IsDead() {
			f.AnimState = AnimDead
			continue
		}
		updateDrives(f, e.suddenDeath, e.tuning)
		f.regenerate(e.tuning)
	}
	if damaged {
		e.lastDamageTick = tick
	}
	return e.events, nil
}

// pass marks phase p as done for f this tick.
func (e *Engine) pass(f *Fighter, p phase) error {
	if f.lastPass[p] == e.tick {
		return fmt.Errorf("%w: fighter %d phase %s at tick %d", ErrDoubleProcessing, f.Index, p, e.tick)
	}
	f.lastPass[p] = e.tick
	return nil
}

// beginTick counts down timers and clears per-tick flags.
func beginTick(f *Fighter) {
	dec := func(v *int) {
		if *v > 0 {
			*v--
		}
	}
	dec(&f.attackCooldown)
	dec(&f.feintCooldown)
	dec(&f.stunRemaining)
	dec(&f.exposed)
	f.landedHit = false
	f.damageTaken = 0
}

func (e *Engine) emit(ev Event) {
	ev.Tick = e.tick
	e.events = append(e.events, ev)
}

func (e *Engine) decide(f, opp *Fighter) {
	if f.IsDead() {
		return
	}
	d := Decide(decisionInput(f, f.Position.Dist(opp.Position), e.tuning))
	if d.State != f.AIState {
		e.emit(Event{Type: EventStateChange, Actor: f.Index, Target: opp.Index, From: string(f.AIState), To: string(d.State)})
		e.logger.Debug("ai state change",
			zap.Int64("tick", e.tick),
			zap.Int("fighter", f.Index),
			zap.String("from", string(f.AIState)),
			zap.String("to", string(d.State)),
			zap.String("intent", d.Intent.String()),
		)
	}
	f.AIState, f.Intent = d.State, d.Intent
}

func (e *Engine) move(i int) {
	f, opp := e.fighters[i], e.fighters[1-i]
	if f.IsDead() {
		return
	}
	tac := e.tactics[i]
	s := Situation{Self: f, Opponent: opp, Arena: e.arena, Tuning: e.tuning, Tick: e.tick}
	prev := f.Position
	f.AnimState = ""
	desired := tac.Steer(s)
	tac.Integrate(s, desired)
	e.sanitize(f, prev)
	e.confine(f, tac)
	e.face(f, opp)
	if f.AnimState == "" {
		f.AnimState = restingAnim(f)
	}
}

// restingAnim picks the animation for a fighter that did nothing notable.
func restingAnim(f *Fighter) string {
	switch {
	case f.IsStunned():
		return AnimStunned
	case f.Velocity.Len() > 0.1:
		return AnimMove
	default:
		return AnimIdle
	}
}

// sanitize restores a finite position and velocity after integration. A
// non-finite position falls back to prev component-wise.
func (e *Engine) sanitize(f *Fighter, prev geom.Vec3) {
	if f.Position.IsFinite() && f.Velocity.IsFinite() {
		return
	}
	e.logger.Warn("non-finite fighter state clamped",
		zap.Int64("tick", e.tick),
		zap.Int("fighter", f.Index),
		zap.Float64s("position", []float64{f.Position.X, f.Position.Y, f.Position.Z}),
		zap.Float64s("velocity", []float64{f.Velocity.X, f.Velocity.Y, f.Velocity.Z}),
	)
	f.Position = e.arena.Clamp(f.Position, prev)
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	f.Velocity = geom.Vec3{X: fix(f.Velocity.X), Y: fix(f.Velocity.Y), Z: fix(f.Velocity.Z)}
}

// confine clamps f into the arena. Each boundary crossed is offered to the
// tactic as a contact; unabsorbed fast impacts stun.
func (e *Engine) confine(f *Fighter, tac Tactic) {
	if e.arena.Contains(f.Position) {
		return
	}
	p := f.Position
	impact := 0.0
	for _, s := range geom.Surfaces {
		if e.arena.DistanceTo(p, s) >= 0 {
			continue
		}
		n := geom.Normal(s)
		into := -f.Velocity.Dot(n)
		if into > 0 {
			f.Velocity = f.Velocity.Add(n.Scale(into))
		}
		if !tac.Contact(f, s) && into > impact {
			impact = into
		}
	}
	f.Position = e.arena.Clamp(p, p)
	if f.Surface != geom.SurfaceNone {
		f.Position = e.arena.Snap(f.Position, f.Surface)
	}
	if impact >= e.tuning.WallStunSpeed {
		e.stun(f, e.tuning.Ticks(e.tuning.WallStunSeconds), CauseWall)
	}
}

// face turns f toward its opponent when close and toward its travel otherwise.
func (e *Engine) face(f, opp *Fighter) {
	if f.IsStunned() {
		return
	}
	toOpp := opp.Position.Sub(f.Position)
	target := toOpp.Normalize()
	if toOpp.Len() > f.Weapon.Reach*1.2 && f.Velocity.Len() > 0.1 {
		target = f.Velocity.Normalize()
	}
	if target == (geom.Vec3{}) {
		return
	}
	facing := f.Facing.Lerp(target, e.tuning.Acceleration).Normalize()
	if facing != (geom.Vec3{}) {
		f.Facing = facing
	}
}

// separate pushes overlapping bodies apart along the line between them.
func (e *Engine) separate() {
	a, b := e.fighters[0], e.fighters[1]
	d := b.Position.Sub(a.Position)
	minDist := a.radius + b.radius
	dist := d.Len()
	if dist >= minDist {
		return
	}
	n := d.Normalize()
	if n == (geom.Vec3{}) {
		n = geom.V(1, 0, 0)
	}
	push := (minDist - dist) / 2
	for _, m := range []struct {
		f    *Fighter
		sign float64
	}{{a, -1}, {b, 1}} {
		p := m.f.Position.Add(n.Scale(push * m.sign))
		if m.f.Surface != geom.SurfaceNone {
			p = e.arena.Snap(p, m.f.Surface)
		} else if m.f.Mobility == genome.MobilityGround && m.f.Position.Y <= 0 {
			p.Y = 0
		}
		m.f.Position = e.arena.Clamp(p, m.f.Position)
	}
}

// act lets f feint or attack.
func (e *Engine) act(f, opp *Fighter) {
	if f.IsDead() || opp.IsDead() || f.IsStunned() {
		return
	}
	if f.AIState != StateAggressive && f.AIState != StateCircling {
		return
	}
	t := e.tuning
	dist := f.Position.Dist(opp.Position)

	if f.feintCooldown == 0 && dist <= feintRange(t) && !opponentOpen(opp) {
		p := FeintChance(f.Genome.Stats.Fury, f.Genome.Stats.Instinct, f.aggression, f.caution, t)
		if e.src.Draw() < p {
			e.feint(f, opp)
			return
		}
	}

	// Circling fighters only strike into an opening or to punish a committed opponent.
	offensive := f.AIState == StateAggressive || opponentOpen(opp) || opp.attackCooldown > 0
	if !offensive || f.attackCooldown > 0 || dist > f.Weapon.Reach {
		return
	}
	kind := AttackBasic
	if e.wantsSpecial(f) {
		kind = AttackSpecial
	}
	e.attack(f, opp, kind)
}

// wantsSpecial draws for the special ability when the fighter can afford it.
func (e *Engine) wantsSpecial(f *Fighter) bool {
	if f.AIState != StateAggressive || f.StaminaRatio() < e.tuning.SpecialMinStamina || f.stamina < SpecialCost {
		return false
	}
	p := e.tuning.SpecialChance * (0.5 + f.fury())
	return e.src.Draw() < p
}

// attack commits and resolves one attack. A fighter that cannot pay the cost
// does nothing: no stamina, cooldown, draw or event.
func (e *Engine) attack(att, tgt *Fighter, kind AttackKind) {
	t := e.tuning
	cost := AttackCost(att.Weapon, att.Genome.Stats.Fury)
	cooldown := t.Ticks(att.Weapon.CooldownSeconds)
	if kind == AttackSpecial {
		cost = SpecialCost
		cooldown = cooldown * 3 / 2
	}
	if !att.trySpend(cost) {
		e.logger.Debug("attack refused",
			zap.Int64("tick", e.tick),
			zap.Int("fighter", att.Index),
			zap.Float64("cost", cost),
			zap.Float64("stamina", att.stamina),
		)
		return
	}
	att.attackCooldown = cooldown
	att.AnimState = AnimAttack
	if kind == AttackSpecial {
		att.AnimState = AnimSpecial
	}

	res := resolveAttack(att, tgt, kind, e.arena, e.damageMult, e.src, t)
	if !res.Hit {
		tgt.AnimState = AnimDodge
		e.emit(Event{Type: EventMiss, Actor: att.Index, Target: tgt.Index, Special: kind == AttackSpecial})
		return
	}

	dealt := tgt.applyDamage(res.Damage)
	att.landedHit = true
	tgt.Velocity = tgt.Velocity.Add(res.Knockback)
	tgt.AnimState = AnimHit
	e.emit(Event{
		Type:       EventHit,
		Actor:      att.Index,
		Target:     tgt.Index,
		Damage:     dealt,
		Multiplier: res.Multiplier,
		Dive:       res.Dive,
		Flank:      res.Flank,
		Special:    kind == AttackSpecial,
		Lethal:     tgt.IsDead(),
	})
	e.logger.Debug("hit",
		zap.Int64("tick", e.tick),
		zap.Int("attacker", att.Index),
		zap.Float64("damage", dealt),
		zap.Float64("multiplier", res.Multiplier),
		zap.Float64("target_hp", tgt.hp),
	)
	if tgt.IsDead() {
		tgt.AnimState = AnimDead
		return
	}
	if kind == AttackSpecial || dealt >= t.HeavyHitFraction*tgt.maxHP {
		e.stun(tgt, t.Ticks(t.HeavyStunSeconds), CauseHeavyHit)
	}
}

// feint telegraphs a fake attack at tgt. The cooldown and the outcome each
// come from one draw.
func (e *Engine) feint(f, tgt *Fighter) {
	t := e.tuning
	f.feintCooldown = FeintCooldownTicks(e.src.Draw(), t)
	f.AnimState = AnimFeint
	outcome := ResolveFeintOutcome(e.src.Draw(), tgt.Genome.Stats.Instinct, t)
	e.emit(Event{Type: EventFeint, Actor: f.Index, Target: tgt.Index, Outcome: outcome, Cooldown: f.feintCooldown})

	switch outcome {
	case FeintFlinch:
		e.stun(tgt, t.Ticks(t.FlinchStunSeconds), CauseFeint)
	case FeintDodge:
		away := tgt.Position.Sub(f.Position).Normalize()
		lateral := geom.Up.Cross(away).Normalize().Scale(tgt.orbitSign)
		impulse := lateral.Add(away).Normalize().Scale(t.DodgeImpulse)
		if tgt.Surface != geom.SurfaceNone {
			impulse = geom.ProjectOnto(impulse, tgt.Surface)
		}
		tgt.Velocity = tgt.Velocity.Add(impulse)
		tgt.exposed = t.Ticks(t.DodgeWindowSeconds)
		tgt.AnimState = AnimDodge
		f.attackCooldown = 0
	}
}

// stun forces f into StateStunned for at least ticks. A crawler stunned off the
// floor loses its grip.
func (e *Engine) stun(f *Fighter, ticks int, cause string) {
	if f.IsDead() || ticks <= 0 {
		return
	}
	if ticks > f.stunRemaining {
		f.stunRemaining = ticks
	}
	prev := f.AIState
	f.AIState = StateStunned
	f.Intent = IntentNone
	f.AnimState = AnimStunned
	if f.Mobility == genome.MobilityWallcrawler && f.Surface != geom.SurfaceFloor {
		f.Surface = geom.SurfaceNone
	}
	e.emit(Event{Type: EventStun, Actor: f.Index, Target: f.Index, Cause: cause, Duration: ticks})
	if prev != StateStunned {
		e.emit(Event{Type: EventStateChange, Actor: f.Index, Target: f.Index, From: string(prev), To: string(StateStunned)})
	}
}
