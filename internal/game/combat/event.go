package combat

// EventType names a discrete occurrence published alongside snapshots.
type EventType string

const (
	EventHit         EventType = "hit"
	EventMiss        EventType = "miss"
	EventFeint       EventType = "feint"
	EventStun        EventType = "stun"
	EventStateChange EventType = "stateChange"
	EventStalemate   EventType = "stalemate"
	EventPhase       EventType = "phase"
)

// NoFighter marks Actor or Target on match-level events.
const NoFighter = -1

// Stun causes.
const (
	CauseHeavyHit = "heavy_hit"
	CauseFeint    = "feint"
	CauseWall     = "wall"
)

// Event is one discrete occurrence in a tick. Fields not relevant to the
// event type are left zero.
type Event struct {
	Tick   int64     `json:"tick" msgpack:"tick"`
	Type   EventType `json:"type" msgpack:"type"`
	Actor  int       `json:"actor" msgpack:"actor"`
	Target int       `json:"target" msgpack:"target"`

	// hit
	Damage     float64 `json:"damage,omitempty" msgpack:"damage,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" msgpack:"multiplier,omitempty"`
	Dive       float64 `json:"dive,omitempty" msgpack:"dive,omitempty"`
	Flank      bool    `json:"flank,omitempty" msgpack:"flank,omitempty"`
	Special    bool    `json:"special,omitempty" msgpack:"special,omitempty"`
	Lethal     bool    `json:"lethal,omitempty" msgpack:"lethal,omitempty"`
	// feint
	Outcome  FeintOutcome `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
	Cooldown int          `json:"cooldown,omitempty" msgpack:"cooldown,omitempty"`
	// stun
	Cause    string `json:"cause,omitempty" msgpack:"cause,omitempty"`
	Duration int    `json:"duration,omitempty" msgpack:"duration,omitempty"`
	// stateChange and phase
	From string `json:"from,omitempty" msgpack:"from,omitempty"`
	To   string `json:"to,omitempty" msgpack:"to,omitempty"`
	// stalemate
	Level int `json:"level,omitempty" msgpack:"level,omitempty"`
}
