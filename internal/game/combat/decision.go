package combat

// DecisionInput is everything the AI state machine reads. Decide is a pure
// function of it.
type DecisionInput struct {
	Current       AIState
	Aggression    float64
	Caution       float64
	StaminaRatio  float64
	Distance      float64
	EngageRange   float64
	Instinct      int
	StunRemaining int
	// Margin is the base edge aggression needs over caution to charge.
	Margin float64
}

// Decision is the state and movement intent chosen for a tick.
type Decision struct {
	State  AIState
	Intent Intent
}

// Decide evaluates the AI transition rules in priority order.
//
// Postcondition: State is StateStunned iff StunRemaining > 0; otherwise the
// result depends only on the input fields and never on randomness.
func Decide(in DecisionInput) Decision {
	if in.StunRemaining > 0 {
		return Decision{State: StateStunned, Intent: IntentNone}
	}
	if in.StaminaRatio < LowStaminaRatio {
		return Decision{State: StateRetreating, Intent: IntentFlee}
	}
	// Instinctive fighters want a wider edge before committing to a charge.
	margin := in.Margin * (0.5 + norm(in.Instinct))
	far := in.Distance > in.EngageRange
	switch {
	case in.Aggression > in.Caution+margin && far:
		return Decision{State: StateAggressive, Intent: IntentCharge}
	case in.Caution >= in.Aggression:
		return Decision{State: StateCircling, Intent: IntentStandoff}
	case far:
		return Decision{State: StateAggressive, Intent: IntentClose}
	default:
		return Decision{State: StateAggressive, Intent: IntentEngage}
	}
}

// decisionInput gathers the Decide input for f facing an opponent at distance.
func decisionInput(f *Fighter, distance float64, t Tuning) DecisionInput {
	return DecisionInput{
		Current:       f.AIState,
		Aggression:    f.aggression,
		Caution:       f.caution,
		StaminaRatio:  f.StaminaRatio(),
		Distance:      distance,
		EngageRange:   t.EngageRange,
		Instinct:      f.Genome.Stats.Instinct,
		StunRemaining: f.stunRemaining,
		Margin:        t.DriveMargin,
	}
}
