package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func baseInput() combat.DecisionInput {
	return combat.DecisionInput{
		Current:      combat.StateCircling,
		Aggression:   0.5,
		Caution:      0.5,
		StaminaRatio: 1,
		Distance:     100,
		EngageRange:  40,
		Instinct:     50,
		Margin:       0.1,
	}
}

func TestDecide_Rules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*combat.DecisionInput)
		want   combat.Decision
	}{
		{"stunned wins", func(in *combat.DecisionInput) { in.StunRemaining = 3; in.StaminaRatio = 0.1 },
			combat.Decision{State: combat.StateStunned, Intent: combat.IntentNone}},
		{"exhausted retreats", func(in *combat.DecisionInput) { in.StaminaRatio = 0.29; in.Aggression = 1; in.Caution = 0 },
			combat.Decision{State: combat.StateRetreating, Intent: combat.IntentFlee}},
		{"dominant aggression charges from afar", func(in *combat.DecisionInput) { in.Aggression = 0.9; in.Caution = 0.2 },
			combat.Decision{State: combat.StateAggressive, Intent: combat.IntentCharge}},
		{"caution dominates circles", func(in *combat.DecisionInput) { in.Aggression = 0.3; in.Caution = 0.6 },
			combat.Decision{State: combat.StateCircling, Intent: combat.IntentStandoff}},
		{"tie circles", func(in *combat.DecisionInput) {},
			combat.Decision{State: combat.StateCircling, Intent: combat.IntentStandoff}},
		{"slight edge closes from afar", func(in *combat.DecisionInput) { in.Aggression = 0.52 },
			combat.Decision{State: combat.StateAggressive, Intent: combat.IntentClose}},
		{"slight edge in range commits", func(in *combat.DecisionInput) { in.Aggression = 0.52; in.Distance = 30 },
			combat.Decision{State: combat.StateAggressive, Intent: combat.IntentEngage}},
		{"dominant aggression in range commits", func(in *combat.DecisionInput) { in.Aggression = 0.9; in.Distance = 30 },
			combat.Decision{State: combat.StateAggressive, Intent: combat.IntentEngage}},
		{"ratio at threshold does not retreat", func(in *combat.DecisionInput) { in.StaminaRatio = 0.30; in.Aggression = 0.9 },
			combat.Decision{State: combat.StateAggressive, Intent: combat.IntentCharge}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			assert.Equal(t, tc.want, combat.Decide(in))
		})
	}
}

func TestDecide_InstinctWidensChargeMargin(t *testing.T) {
	in := baseInput()
	in.Aggression, in.Caution = 0.62, 0.5
	in.Instinct = 10
	assert.Equal(t, combat.IntentCharge, combat.Decide(in).Intent)
	in.Instinct = 100
	assert.Equal(t, combat.IntentClose, combat.Decide(in).Intent)
}

func TestProperty_Decide_PureAndStunGated(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := combat.DecisionInput{
			Current:       rapid.SampledFrom([]combat.AIState{combat.StateAggressive, combat.StateCircling, combat.StateRetreating, combat.StateStunned}).Draw(rt, "current"),
			Aggression:    rapid.Float64Range(0, 1).Draw(rt, "aggression"),
			Caution:       rapid.Float64Range(0, 1).Draw(rt, "caution"),
			StaminaRatio:  rapid.Float64Range(0, 1).Draw(rt, "ratio"),
			Distance:      rapid.Float64Range(0, 500).Draw(rt, "distance"),
			EngageRange:   40,
			Instinct:      rapid.IntRange(10, 100).Draw(rt, "instinct"),
			StunRemaining: rapid.IntRange(0, 5).Draw(rt, "stun"),
			Margin:        0.1,
		}
		d := combat.Decide(in)
		assert.Equal(rt, d, combat.Decide(in))
		assert.Equal(rt, in.StunRemaining > 0, d.State == combat.StateStunned)
		if in.StunRemaining == 0 && in.StaminaRatio < combat.LowStaminaRatio {
			assert.Equal(rt, combat.StateRetreating, d.State)
		}
		if in.StunRemaining == 0 && in.StaminaRatio >= combat.LowStaminaRatio && in.Caution >= in.Aggression {
			assert.Equal(rt, combat.StateCircling, d.State)
		}
	})
}
