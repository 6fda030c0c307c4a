package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func TestEscalatingRule_Escalates(t *testing.T) {
	r := combat.DefaultSuddenDeathRule()
	assert.Equal(t, 1.5, r.Multiplier(900, 1))
	assert.Equal(t, 1.75, r.Multiplier(1200, 2))
	assert.Equal(t, 3.0, r.Multiplier(99999, 50))
	assert.Equal(t, 1.5, r.Multiplier(0, 0))
}

func TestProperty_EscalatingRule_Monotone(t *testing.T) {
	r := combat.DefaultSuddenDeathRule()
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 100).Draw(rt, "a")
		b := rapid.IntRange(a, 200).Draw(rt, "b")
		ma, mb := r.Multiplier(0, a), r.Multiplier(0, b)
		assert.GreaterOrEqual(rt, ma, 1.0)
		assert.LessOrEqual(rt, ma, mb)
	})
}
