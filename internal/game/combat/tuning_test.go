package combat_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func TestDefaultTuning_Valid(t *testing.T) {
	assert.NoError(t, combat.DefaultTuning().Validate())
}

func TestTuning_Ticks(t *testing.T) {
	tu := combat.DefaultTuning()
	assert.Equal(t, 0, tu.Ticks(0))
	assert.Equal(t, 1, tu.Ticks(0.001))
	assert.Equal(t, 30, tu.Ticks(1))
	assert.Equal(t, 91, tu.Ticks(3))
	assert.Equal(t, 152, tu.Ticks(5))
}

func TestParseTuning_OverridesSubset(t *testing.T) {
	tu, err := combat.ParseTuning([]byte("engage_range: 55\ntick_interval: 50ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 55.0, tu.EngageRange)
	assert.Equal(t, 50*time.Millisecond, tu.TickInterval)
	assert.Equal(t, combat.DefaultTuning().FlankBonus, tu.FlankBonus)
}

func TestParseTuning_RejectsInvalid(t *testing.T) {
	_, err := combat.ParseTuning([]byte("dive_bonus: 0.6\nfeint_cooldown_min: 6\nflinch_share: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dive_bonus must be in [0,0.5]")
	assert.Contains(t, err.Error(), "feint_cooldown_min must not exceed feint_cooldown_max")
	assert.Contains(t, err.Error(), "flinch_share must be in [0,1]")
}

func TestParseTuning_RejectsFeintCooldownOutsideThreeToFive(t *testing.T) {
	_, err := combat.ParseTuning([]byte("feint_cooldown_min: 0.5\nfeint_cooldown_max: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feint_cooldown_min must be in [3,5]")
	assert.Contains(t, err.Error(), "feint_cooldown_max must be in [3,5]")

	_, err = combat.ParseTuning([]byte("feint_cooldown_max: 8\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feint_cooldown_max must be in [3,5]")

	tu, err := combat.ParseTuning([]byte("feint_cooldown_min: 3.5\nfeint_cooldown_max: 4.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 3.5, tu.FeintCooldownMin)
}

func TestParseTuning_ReadChanceCurveIsFixed(t *testing.T) {
	_, err := combat.ParseTuning([]byte("read_chance_low: 0.9\nread_chance_high: 0.95\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_chance_low")
	assert.InDelta(t, 0.15, combat.ReadChance(0), 1e-9)
	assert.InDelta(t, 0.70, combat.ReadChance(100), 1e-9)
}

func TestParseTuning_AttachRegenBonusMustExceedOne(t *testing.T) {
	_, err := combat.ParseTuning([]byte("attach_regen_bonus: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach_regen_bonus must be > 1")
}

func TestProperty_AcceptedFeintCooldownStaysInThreeToFiveSeconds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tu := combat.DefaultTuning()
		tu.FeintCooldownMin = rapid.Float64Range(0, 10).Draw(rt, "min")
		tu.FeintCooldownMax = rapid.Float64Range(0, 10).Draw(rt, "max")
		if tu.Validate() != nil {
			return
		}
		u := rapid.Float64Range(0, 0.999999).Draw(rt, "u")
		n := combat.FeintCooldownTicks(u, tu)
		if n < tu.Ticks(3) || n > tu.Ticks(5) {
			rt.Fatalf("cooldown %d ticks outside [%d,%d]", n, tu.Ticks(3), tu.Ticks(5))
		}
	})
}

func TestParseTuning_EmptyKeepsDefaults(t *testing.T) {
	tu, err := combat.ParseTuning(nil)
	require.NoError(t, err)
	assert.Equal(t, combat.DefaultTuning(), tu)
}

func TestLoadTuning_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regen_bonus: 1.8\n"), 0644))
	tu, err := combat.LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 1.8, tu.RegenBonus)

	_, err = combat.LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
