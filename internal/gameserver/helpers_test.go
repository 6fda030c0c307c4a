package gameserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
)

func roster() []genome.Genome {
	return []genome.Genome{
		{
			ID: "brute", Name: "Brute",
			Stats:  genome.Stats{Bulk: 90, Speed: 40, Fury: 70, Instinct: 40},
			Traits: genome.Traits{Weapon: "horns", Defense: "hide", Mobility: genome.MobilityGround},
		},
		{
			ID: "skitter", Name: "Skitter",
			Stats:  genome.Stats{Bulk: 40, Speed: 90, Fury: 50, Instinct: 70},
			Traits: genome.Traits{Weapon: "fangs", Defense: "scales", Mobility: genome.MobilityWallcrawler},
		},
		{
			ID: "kestrel", Name: "Kestrel",
			Stats:  genome.Stats{Bulk: 35, Speed: 85, Fury: 60, Instinct: 70},
			Traits: genome.Traits{Weapon: "claws", Defense: "fur", Mobility: genome.MobilityFlyer},
		},
	}
}

func pair() [2]genome.Genome {
	r := roster()
	return [2]genome.Genome{r[0], r[1]}
}

// shortSettings end every match by decision within about a second.
func shortSettings() match.Settings {
	s := match.DefaultSettings()
	s.Countdown = 200 * time.Millisecond
	s.StalemateWarnAfter = 200 * time.Millisecond
	s.SuddenDeathAfter = 400 * time.Millisecond
	s.MaxFightDuration = 800 * time.Millisecond
	return s
}

func newManager(t *testing.T, s match.Settings) *match.Manager {
	t.Helper()
	m, err := match.NewManager(s, match.ManagerDeps{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func startMatch(t *testing.T, m *match.Manager) uuid.UUID {
	t.Helper()
	id, err := m.Start(context.Background(), pair(), 42)
	require.NoError(t, err)
	return id
}
