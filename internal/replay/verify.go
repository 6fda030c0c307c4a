package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/rng"
)

// ErrMismatch is returned when a re-simulated frame differs from the recording.
var ErrMismatch = errors.New("replay mismatch")

// Verify re-simulates the match recorded in r from its header seed and
// genomes and compares every frame. An aborted recording is aborted at the
// same tick. rule must behave like the rule the recording ran with; nil is the
// built-in rule.
//
// Precondition: settings are those the match ran with; a non-zero header tick
// interval overrides settings.Tuning.TickInterval.
// Postcondition: Returns the re-simulated result, or an error wrapping
// ErrMismatch naming the first differing tick.
func Verify(ctx context.Context, r *Reader, settings match.Settings, rule combat.SuddenDeathRule, logger *zap.Logger) (match.Result, error) {
	h := r.Header()
	if h.TickInterval > 0 {
		settings.Tuning.TickInterval = h.TickInterval
	}
	c, err := match.NewController(h.MatchID, h.Genomes, rng.NewSeeded(h.Seed), rule, settings, logger)
	if err != nil {
		return match.Result{}, err
	}

	var frames []match.Frame
	for {
		if err := ctx.Err(); err != nil {
			return match.Result{}, err
		}
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return match.Result{}, err
		}
		frames = append(frames, f)
	}
	recorded, _ := r.Result()

	for _, want := range frames {
		var got match.Frame
		if want.Snapshot.Phase == match.PhaseAborted {
			got, _ = c.Abort(recorded.Detail)
		} else {
			got, err = c.Step()
			if err != nil && !errors.Is(err, match.ErrMatchOver) {
				return match.Result{}, fmt.Errorf("re-simulating tick %d: %w", want.Snapshot.Tick, err)
			}
		}
		if err := sameFrame(want, got); err != nil {
			return match.Result{}, err
		}
	}
	res, ok := c.Result()
	if !ok {
		return match.Result{}, fmt.Errorf("%w: recording ends at tick %d before the match does", ErrMismatch, c.LastFrame().Snapshot.Tick)
	}
	if res.Winner != recorded.Winner || res.Reason != recorded.Reason || res.Draws != recorded.Draws {
		return res, fmt.Errorf("%w: result differs (winner %d/%d, reason %s/%s, draws %d/%d)",
			ErrMismatch, res.Winner, recorded.Winner, res.Reason, recorded.Reason, res.Draws, recorded.Draws)
	}
	return res, nil
}

func sameFrame(want, got match.Frame) error {
	if want.Snapshot != got.Snapshot {
		return fmt.Errorf("%w: snapshot differs at tick %d", ErrMismatch, want.Snapshot.Tick)
	}
	wb, err := EncodeEvents(want.Events)
	if err != nil {
		return err
	}
	gb, err := EncodeEvents(got.Events)
	if err != nil {
		return err
	}
	if !bytes.Equal(wb, gb) {
		return fmt.Errorf("%w: events differ at tick %d", ErrMismatch, want.Snapshot.Tick)
	}
	return nil
}
