// Package trainer runs the online convergence loop: sample, label, train,
// and count consecutive correct classifications until a target streak.
package trainer

import (
	"context"
	"errors"
	"fmt"

	"percept/internal/scape"
	"percept/internal/unit"
)

var ErrInvalidConfig = errors.New("invalid trainer configuration")

// Step describes one training iteration as observed by a progress callback.
type Step struct {
	Attempt int
	X       float64
	Y       float64
	Target  int
	Result  int
	Correct bool
	Weights []float64
	Bias    float64
	Streak  int
}

type Config struct {
	Unit         *unit.LinearUnit
	Scape        scape.Scape
	StreakTarget int
	// AttemptsLimit stops a run that has not converged after N attempts.
	// Zero disables the limit.
	AttemptsLimit int
	Progress      func(Step)
}

type Result struct {
	Attempts  int
	Streak    int
	Converged bool
}

type Harness struct {
	cfg Config
}

func New(cfg Config) (*Harness, error) {
	if cfg.Unit == nil {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidConfig)
	}
	if cfg.Scape == nil {
		return nil, fmt.Errorf("%w: scape is required", ErrInvalidConfig)
	}
	if cfg.StreakTarget < 1 {
		return nil, fmt.Errorf("%w: streak target must be >= 1, got %d", ErrInvalidConfig, cfg.StreakTarget)
	}
	if cfg.AttemptsLimit < 0 {
		return nil, fmt.Errorf("%w: attempts limit must be >= 0, got %d", ErrInvalidConfig, cfg.AttemptsLimit)
	}
	return &Harness{cfg: cfg}, nil
}

// Run loops until the unit classifies StreakTarget samples in a row
// correctly. The streak resets to zero on any miss. There is no inherent
// upper bound on attempts; cancellation comes from ctx or AttemptsLimit.
func (h *Harness) Run(ctx context.Context) (Result, error) {
	attempts := 0
	streak := 0
	for streak < h.cfg.StreakTarget {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts, Streak: streak}, err
		}
		if h.cfg.AttemptsLimit > 0 && attempts >= h.cfg.AttemptsLimit {
			return Result{Attempts: attempts, Streak: streak, Converged: false}, nil
		}

		x, y := h.cfg.Scape.Sample()
		target := h.cfg.Scape.Label(x, y)
		result, err := h.cfg.Unit.Train([]float64{x, y}, target)
		if err != nil {
			return Result{Attempts: attempts, Streak: streak}, err
		}

		attempts++
		correct := result == target
		if correct {
			streak++
		} else {
			streak = 0
		}

		if h.cfg.Progress != nil {
			h.cfg.Progress(Step{
				Attempt: attempts,
				X:       x,
				Y:       y,
				Target:  target,
				Result:  result,
				Correct: correct,
				Weights: h.cfg.Unit.Weights(),
				Bias:    h.cfg.Unit.Bias(),
				Streak:  streak,
			})
		}
	}
	return Result{Attempts: attempts, Streak: streak, Converged: true}, nil
}
