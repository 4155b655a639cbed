package trainer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"percept/internal/line"
	"percept/internal/scape"
	"percept/internal/unit"
)

func newConvergenceFixture(t *testing.T, seed int64) (*unit.LinearUnit, *scape.LinearBoundary) {
	t.Helper()

	u, err := unit.New(unit.Config{
		Inputs:       2,
		LearningRate: 0.05,
		BiasPolicy:   unit.BiasTrainable,
		Rand:         rand.New(rand.NewSource(seed + 1000)),
	})
	if err != nil {
		t.Fatalf("new unit: %v", err)
	}

	s, err := scape.NewLinearBoundary(line.Standard{A: 1, B: 1, C: 10}, 0, 10, rand.New(rand.NewSource(seed+2000)))
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	return u, s
}

func TestNewValidatesConfig(t *testing.T) {
	u, s := newConvergenceFixture(t, 1)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"nil unit", Config{Scape: s, StreakTarget: 10}},
		{"nil scape", Config{Unit: u, StreakTarget: 10}},
		{"zero streak", Config{Unit: u, Scape: s, StreakTarget: 0}},
		{"negative limit", Config{Unit: u, Scape: s, StreakTarget: 10, AttemptsLimit: -1}},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestRunConvergesOnSeparableBoundary(t *testing.T) {
	u, s := newConvergenceFixture(t, 1)

	h, err := New(Config{Unit: u, Scape: s, StreakTarget: 100, AttemptsLimit: 500000})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence within attempts limit, got %+v", result)
	}
	if result.Streak != 100 {
		t.Fatalf("expected final streak 100, got %d", result.Streak)
	}
	if result.Attempts < result.Streak {
		t.Fatalf("attempts %d cannot be below streak %d", result.Attempts, result.Streak)
	}

	// The converged unit should agree with the ground truth over most of
	// the sample space.
	agree, total := 0, 0
	for x := 0.5; x < 10; x += 0.5 {
		for y := 0.5; y < 10; y += 0.5 {
			want := s.Label(x, y)
			got, err := u.Query([]float64{x, y})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			total++
			if got == want {
				agree++
			}
		}
	}
	if ratio := float64(agree) / float64(total); ratio < 0.9 {
		t.Fatalf("grid agreement too low after convergence: %.3f", ratio)
	}
}

func TestRunConvergesOnSlopeInterceptScenario(t *testing.T) {
	// y = x + 5 over [0, 10), the classic slope/intercept configuration.
	u, err := unit.New(unit.Config{
		Inputs:       2,
		LearningRate: 0.005,
		BiasPolicy:   unit.BiasTrainable,
		Rand:         rand.New(rand.NewSource(1001)),
	})
	if err != nil {
		t.Fatalf("new unit: %v", err)
	}
	boundary := line.SlopeIntercept{Slope: 1, Intercept: 5}.Standard()
	s, err := scape.NewLinearBoundary(boundary, 0, 10, rand.New(rand.NewSource(2001)))
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}

	h, err := New(Config{Unit: u, Scape: s, StreakTarget: 100, AttemptsLimit: 2000000})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence, got %+v", result)
	}

	agree, total := 0, 0
	for x := 0.5; x < 10; x += 0.5 {
		for y := 0.5; y < 10; y += 0.5 {
			want := s.Label(x, y)
			got, err := u.Query([]float64{x, y})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			total++
			if got == want {
				agree++
			}
		}
	}
	if ratio := float64(agree) / float64(total); ratio < 0.9 {
		t.Fatalf("grid agreement too low after convergence: %.3f", ratio)
	}
}

func TestRunReportsProgressSteps(t *testing.T) {
	u, s := newConvergenceFixture(t, 2)

	var steps []Step
	h, err := New(Config{
		Unit:          u,
		Scape:         s,
		StreakTarget:  10,
		AttemptsLimit: 500000,
		Progress:      func(step Step) { steps = append(steps, step) },
	})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(steps) != result.Attempts {
		t.Fatalf("expected %d progress steps, got %d", result.Attempts, len(steps))
	}

	prevStreak := 0
	for i, step := range steps {
		if step.Attempt != i+1 {
			t.Fatalf("step %d has attempt %d", i, step.Attempt)
		}
		if step.Correct != (step.Target == step.Result) {
			t.Fatalf("step %d correctness disagrees with target/result", i)
		}
		if step.Correct && step.Streak != prevStreak+1 {
			t.Fatalf("step %d: correct step must extend streak, got %d after %d", i, step.Streak, prevStreak)
		}
		if !step.Correct && step.Streak != 0 {
			t.Fatalf("step %d: miss must reset streak, got %d", i, step.Streak)
		}
		if len(step.Weights) != 2 {
			t.Fatalf("step %d: expected 2 weights, got %d", i, len(step.Weights))
		}
		prevStreak = step.Streak
	}
}

func TestRunStopsAtAttemptsLimit(t *testing.T) {
	u, err := unit.New(unit.Config{
		Inputs:       2,
		LearningRate: 1e-9, // too small to ever correct the boundary
		BiasPolicy:   unit.BiasTrainable,
		Rand:         rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("new unit: %v", err)
	}
	s, err := scape.NewLinearBoundary(line.Standard{A: 1, B: 1, C: 10}, 0, 10, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}

	h, err := New(Config{Unit: u, Scape: s, StreakTarget: 1000, AttemptsLimit: 50})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Converged {
		t.Fatal("run must not report convergence at the attempts limit")
	}
	if result.Attempts != 50 {
		t.Fatalf("expected exactly 50 attempts, got %d", result.Attempts)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	u, s := newConvergenceFixture(t, 3)

	h, err := New(Config{Unit: u, Scape: s, StreakTarget: 1000000})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Converged {
		t.Fatal("cancelled run must not report convergence")
	}
}
