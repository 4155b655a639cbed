// Package percept is the embeddable client surface: configure a run,
// train a unit against a linear boundary scape, and inspect persisted
// results.
package percept

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"percept/internal/line"
	"percept/internal/model"
	"percept/internal/scape"
	"percept/internal/stats"
	"percept/internal/storage"
	"percept/internal/trainer"
	"percept/internal/unit"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "percept.db"

	defaultLearningRate = 0.005
	defaultLowRange     = 0.0
	defaultHighRange    = 10.0
	defaultStreakTarget = 100
	defaultSeed         = 1
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store

	benchmarksDir string
	exportsDir    string

	initialized bool
}

// RunRequest configures one training run. Zero values fall back to the
// documented defaults; the boundary coefficients have no default and at
// least one of A, B must be nonzero.
type RunRequest struct {
	RunID string

	A float64
	B float64
	C float64

	Learn         float64
	LowRange      float64
	HighRange     float64
	StreakTarget  int
	BiasPolicy    string
	BiasValue     *float64
	Activation    string
	Seed          int64
	AttemptsLimit int

	Progress func(trainer.Step)
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string

	Attempts  int
	Streak    int
	Converged bool

	TrueSlope     float64
	TrueIntercept float64
	TrueVertical  bool

	LearnedSlope     float64
	LearnedIntercept float64
	LearnedVertical  bool

	FinalWeights []float64
	FinalBias    float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string `json:"run_id"`
	CreatedAtUTC string `json:"created_at_utc"`
	Scape        string `json:"scape"`
	Seed         int64  `json:"seed"`
	StreakTarget int    `json:"streak_target"`
	Attempts     int    `json:"attempts"`
	Converged    bool   `json:"converged"`
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type QueryRequest struct {
	UnitID string
	X      float64
	Y      float64
}

type QueryResult struct {
	UnitID string
	Label  int
}

type BenchmarkRequest struct {
	Run    RunRequest
	Trials int
}

type BenchmarkSummary struct {
	RunID        string
	ArtifactsDir string
	Trials       int
	BaseSeed     int64
	StreakTarget int
	AttemptsMean float64
	AttemptsStd  float64
	AttemptsMin  int
	AttemptsMax  int
	AllConverged bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	req, err := normalizeRunRequest(req)
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("linear_boundary-%d-%d", req.Seed, now.Unix())
	}

	boundary := line.Standard{A: req.A, B: req.B, C: req.C}
	trueSlope, trueIntercept, trueVertical, err := slopeInterceptOf(boundary)
	if err != nil {
		return RunSummary{}, err
	}

	bias, policy, err := resolveBias(req, trueIntercept)
	if err != nil {
		return RunSummary{}, err
	}

	u, err := unit.New(unit.Config{
		Inputs:       2,
		LearningRate: req.Learn,
		Bias:         bias,
		BiasPolicy:   policy,
		Activation:   req.Activation,
		Rand:         rand.New(rand.NewSource(req.Seed + 1000)),
	})
	if err != nil {
		return RunSummary{}, err
	}

	s, err := scape.NewLinearBoundary(boundary, req.LowRange, req.HighRange, rand.New(rand.NewSource(req.Seed+2000)))
	if err != nil {
		return RunSummary{}, err
	}

	progress := make([]stats.ProgressRow, 0, 512)
	harness, err := trainer.New(trainer.Config{
		Unit:          u,
		Scape:         s,
		StreakTarget:  req.StreakTarget,
		AttemptsLimit: req.AttemptsLimit,
		Progress: func(step trainer.Step) {
			progress = append(progress, stats.ProgressRow{
				Attempt: step.Attempt,
				Correct: step.Correct,
				Target:  step.Target,
				Result:  step.Result,
				X:       step.X,
				Y:       step.Y,
				XWeight: step.Weights[0],
				YWeight: step.Weights[1],
				Bias:    step.Bias,
			})
			if req.Progress != nil {
				req.Progress(step)
			}
		},
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := harness.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	weights := u.Weights()
	learnedSlope, learnedIntercept, learnedVertical, err := slopeInterceptOf(learnedBoundary(weights, u.Bias(), u.Policy()))
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:            runID,
		Attempts:         result.Attempts,
		Streak:           result.Streak,
		Converged:        result.Converged,
		TrueSlope:        trueSlope,
		TrueIntercept:    trueIntercept,
		TrueVertical:     trueVertical,
		LearnedSlope:     learnedSlope,
		LearnedIntercept: learnedIntercept,
		LearnedVertical:  learnedVertical,
		FinalWeights:     weights,
		FinalBias:        u.Bias(),
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			Scape:         s.Name(),
			XCoefficient:  req.A,
			YCoefficient:  req.B,
			Constant:      req.C,
			LearningRate:  req.Learn,
			LowRange:      req.LowRange,
			HighRange:     req.HighRange,
			StreakTarget:  req.StreakTarget,
			BiasPolicy:    string(policy),
			BiasValue:     bias,
			Activation:    req.Activation,
			Seed:          req.Seed,
			AttemptsLimit: req.AttemptsLimit,
		},
		Summary: stats.RunSummary{
			Attempts:         result.Attempts,
			Streak:           result.Streak,
			Converged:        result.Converged,
			TrueSlope:        trueSlope,
			TrueIntercept:    trueIntercept,
			TrueVertical:     trueVertical,
			LearnedSlope:     learnedSlope,
			LearnedIntercept: learnedIntercept,
			LearnedVertical:  learnedVertical,
			FinalWeights:     weights,
			FinalBias:        u.Bias(),
		},
		Progress: progress,
	})
	if err != nil {
		return RunSummary{}, err
	}
	summary.ArtifactsDir = filepath.Clean(runDir)

	createdAt := now.Format(time.RFC3339Nano)
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:        runID,
		Scape:        s.Name(),
		Seed:         req.Seed,
		StreakTarget: req.StreakTarget,
		Attempts:     result.Attempts,
		Converged:    result.Converged,
		CreatedAtUTC: createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	if err := c.store.SaveRun(ctx, model.TrainingRun{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:               runID,
		Scape:            s.Name(),
		Seed:             req.Seed,
		StreakTarget:     req.StreakTarget,
		Attempts:         result.Attempts,
		Streak:           result.Streak,
		Converged:        result.Converged,
		TrueSlope:        trueSlope,
		TrueIntercept:    trueIntercept,
		TrueVertical:     trueVertical,
		LearnedSlope:     learnedSlope,
		LearnedIntercept: learnedIntercept,
		LearnedVertical:  learnedVertical,
		FinalWeights:     weights,
		FinalBias:        u.Bias(),
		CreatedAtUTC:     createdAt,
	}); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveUnit(ctx, u.Snapshot(runID)); err != nil {
		return RunSummary{}, err
	}

	return summary, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Scape:        e.Scape,
			Seed:         e.Seed,
			StreakTarget: e.StreakTarget,
			Attempts:     e.Attempts,
			Converged:    e.Converged,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.benchmarksDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Query classifies a point with a previously persisted unit without
// mutating its weights.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	if req.UnitID == "" {
		return QueryResult{}, errors.New("unit id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return QueryResult{}, err
	}

	snapshot, ok, err := c.store.GetUnit(ctx, req.UnitID)
	if err != nil {
		return QueryResult{}, err
	}
	if !ok {
		return QueryResult{}, fmt.Errorf("unit not found: %s", req.UnitID)
	}

	u, err := unit.Restore(snapshot)
	if err != nil {
		return QueryResult{}, err
	}
	label, err := u.Query([]float64{req.X, req.Y})
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{UnitID: req.UnitID, Label: label}, nil
}

// Benchmark repeats the same run configuration across Trials consecutive
// seeds and aggregates the attempts-to-convergence distribution.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if req.Trials <= 0 {
		req.Trials = 5
	}
	base, err := normalizeRunRequest(req.Run)
	if err != nil {
		return BenchmarkSummary{}, err
	}

	now := time.Now().UTC()
	benchID := fmt.Sprintf("bench-linear_boundary-%d-%d", base.Seed, now.Unix())

	attempts := make([]int, 0, req.Trials)
	converged := make([]bool, 0, req.Trials)
	for trial := 0; trial < req.Trials; trial++ {
		trialReq := base
		trialReq.RunID = fmt.Sprintf("%s-trial%d", benchID, trial+1)
		trialReq.Seed = base.Seed + int64(trial)
		trialReq.Progress = nil

		summary, err := c.Run(ctx, trialReq)
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("trial %d: %w", trial+1, err)
		}
		attempts = append(attempts, summary.Attempts)
		converged = append(converged, summary.Converged)
	}

	aggregate, err := stats.SummarizeTrials(attempts, converged)
	if err != nil {
		return BenchmarkSummary{}, err
	}
	aggregate.RunID = benchID
	aggregate.BaseSeed = base.Seed
	aggregate.StreakTarget = base.StreakTarget

	benchDir := filepath.Join(c.benchmarksDir, benchID)
	if _, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         benchID,
			Scape:         "linear_boundary",
			XCoefficient:  base.A,
			YCoefficient:  base.B,
			Constant:      base.C,
			LearningRate:  base.Learn,
			LowRange:      base.LowRange,
			HighRange:     base.HighRange,
			StreakTarget:  base.StreakTarget,
			BiasPolicy:    base.BiasPolicy,
			Activation:    base.Activation,
			Seed:          base.Seed,
			AttemptsLimit: base.AttemptsLimit,
		},
	}); err != nil {
		return BenchmarkSummary{}, err
	}
	if err := stats.WriteBenchmarkSummary(benchDir, aggregate); err != nil {
		return BenchmarkSummary{}, err
	}
	if err := stats.WriteBenchmarkSeries(benchDir, attempts); err != nil {
		return BenchmarkSummary{}, err
	}

	return BenchmarkSummary{
		RunID:        benchID,
		ArtifactsDir: filepath.Clean(benchDir),
		Trials:       aggregate.Trials,
		BaseSeed:     base.Seed,
		StreakTarget: base.StreakTarget,
		AttemptsMean: aggregate.AttemptsMean,
		AttemptsStd:  aggregate.AttemptsStd,
		AttemptsMin:  aggregate.AttemptsMin,
		AttemptsMax:  aggregate.AttemptsMax,
		AllConverged: aggregate.AllConverged,
	}, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func normalizeRunRequest(req RunRequest) (RunRequest, error) {
	if req.Learn == 0 {
		req.Learn = defaultLearningRate
	}
	if req.LowRange == 0 && req.HighRange == 0 {
		req.LowRange = defaultLowRange
		req.HighRange = defaultHighRange
	}
	if req.StreakTarget <= 0 {
		req.StreakTarget = defaultStreakTarget
	}
	if req.Seed == 0 {
		req.Seed = defaultSeed
	}
	if req.Activation == "" {
		req.Activation = "step"
	}
	policy, err := unit.ParseBiasPolicy(req.BiasPolicy)
	if err != nil {
		return RunRequest{}, err
	}
	req.BiasPolicy = string(policy)

	if req.Learn <= 0 {
		return RunRequest{}, fmt.Errorf("learning rate must be > 0, got %g", req.Learn)
	}
	if req.HighRange <= req.LowRange {
		return RunRequest{}, fmt.Errorf("sample range is empty: low=%g high=%g", req.LowRange, req.HighRange)
	}
	if req.AttemptsLimit < 0 {
		return RunRequest{}, fmt.Errorf("attempts limit must be >= 0, got %d", req.AttemptsLimit)
	}
	if err := (line.Standard{A: req.A, B: req.B, C: req.C}).Validate(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

// resolveBias picks the starting bias. Trainable units learn the bias from
// zero; threshold units need an explicit bias and default to the negated
// true intercept, matching the historical bias-given setup.
func resolveBias(req RunRequest, trueIntercept float64) (float64, unit.BiasPolicy, error) {
	policy, err := unit.ParseBiasPolicy(req.BiasPolicy)
	if err != nil {
		return 0, "", err
	}
	if req.BiasValue != nil {
		return *req.BiasValue, policy, nil
	}
	if policy == unit.BiasThreshold {
		return -trueIntercept, policy, nil
	}
	return 0, policy, nil
}

// learnedBoundary rearranges the trained unit's decision rule into standard
// form. Threshold units fire when sum > bias, trainable units when
// sum + bias > 0.
func learnedBoundary(weights []float64, bias float64, policy unit.BiasPolicy) line.Standard {
	c := -bias
	if policy == unit.BiasThreshold {
		c = bias
	}
	return line.Standard{A: weights[0], B: weights[1], C: c}
}

func slopeInterceptOf(boundary line.Standard) (slope, intercept float64, vertical bool, err error) {
	si, convErr := boundary.SlopeIntercept()
	if convErr != nil {
		if errors.Is(convErr, line.ErrNearVertical) {
			return 0, 0, true, nil
		}
		return 0, 0, false, convErr
	}
	return si.Slope, si.Intercept, false, nil
}
