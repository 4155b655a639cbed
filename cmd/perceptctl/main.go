package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"percept/internal/storage"
	"percept/internal/trainer"
	"percept/internal/unit"
	perceptapi "percept/pkg/percept"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "query":
		return runQuery(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "activations":
		return runActivations(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	a := fs.Float64("a", 0, "boundary x coefficient in ax+by=c")
	b := fs.Float64("b", 0, "boundary y coefficient in ax+by=c")
	c := fs.Float64("c", 0, "boundary constant in ax+by=c")
	learn := fs.Float64("learn", 0.005, "learning rate")
	lowRange := fs.Float64("lowrange", 0, "sample range lower bound")
	highRange := fs.Float64("highrange", 10, "sample range upper bound")
	streak := fs.Int("streak", 100, "consecutive correct classifications required to converge")
	biasPolicy := fs.String("bias-policy", "trainable", "bias policy: threshold|trainable")
	biasValue := fs.Float64("bias-value", 0, "explicit starting bias (threshold default: negated true intercept)")
	activation := fs.String("activation", "step", "activation function name")
	seed := fs.Int64("seed", 1, "rng seed")
	attemptsLimit := fs.Int("attempts-limit", 0, "stop a non-converging run after N attempts (0 disables)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "percept.db", "sqlite database path")
	quiet := fs.Bool("quiet", false, "suppress per-attempt progress lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = perceptapi.RunRequest{
			RunID:         *runID,
			A:             *a,
			B:             *b,
			C:             *c,
			Learn:         *learn,
			LowRange:      *lowRange,
			HighRange:     *highRange,
			StreakTarget:  *streak,
			BiasPolicy:    *biasPolicy,
			Activation:    *activation,
			Seed:          *seed,
			AttemptsLimit: *attemptsLimit,
		}
		if setFlags["bias-value"] {
			v := *biasValue
			req.BiasValue = &v
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":         *runID,
			"a":              *a,
			"b":              *b,
			"c":              *c,
			"learn":          *learn,
			"lowrange":       *lowRange,
			"highrange":      *highRange,
			"streak":         *streak,
			"bias-policy":    *biasPolicy,
			"bias-value":     *biasValue,
			"activation":     *activation,
			"seed":           *seed,
			"attempts-limit": *attemptsLimit,
		})
	}
	if !*quiet {
		req.Progress = printProgress
	}

	client, err := perceptapi.New(perceptapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s converged=%t streak=%d attempts=%d seed=%d\n",
		summary.RunID, summary.Converged, summary.Streak, summary.Attempts, req.Seed)
	if summary.TrueVertical {
		fmt.Printf("true line: x = %.1f (vertical)\n", req.C/req.A)
	} else {
		fmt.Printf("true line: y = %.1fx + %.1f\n", summary.TrueSlope, summary.TrueIntercept)
	}
	if summary.LearnedVertical {
		fmt.Printf("learned line: x = %.1f (vertical)\n", verticalX(summary.FinalWeights, summary.FinalBias, req.BiasPolicy))
	} else {
		fmt.Printf("learned line: y = %.1fx + %.1f\n", summary.LearnedSlope, summary.LearnedIntercept)
	}
	fmt.Printf("final_weights=[%.4f %.4f] final_bias=%.4f\n", summary.FinalWeights[0], summary.FinalWeights[1], summary.FinalBias)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func printProgress(step trainer.Step) {
	marker := ""
	if !step.Correct {
		marker = " **"
	}
	fmt.Printf("attempt=%d target=%d result=%d x=%.2f y=%.2f weights=[%.2f %.2f] bias=%.2f streak=%d%s\n",
		step.Attempt,
		step.Target,
		step.Result,
		step.X,
		step.Y,
		step.Weights[0],
		step.Weights[1],
		step.Bias,
		step.Streak,
		marker,
	)
}

// verticalX reports the learned boundary as x = c/a when the y weight is
// too small for a slope-intercept form. The constant comes from the bias
// under the active policy.
func verticalX(weights []float64, bias float64, policy string) float64 {
	if len(weights) == 0 || weights[0] == 0 {
		return 0
	}
	c := -bias
	if policy == "threshold" {
		c = bias
	}
	return c / weights[0]
}

func runQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	unitID := fs.String("unit-id", "", "persisted unit id (defaults to its run id)")
	x := fs.Float64("x", 0, "x coordinate")
	y := fs.Float64("y", 0, "y coordinate")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "percept.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *unitID == "" {
		return errors.New("query requires --unit-id")
	}

	client, err := perceptapi.New(perceptapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Query(ctx, perceptapi.QueryRequest{UnitID: *unitID, X: *x, Y: *y})
	if err != nil {
		return err
	}
	fmt.Printf("unit_id=%s x=%.2f y=%.2f label=%d\n", result.UnitID, *x, *y, result.Label)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := perceptapi.New(perceptapi.Options{
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Runs(ctx, perceptapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s scape=%s seed=%d streak_target=%d attempts=%d converged=%t\n",
			e.RunID,
			e.CreatedAtUTC,
			e.Scape,
			e.Seed,
			e.StreakTarget,
			e.Attempts,
			e.Converged,
		)
	}
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	trials := fs.Int("trials", 5, "trial count across consecutive seeds")
	a := fs.Float64("a", 0, "boundary x coefficient in ax+by=c")
	b := fs.Float64("b", 0, "boundary y coefficient in ax+by=c")
	c := fs.Float64("c", 0, "boundary constant in ax+by=c")
	learn := fs.Float64("learn", 0.005, "learning rate")
	lowRange := fs.Float64("lowrange", 0, "sample range lower bound")
	highRange := fs.Float64("highrange", 10, "sample range upper bound")
	streak := fs.Int("streak", 100, "consecutive correct classifications required to converge")
	biasPolicy := fs.String("bias-policy", "trainable", "bias policy: threshold|trainable")
	biasValue := fs.Float64("bias-value", 0, "explicit starting bias (threshold default: negated true intercept)")
	activation := fs.String("activation", "step", "activation function name")
	seed := fs.Int64("seed", 1, "base rng seed; trial k uses seed+k")
	attemptsLimit := fs.Int("attempts-limit", 0, "stop a non-converging trial after N attempts (0 disables)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "percept.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = perceptapi.RunRequest{
			A:             *a,
			B:             *b,
			C:             *c,
			Learn:         *learn,
			LowRange:      *lowRange,
			HighRange:     *highRange,
			StreakTarget:  *streak,
			BiasPolicy:    *biasPolicy,
			Activation:    *activation,
			Seed:          *seed,
			AttemptsLimit: *attemptsLimit,
		}
		if setFlags["bias-value"] {
			v := *biasValue
			req.BiasValue = &v
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"a":              *a,
			"b":              *b,
			"c":              *c,
			"learn":          *learn,
			"lowrange":       *lowRange,
			"highrange":      *highRange,
			"streak":         *streak,
			"bias-policy":    *biasPolicy,
			"bias-value":     *biasValue,
			"activation":     *activation,
			"seed":           *seed,
			"attempts-limit": *attemptsLimit,
		})
	}

	client, err := perceptapi.New(perceptapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Benchmark(ctx, perceptapi.BenchmarkRequest{Run: req, Trials: *trials})
	if err != nil {
		return err
	}

	fmt.Printf("benchmark completed run_id=%s trials=%d base_seed=%d streak_target=%d\n",
		summary.RunID, summary.Trials, summary.BaseSeed, summary.StreakTarget)
	fmt.Printf("attempts mean=%.2f std=%.2f min=%d max=%d all_converged=%t\n",
		summary.AttemptsMean, summary.AttemptsStd, summary.AttemptsMin, summary.AttemptsMax, summary.AllConverged)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := perceptapi.New(perceptapi.Options{
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, perceptapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runActivations(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("activations", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Printf("activations: %s\n", strings.Join(unit.ListActivations(), ", "))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: perceptctl <train|query|runs|benchmark|export|activations> [flags]", msg)
}
