package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Avg returns the arithmetic mean of values.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

type BenchmarkSummary struct {
	RunID        string  `json:"run_id"`
	Trials       int     `json:"trials"`
	BaseSeed     int64   `json:"base_seed"`
	StreakTarget int     `json:"streak_target"`
	AttemptsMean float64 `json:"attempts_mean"`
	AttemptsStd  float64 `json:"attempts_std"`
	AttemptsMin  int     `json:"attempts_min"`
	AttemptsMax  int     `json:"attempts_max"`
	AllConverged bool    `json:"all_converged"`
}

// SummarizeTrials aggregates per-trial attempt counts into a benchmark
// summary. The caller fills in the identifying fields.
func SummarizeTrials(attempts []int, converged []bool) (BenchmarkSummary, error) {
	if len(attempts) == 0 {
		return BenchmarkSummary{}, fmt.Errorf("at least one trial is required")
	}
	if len(attempts) != len(converged) {
		return BenchmarkSummary{}, fmt.Errorf("attempts/converged length mismatch: %d != %d", len(attempts), len(converged))
	}

	values := make([]float64, len(attempts))
	min := attempts[0]
	max := attempts[0]
	all := true
	for i, n := range attempts {
		values[i] = float64(n)
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
		if !converged[i] {
			all = false
		}
	}
	mean, err := Avg(values)
	if err != nil {
		return BenchmarkSummary{}, err
	}
	std, err := Std(values)
	if err != nil {
		return BenchmarkSummary{}, err
	}
	return BenchmarkSummary{
		Trials:       len(attempts),
		AttemptsMean: mean,
		AttemptsStd:  std,
		AttemptsMin:  min,
		AttemptsMax:  max,
		AllConverged: all,
	}, nil
}

func WriteBenchmarkSummary(runDir string, summary BenchmarkSummary) error {
	return writeJSON(filepath.Join(runDir, benchSummary), summary)
}

func ReadBenchmarkSummary(baseDir, runID string) (BenchmarkSummary, bool, error) {
	path := filepath.Join(baseDir, runID, benchSummary)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BenchmarkSummary{}, false, nil
		}
		return BenchmarkSummary{}, false, err
	}
	var summary BenchmarkSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return BenchmarkSummary{}, false, err
	}
	return summary, true, nil
}

func WriteBenchmarkSeries(runDir string, attemptsByTrial []int) error {
	path := filepath.Join(runDir, benchSeriesFile)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"trial", "attempts"}); err != nil {
		return err
	}
	for i, attempts := range attemptsByTrial {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.Itoa(attempts),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadBenchmarkSeries(baseDir, runID string) ([]int, bool, error) {
	path := filepath.Join(baseDir, runID, benchSeriesFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []int{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("benchmark series header must have at least 2 columns")
	}

	series := make([]int, 0, 16)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("benchmark series row must have at least 2 columns")
		}
		value, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}
