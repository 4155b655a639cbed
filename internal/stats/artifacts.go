package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

const (
	runIndexFile    = "run_index.json"
	progressFile    = "progress.csv"
	configFile      = "config.json"
	summaryFile     = "summary.json"
	benchSummary    = "benchmark_summary.json"
	benchSeriesFile = "benchmark_series.csv"
)

type RunConfig struct {
	RunID         string  `json:"run_id"`
	Scape         string  `json:"scape"`
	XCoefficient  float64 `json:"x_coefficient"`
	YCoefficient  float64 `json:"y_coefficient"`
	Constant      float64 `json:"constant"`
	LearningRate  float64 `json:"learning_rate"`
	LowRange      float64 `json:"low_range"`
	HighRange     float64 `json:"high_range"`
	StreakTarget  int     `json:"streak_target"`
	BiasPolicy    string  `json:"bias_policy"`
	BiasValue     float64 `json:"bias_value"`
	Activation    string  `json:"activation"`
	Seed          int64   `json:"seed"`
	AttemptsLimit int     `json:"attempts_limit"`
}

type RunSummary struct {
	Attempts         int       `json:"attempts"`
	Streak           int       `json:"streak"`
	Converged        bool      `json:"converged"`
	TrueSlope        float64   `json:"true_slope"`
	TrueIntercept    float64   `json:"true_intercept"`
	TrueVertical     bool      `json:"true_vertical"`
	LearnedSlope     float64   `json:"learned_slope"`
	LearnedIntercept float64   `json:"learned_intercept"`
	LearnedVertical  bool      `json:"learned_vertical"`
	FinalWeights     []float64 `json:"final_weights"`
	FinalBias        float64   `json:"final_bias"`
}

type ProgressRow struct {
	Attempt int
	Correct bool
	Target  int
	Result  int
	X       float64
	Y       float64
	XWeight float64
	YWeight float64
	Bias    float64
}

type RunArtifacts struct {
	Config   RunConfig
	Summary  RunSummary
	Progress []ProgressRow
}

type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Scape        string `json:"scape"`
	Seed         int64  `json:"seed"`
	StreakTarget int    `json:"streak_target"`
	Attempts     int    `json:"attempts"`
	Converged    bool   `json:"converged"`
	CreatedAtUTC string `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := writeProgressCSV(filepath.Join(runDir, progressFile), artifacts.Progress); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	path := filepath.Join(baseDir, runID, summaryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunSummary{}, false, nil
		}
		return RunSummary{}, false, err
	}

	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, false, err
	}
	return summary, true, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{configFile, summaryFile, progressFile}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, optional := range []string{benchSummary, benchSeriesFile} {
		path := filepath.Join(src, optional)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, optional)); err != nil {
				return "", err
			}
		} else if err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func writeProgressCSV(path string, rows []ProgressRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"attempt", "correct", "target", "result", "x", "y", "x_weight", "y_weight", "bias"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			strconv.Itoa(row.Attempt),
			strconv.FormatBool(row.Correct),
			strconv.Itoa(row.Target),
			strconv.Itoa(row.Result),
			strconv.FormatFloat(row.X, 'f', -1, 64),
			strconv.FormatFloat(row.Y, 'f', -1, 64),
			strconv.FormatFloat(row.XWeight, 'f', -1, 64),
			strconv.FormatFloat(row.YWeight, 'f', -1, 64),
			strconv.FormatFloat(row.Bias, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadProgressCSV(baseDir, runID string) ([]ProgressRow, bool, error) {
	path := filepath.Join(baseDir, runID, progressFile)
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
			return []ProgressRow{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 9 {
		return nil, false, fmt.Errorf("progress header must have 9 columns")
	}

	rows := make([]ProgressRow, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 9 {
			return nil, false, fmt.Errorf("progress row must have 9 columns")
		}
		attempt, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, err
		}
		correct, err := strconv.ParseBool(record[1])
		if err != nil {
			return nil, false, err
		}
		target, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, false, err
		}
		result, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, false, err
		}
		values := make([]float64, 5)
		for i := 0; i < 5; i++ {
			values[i], err = strconv.ParseFloat(record[4+i], 64)
			if err != nil {
				return nil, false, err
			}
		}
		rows = append(rows, ProgressRow{
			Attempt: attempt,
			Correct: correct,
			Target:  target,
			Result:  result,
			X:       values[0],
			Y:       values[1],
			XWeight: values[2],
			YWeight: values[3],
			Bias:    values[4],
		})
	}
	return rows, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
