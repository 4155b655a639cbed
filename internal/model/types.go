package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// UnitSnapshot is the persistent form of a trained linear unit.
type UnitSnapshot struct {
	VersionedRecord
	ID           string    `json:"id"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	LearningRate float64   `json:"learning_rate"`
	Activation   string    `json:"activation"`
	BiasPolicy   string    `json:"bias_policy"`
}

// TrainingRun records one completed (or attempt-limited) training run.
type TrainingRun struct {
	VersionedRecord
	ID               string    `json:"id"`
	Scape            string    `json:"scape"`
	Seed             int64     `json:"seed"`
	StreakTarget     int       `json:"streak_target"`
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
	CreatedAtUTC     string    `json:"created_at_utc"`
}
