package unit

import (
	"errors"
	"fmt"
	"math/rand"

	"percept/internal/model"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrInvalidConfig     = errors.New("invalid unit configuration")
	ErrDimensionMismatch = errors.New("input dimension mismatch")
)

// BiasPolicy selects how the bias participates in activation and training.
type BiasPolicy string

const (
	// BiasThreshold keeps the bias fixed and compares the weighted sum
	// against it: activate(sum - bias).
	BiasThreshold BiasPolicy = "threshold"
	// BiasTrainable folds the bias into the sum, activate(sum + bias),
	// and updates it by the same error rule as the weights.
	BiasTrainable BiasPolicy = "trainable"
)

func ParseBiasPolicy(name string) (BiasPolicy, error) {
	switch BiasPolicy(name) {
	case BiasThreshold:
		return BiasThreshold, nil
	case BiasTrainable, "":
		return BiasTrainable, nil
	default:
		return "", fmt.Errorf("%w: unknown bias policy %q", ErrInvalidConfig, name)
	}
}

type Config struct {
	Inputs       int
	LearningRate float64
	Bias         float64
	BiasPolicy   BiasPolicy
	Activation   string
	Rand         *rand.Rand
}

// LinearUnit is a single-output linear threshold classifier with trainable
// weights. Weights (and, under the trainable policy, the bias) are mutated
// in place by every Train call that misclassifies.
type LinearUnit struct {
	weights        []float64
	bias           float64
	learningRate   float64
	policy         BiasPolicy
	activate       Activation
	activationName string
}

func New(cfg Config) (*LinearUnit, error) {
	if cfg.Inputs < 1 {
		return nil, fmt.Errorf("%w: inputs must be >= 1, got %d", ErrInvalidConfig, cfg.Inputs)
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be > 0, got %g", ErrInvalidConfig, cfg.LearningRate)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("%w: rand source is required", ErrInvalidConfig)
	}
	policy, err := ParseBiasPolicy(string(cfg.BiasPolicy))
	if err != nil {
		return nil, err
	}
	name := cfg.Activation
	if name == "" {
		name = "step"
	}
	activate, err := GetActivation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Small nonzero starting weights avoid a degenerate all-zero state.
	weights := make([]float64, cfg.Inputs)
	for i := range weights {
		weights[i] = cfg.Rand.Float64()*0.99 + 0.01
	}

	return &LinearUnit{
		weights:        weights,
		bias:           cfg.Bias,
		learningRate:   cfg.LearningRate,
		policy:         policy,
		activate:       activate,
		activationName: name,
	}, nil
}

// Query classifies values against the current weights without mutating
// anything.
func (u *LinearUnit) Query(values []float64) (int, error) {
	if len(values) != len(u.weights) {
		return 0, fmt.Errorf("%w: got %d values for %d weights", ErrDimensionMismatch, len(values), len(u.weights))
	}
	sum := 0.0
	for i, w := range u.weights {
		sum += w * values[i]
	}
	switch u.policy {
	case BiasThreshold:
		return u.activate(sum - u.bias), nil
	default:
		return u.activate(sum + u.bias), nil
	}
}

// Train queries first and corrects the weights only on a miss. The returned
// label is the pre-update prediction, so callers observe whether the old
// state was correct.
func (u *LinearUnit) Train(values []float64, target int) (int, error) {
	result, err := u.Query(values)
	if err != nil {
		return 0, err
	}
	if result != target {
		delta := float64(target - result)
		for i := range u.weights {
			u.weights[i] += delta * values[i] * u.learningRate
		}
		if u.policy == BiasTrainable {
			u.bias += delta * u.learningRate
		}
	}
	return result, nil
}

func (u *LinearUnit) Weights() []float64 {
	out := make([]float64, len(u.weights))
	copy(out, u.weights)
	return out
}

func (u *LinearUnit) Bias() float64 {
	return u.bias
}

func (u *LinearUnit) LearningRate() float64 {
	return u.learningRate
}

func (u *LinearUnit) Policy() BiasPolicy {
	return u.policy
}

func (u *LinearUnit) Snapshot(id string) model.UnitSnapshot {
	return model.UnitSnapshot{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: SupportedSchemaVersion,
			CodecVersion:  SupportedCodecVersion,
		},
		ID:           id,
		Weights:      u.Weights(),
		Bias:         u.bias,
		LearningRate: u.learningRate,
		Activation:   u.activationName,
		BiasPolicy:   string(u.policy),
	}
}

// Restore rebuilds a unit from a persisted snapshot, for query-time use.
func Restore(snapshot model.UnitSnapshot) (*LinearUnit, error) {
	if len(snapshot.Weights) < 1 {
		return nil, fmt.Errorf("%w: snapshot has no weights", ErrInvalidConfig)
	}
	if snapshot.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: snapshot learning rate must be > 0", ErrInvalidConfig)
	}
	policy, err := ParseBiasPolicy(snapshot.BiasPolicy)
	if err != nil {
		return nil, err
	}
	name := snapshot.Activation
	if name == "" {
		name = "step"
	}
	activate, err := GetActivation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	weights := make([]float64, len(snapshot.Weights))
	copy(weights, snapshot.Weights)
	return &LinearUnit{
		weights:        weights,
		bias:           snapshot.Bias,
		learningRate:   snapshot.LearningRate,
		policy:         policy,
		activate:       activate,
		activationName: name,
	}, nil
}
