package scape

import (
	"fmt"
	"math/rand"

	"percept/internal/line"
)

// sampleEpsilon nudges generated coordinates off the exact range boundary.
const sampleEpsilon = 0.01

// LinearBoundary labels uniformly sampled points in [low, high) by which
// side of a fixed standard-form line they fall on.
type LinearBoundary struct {
	boundary line.Standard
	low      float64
	high     float64
	rng      *rand.Rand
}

func NewLinearBoundary(boundary line.Standard, low, high float64, rng *rand.Rand) (*LinearBoundary, error) {
	if err := boundary.Validate(); err != nil {
		return nil, err
	}
	if high-low <= sampleEpsilon {
		return nil, fmt.Errorf("sample range must span more than %g: low=%g high=%g", sampleEpsilon, low, high)
	}
	if rng == nil {
		return nil, fmt.Errorf("rand source is required")
	}
	return &LinearBoundary{boundary: boundary, low: low, high: high, rng: rng}, nil
}

func (s *LinearBoundary) Name() string {
	return "linear_boundary"
}

func (s *LinearBoundary) Boundary() line.Standard {
	return s.boundary
}

func (s *LinearBoundary) Sample() (float64, float64) {
	return s.coordinate(), s.coordinate()
}

func (s *LinearBoundary) Label(x, y float64) int {
	return s.boundary.Side(x, y)
}

func (s *LinearBoundary) coordinate() float64 {
	return s.low + sampleEpsilon + s.rng.Float64()*(s.high-s.low-sampleEpsilon)
}
