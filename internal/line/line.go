// Package line holds the two equivalent 2D line representations the system
// reports in: standard form ax+by=c and slope-intercept form y=mx+b.
package line

import (
	"errors"
	"fmt"
	"math"
)

// NearZero is the coefficient magnitude below which a slope-intercept
// conversion is treated as vertical instead of dividing.
const NearZero = 1e-9

var (
	ErrDegenerate   = errors.New("degenerate line")
	ErrNearVertical = errors.New("line is vertical or near-vertical")
)

// Standard is the standard form ax + by = c.
type Standard struct {
	A float64
	B float64
	C float64
}

// SlopeIntercept is the slope-intercept form y = mx + b.
type SlopeIntercept struct {
	Slope     float64
	Intercept float64
}

func (s Standard) Validate() error {
	if s.A == 0 && s.B == 0 {
		return fmt.Errorf("%w: both coefficients are zero", ErrDegenerate)
	}
	return nil
}

// Side labels a point against the inequality ax + by - c > 0.
func (s Standard) Side(x, y float64) int {
	if s.A*x+s.B*y-s.C > 0 {
		return 1
	}
	return 0
}

// SlopeIntercept converts to y = mx + b. A near-zero y coefficient has no
// finite slope and is reported as ErrNearVertical rather than a division
// blow-up.
func (s Standard) SlopeIntercept() (SlopeIntercept, error) {
	if math.Abs(s.B) < NearZero {
		return SlopeIntercept{}, fmt.Errorf("%w: |b|=%g", ErrNearVertical, math.Abs(s.B))
	}
	return SlopeIntercept{
		Slope:     -s.A / s.B,
		Intercept: s.C / s.B,
	}, nil
}

// Standard converts y = mx + b to -mx + y = b.
func (si SlopeIntercept) Standard() Standard {
	return Standard{A: -si.Slope, B: 1, C: si.Intercept}
}

// FromWeights derives the decision boundary xw*x + yw*y = c implied by a
// trained unit's weights. The caller supplies c from the bias under the
// active policy.
func FromWeights(xWeight, yWeight, c float64) (SlopeIntercept, error) {
	return Standard{A: xWeight, B: yWeight, C: c}.SlopeIntercept()
}
