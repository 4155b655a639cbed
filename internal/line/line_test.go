package line

import (
	"errors"
	"math"
	"testing"
)

func TestValidateRejectsDegenerateLine(t *testing.T) {
	err := Standard{A: 0, B: 0, C: 5}.Validate()
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
	if err := (Standard{A: 1, B: 0, C: 0}).Validate(); err != nil {
		t.Fatalf("vertical line should validate, got %v", err)
	}
}

func TestSideLabelsPointsAgainstBoundary(t *testing.T) {
	// x + y = 10
	boundary := Standard{A: 1, B: 1, C: 10}
	if got := boundary.Side(9, 9); got != 1 {
		t.Fatalf("point above boundary: expected 1, got %d", got)
	}
	if got := boundary.Side(1, 1); got != 0 {
		t.Fatalf("point below boundary: expected 0, got %d", got)
	}
	if got := boundary.Side(4, 6); got != 0 {
		t.Fatalf("point on boundary: expected 0, got %d", got)
	}
}

func TestSlopeInterceptConversion(t *testing.T) {
	// 2x + 4y = 8 -> y = -0.5x + 2
	si, err := Standard{A: 2, B: 4, C: 8}.SlopeIntercept()
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if math.Abs(si.Slope-(-0.5)) > 1e-12 {
		t.Fatalf("expected slope -0.5, got %g", si.Slope)
	}
	if math.Abs(si.Intercept-2) > 1e-12 {
		t.Fatalf("expected intercept 2, got %g", si.Intercept)
	}
}

func TestSlopeInterceptRejectsVertical(t *testing.T) {
	_, err := Standard{A: 1, B: 0, C: 5}.SlopeIntercept()
	if !errors.Is(err, ErrNearVertical) {
		t.Fatalf("expected ErrNearVertical for b=0, got %v", err)
	}
	_, err = Standard{A: 1, B: NearZero / 2, C: 5}.SlopeIntercept()
	if !errors.Is(err, ErrNearVertical) {
		t.Fatalf("expected ErrNearVertical for near-zero b, got %v", err)
	}
}

func TestStandardRoundTrip(t *testing.T) {
	original := SlopeIntercept{Slope: 3, Intercept: -7}
	back, err := original.Standard().SlopeIntercept()
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if math.Abs(back.Slope-original.Slope) > 1e-12 || math.Abs(back.Intercept-original.Intercept) > 1e-12 {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, original)
	}
}

func TestFromWeights(t *testing.T) {
	si, err := FromWeights(1, 2, 6)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if math.Abs(si.Slope-(-0.5)) > 1e-12 || math.Abs(si.Intercept-3) > 1e-12 {
		t.Fatalf("unexpected line: %+v", si)
	}

	if _, err := FromWeights(1, 0, 6); !errors.Is(err, ErrNearVertical) {
		t.Fatalf("expected ErrNearVertical for zero y weight, got %v", err)
	}
}
