// Package scape provides the sample-generating environments a unit is
// trained against.
package scape

// Scape produces unlabeled sample points and knows the ground-truth label
// for any point.
type Scape interface {
	Name() string
	Sample() (x, y float64)
	Label(x, y float64) int
}
