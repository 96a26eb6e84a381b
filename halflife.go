package gokincore

import (
	"fmt"
	"math"
)

// TimeUnit is the unit of the x axis of the fitted sample.
type TimeUnit string

const (
	Minute TimeUnit = "minute"
	Second TimeUnit = "second"
)

// Seconds returns the multiplier converting the unit to seconds.
func (u TimeUnit) Seconds() (float64, error) {
	switch u {
	case Minute:
		return 60, nil
	case Second:
		return 1, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", string(u))
}

// HalfLife converts a fitted rate constant into a half-life in
// seconds, ln(2)/|k| scaled by the time unit. A zero or non-finite
// rate constant has no finite half-life and is rejected.
func HalfLife(k float64, unit TimeUnit) (float64, error) {
	mult, err := unit.Seconds()
	if err != nil {
		return 0, err
	}
	if k == 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return 0, &InvalidRateConstantError{K: k}
	}
	return math.Ln2 / math.Abs(k) * mult, nil
}
