package gokincore

import (
	"fmt"
)

// UnknownModelError reports a model kind outside the registry.
type UnknownModelError struct {
	Kind ModelKind
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model kind %q (known: %v)", string(e.Kind), ModelKinds())
}

// FitDivergedError reports a fit that could not be completed: the
// optimizer ran out of its evaluation budget, blew up internally, or
// left a singular covariance behind.
type FitDivergedError struct {
	Kind   ModelKind
	Reason string
	Err    error
}

func (e *FitDivergedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fit of %s diverged: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("fit of %s diverged: %s", e.Kind, e.Reason)
}

func (e *FitDivergedError) Unwrap() error {
	return e.Err
}

// NoViableModelError reports that both candidates of a model comparison
// failed to fit.
type NoViableModelError struct {
	Exp1Err error
	Exp2Err error
}

func (e *NoViableModelError) Error() string {
	return fmt.Sprintf("could not fit data: exp1: %v; exp2: %v", e.Exp1Err, e.Exp2Err)
}

// ComparisonUndefinedError reports a degenerate F-test, either too few
// points for the residual degrees of freedom or a zero residual mean
// square.
type ComparisonUndefinedError struct {
	Reason string
}

func (e *ComparisonUndefinedError) Error() string {
	return fmt.Sprintf("model comparison undefined: %s", e.Reason)
}

// InvalidRateConstantError reports a rate constant with no finite
// half-life.
type InvalidRateConstantError struct {
	K float64
}

func (e *InvalidRateConstantError) Error() string {
	return fmt.Sprintf("invalid rate constant %v: half-life undefined", e.K)
}
