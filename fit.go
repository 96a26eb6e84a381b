package gokincore

import (
	"errors"
	"fmt"
	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"math"
)

// Fit methods.
const (
	MethodLM         = "lm"
	MethodNelderMead = "nelder-mead"
)

// Fit status labels.
const (
	OK     = "OK"
	FAILED = "FAILED"
)

const (
	// DefaultFtol is the relative tolerance on the objective.
	DefaultFtol = 1e-8
	// DefaultMaxFuncEvals bounds the work of a single fit.
	DefaultMaxFuncEvals = 1600
	// CurvePoints is the density of the resampled fitted curve.
	CurvePoints = 10000
)

// Warning codes attached to FitResult.Warnings.
const (
	WarnIllConditioned = "ill-conditioned-covariance"
)

var errEvalBudget = errors.New("function evaluation budget exhausted")

// FitWarning is one numeric diagnostic captured during a fit. Warnings
// belong to the result of the call that produced them, never to any
// shared state, so concurrent fits stay isolated.
type FitWarning struct {
	Code    string
	Message string
}

// FitOptions controls a single fit. The zero value asks for an
// unconstrained Levenberg-Marquardt fit with data-derived initial
// parameters and default tolerances.
type FitOptions struct {
	InitParams   []float64
	Bounds       Bounds
	Method       string
	Ftol         float64
	MaxFuncEvals int
}

// FitResult is the outcome of one fit attempt. A failed candidate
// inside a comparison is represented as a rank-0 placeholder: zero
// parameters, infinite standard errors, R-square 0, no curve and
// Status FAILED.
type FitResult struct {
	Kind     ModelKind
	Params   []float64
	StdErrs  []float64
	RSquared float64
	RSS      float64
	Curve    [][2]float64
	FuncEval int
	Status   string
	Warnings []FitWarning

	// failure holds the divergence behind a rank-0 placeholder.
	failure error
}

// Failure returns the error behind a rank-0 placeholder, nil for a
// successful fit.
func (r *FitResult) Failure() error {
	return r.failure
}

// Fit runs a bounded nonlinear least-squares fit of model to (x, y).
// With infinite bounds the minimization is plainly unconstrained;
// finite bounds are honored through a sine transform of the parameter
// space, so the inner optimizer never sees the box. Identical inputs
// give identical results.
func Fit(x, y []float64, model *Model, opts FitOptions) (*FitResult, error) {
	if model == nil {
		return nil, fmt.Errorf("fit: nil model")
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("fit: x and y must have equal non-zero length, got %d and %d", len(x), len(y))
	}
	p := model.NumParams()
	if len(x) < p+1 {
		return nil, fmt.Errorf("fit: %s needs at least %d points, got %d", model.Kind, p+1, len(x))
	}
	init := opts.InitParams
	derived := len(init) == 0
	if derived {
		init = DefaultInitParams(model, x, y)
	}
	if len(init) != p {
		return nil, fmt.Errorf("fit: %s wants %d initial parameters, got %d", model.Kind, p, len(init))
	}
	lo, hi, err := opts.Bounds.expand(p)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	trans := newParamTransform(lo, hi)
	if derived {
		init = trans.clamp(init)
	} else if !trans.contains(init) {
		return nil, fmt.Errorf("fit: initial parameters %v outside bounds", init)
	}

	f := &fitter{
		x:      x,
		y:      y,
		model:  model,
		trans:  trans,
		u0:     trans.internal(init),
		ftol:   opts.Ftol,
		budget: opts.MaxFuncEvals,
	}
	if f.ftol <= 0 {
		f.ftol = DefaultFtol
	}
	if f.budget <= 0 {
		f.budget = DefaultMaxFuncEvals
	}

	switch opts.Method {
	case "", MethodLM:
		return f.lmFit()
	case MethodNelderMead:
		return f.nmFit()
	}
	return nil, fmt.Errorf("fit: unknown method %q", opts.Method)
}

type fitter struct {
	x, y     []float64
	model    *Model
	trans    *paramTransform
	u0       []float64
	ftol     float64
	budget   int
	evals    int
	warnings []FitWarning
}

// residuals writes f(x_i; theta) - y_i into dst. The signature matches
// what fd.Jacobian wants.
func (f *fitter) residuals(dst, theta []float64) {
	for i, xv := range f.x {
		dst[i] = f.model.Eval(xv, theta) - f.y[i]
	}
}

func (f *fitter) rss(theta []float64) float64 {
	sum := 0.0
	for i, xv := range f.x {
		d := f.model.Eval(xv, theta) - f.y[i]
		sum += d * d
	}
	return sum
}

func (f *fitter) lmFit() (res *FitResult, err error) {
	fnc := func(dst, u []float64) {
		f.evals++
		if f.evals > f.budget {
			panic(errEvalBudget)
		}
		f.residuals(dst, f.trans.external(u))
	}
	jac := lm.NumJac{Func: fnc}

	problem := lm.LMProblem{
		Dim:        f.model.NumParams(),
		Size:       len(f.x),
		Func:       fnc,
		Jac:        jac.Jac,
		InitParams: f.u0,
		Tau:        1e-13,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// The lm package panics on singular internal matrices and on the
	// budget sentinel above; both mean the fit diverged.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = f.recovered(r)
		}
	}()

	lmRes, lmErr := lm.LM(problem, &lm.Settings{Iterations: f.budget, ObjectiveTol: f.ftol})
	if lmErr != nil {
		return nil, f.diverged("optimizer failed", lmErr)
	}
	return f.finish(f.trans.external(lmRes.X), f.evals)
}

func (f *fitter) nmFit() (*FitResult, error) {
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			return f.rss(f.trans.external(u))
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   f.ftol,
			Iterations: 50,
		},
		FuncEvaluations: f.budget,
	}

	optRes, err := optimize.Minimize(problem, f.u0, settings, &optimize.NelderMead{})
	if optRes != nil {
		switch optRes.Status {
		case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
			return nil, f.diverged("function evaluation budget exhausted", nil)
		}
	}
	if err != nil {
		return nil, f.diverged("optimizer failed", err)
	}
	return f.finish(f.trans.external(optRes.X), optRes.FuncEvaluations)
}

// finish evaluates everything the caller gets out of a converged
// minimization: covariance-based standard errors, adjusted R-square
// and the dense fitted curve.
func (f *fitter) finish(theta []float64, funcEvals int) (*FitResult, error) {
	for _, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, f.diverged("non-finite parameters at optimum", nil)
		}
	}
	n, p := len(f.x), len(theta)
	rss := f.rss(theta)
	if math.IsNaN(rss) || math.IsInf(rss, 0) {
		return nil, f.diverged("non-finite residuals at optimum", nil)
	}
	stdErrs, err := f.stdErrs(theta, rss)
	if err != nil {
		return nil, err
	}

	nf, pf := float64(n), float64(p)
	tss := totalSumSquares(f.y)
	rsq := 1 - (rss/(nf-pf))/(tss/(nf-1))

	return &FitResult{
		Kind:     f.model.Kind,
		Params:   theta,
		StdErrs:  stdErrs,
		RSquared: rsq,
		RSS:      rss,
		Curve:    f.model.Curve(denseGrid(f.x), theta),
		FuncEval: funcEvals,
		Status:   OK,
		Warnings: f.warnings,
	}, nil
}

// stdErrs estimates the parameter covariance from the Jacobian at the
// optimum and the residual variance. The Jacobian is taken in the
// original parameter space, not the transformed one, so bounds do not
// distort the errors.
func (f *fitter) stdErrs(theta []float64, rss float64) ([]float64, error) {
	n, p := len(f.x), len(theta)
	jac := mat.NewDense(n, p, nil)
	fd.Jacobian(jac, f.residuals, theta, &fd.JacobianSettings{Formula: fd.Central})

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	var cov mat.Dense
	if invErr := cov.Inverse(&jtj); invErr != nil {
		var cond mat.Condition
		if !errors.As(invErr, &cond) {
			return nil, f.diverged("covariance inversion failed", invErr)
		}
		f.warn(WarnIllConditioned, fmt.Sprintf("ill-conditioned covariance matrix: %v", invErr))
	}

	s2 := rss / float64(n-p)
	errs := make([]float64, p)
	for i := range errs {
		v := cov.At(i, i) * s2
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, f.diverged("covariance matrix singular or not finite", nil)
		}
		errs[i] = math.Sqrt(v)
	}
	return errs, nil
}

func (f *fitter) warn(code, message string) {
	f.warnings = append(f.warnings, FitWarning{Code: code, Message: message})
}

func (f *fitter) diverged(reason string, err error) error {
	return &FitDivergedError{Kind: f.model.Kind, Reason: reason, Err: err}
}

func (f *fitter) recovered(r interface{}) error {
	if e, ok := r.(error); ok && errors.Is(e, errEvalBudget) {
		return f.diverged("function evaluation budget exhausted", nil)
	}
	return f.diverged(fmt.Sprintf("optimizer panic: %v", r), nil)
}

// denseGrid resamples [min(x), max(x)] evenly so the fitted curve is
// smooth no matter how sparse the observed grid was.
func denseGrid(x []float64) []float64 {
	grid := make([]float64, CurvePoints)
	floats.Span(grid, floats.Min(x), floats.Max(x))
	return grid
}

func totalSumSquares(y []float64) float64 {
	mean := stat.Mean(y, nil)
	sum := 0.0
	for _, v := range y {
		d := v - mean
		sum += d * d
	}
	return sum
}
