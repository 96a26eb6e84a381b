package gokincore

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/stat/distuv"
	"math"
)

// DefaultAlpha is the fixed significance threshold of the model
// comparison. CompareOptions.Alpha exists for tests, not as a user
// knob.
const DefaultAlpha = 0.05

// CompareOptions controls one exp1 vs exp2 comparison. Empty init
// vectors fall back to data-derived starting values, a zero Alpha to
// DefaultAlpha.
type CompareOptions struct {
	InitExp1     []float64
	InitExp2     []float64
	Bounds       Bounds
	Method       string
	Ftol         float64
	MaxFuncEvals int
	Alpha        float64
}

// ComparisonResult carries the winning model of a comparison plus both
// candidate fits and the F-test p-value for diagnostics.
type ComparisonResult struct {
	Kind   ModelKind
	Best   *FitResult
	PValue float64
	Exp1   *FitResult
	Exp2   *FitResult
}

// CompareExponentialModels fits exp1 and exp2 independently, then runs
// an ANOVA F-test on the regression sums of squares to decide whether
// the extra parameters of exp2 are statistically justified; p < alpha
// picks exp2. A candidate whose fit diverges degrades to a rank-0
// placeholder and the comparison continues with the survivor. Both
// diverging is a NoViableModelError.
func CompareExponentialModels(x, y []float64, opts CompareOptions) (*ComparisonResult, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("compare: x and y must have equal non-zero length, got %d and %d", len(x), len(y))
	}
	alpha := opts.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	m1, m2 := models[Exp1], models[Exp2]
	if len(x)-m2.NumParams() <= 0 {
		return nil, &ComparisonUndefinedError{
			Reason: fmt.Sprintf("%d points leave no residual degrees of freedom for %s", len(x), Exp2),
		}
	}

	res1, err1 := fitCandidate(x, y, m1, opts.InitExp1, opts)
	if err1 != nil {
		return nil, err1
	}
	res2, err2 := fitCandidate(x, y, m2, opts.InitExp2, opts)
	if err2 != nil {
		return nil, err2
	}
	if res1.Status == FAILED && res2.Status == FAILED {
		return nil, &NoViableModelError{Exp1Err: res1.failure, Exp2Err: res2.failure}
	}

	var pValue float64
	switch {
	case res1.Status == FAILED:
		pValue = 0
	case res2.Status == FAILED:
		pValue = 1
	default:
		p, err := fTestPValue(y, res1, res2)
		if err != nil {
			return nil, err
		}
		pValue = p
	}

	out := &ComparisonResult{PValue: pValue, Exp1: res1, Exp2: res2}
	if pValue < alpha {
		out.Kind, out.Best = Exp2, res2
	} else {
		out.Kind, out.Best = Exp1, res1
	}
	return out, nil
}

// fitCandidate runs one candidate fit, degrading a diverged fit to the
// rank-0 placeholder. Any other fit error aborts the comparison.
func fitCandidate(x, y []float64, m *Model, init []float64, opts CompareOptions) (*FitResult, error) {
	res, err := Fit(x, y, m, FitOptions{
		InitParams:   init,
		Bounds:       opts.Bounds,
		Method:       opts.Method,
		Ftol:         opts.Ftol,
		MaxFuncEvals: opts.MaxFuncEvals,
	})
	if err != nil {
		var div *FitDivergedError
		if !errors.As(err, &div) {
			return nil, err
		}
		return rankZero(m, err), nil
	}
	return res, nil
}

// rankZero marks a candidate unusable: zero parameters, infinite
// standard errors, R-square 0 and no curve rank it below any
// successful fit.
func rankZero(m *Model, cause error) *FitResult {
	p := m.NumParams()
	errs := make([]float64, p)
	for i := range errs {
		errs[i] = math.Inf(1)
	}
	return &FitResult{
		Kind:    m.Kind,
		Params:  make([]float64, p),
		StdErrs: errs,
		Status:  FAILED,
		failure: cause,
	}
}

// fTestPValue runs the nested-model ANOVA: the variance ratio compares
// the extra regression sum of squares of exp2 against its residual
// mean square. Numerator degrees of freedom is the parameter-count
// difference of the nested pair, denominator the residual degrees of
// freedom of exp2.
func fTestPValue(y []float64, res1, res2 *FitResult) (float64, error) {
	n := len(y)
	p1, p2 := len(res1.Params), len(res2.Params)
	dfNum := p2 - p1
	dfDen := n - p2
	if dfNum <= 0 || dfDen <= 0 {
		return 0, &ComparisonUndefinedError{
			Reason: fmt.Sprintf("degenerate degrees of freedom %d/%d", dfNum, dfDen),
		}
	}
	syy := totalSumSquares(y)
	residMS2 := res2.RSS / float64(dfDen)
	if residMS2 == 0 {
		return 0, &ComparisonUndefinedError{Reason: "zero residual mean square for exp2"}
	}
	regSS1 := syy - res1.RSS
	regSS2 := syy - res2.RSS
	vr := (regSS2 - regSS1) / residMS2

	fDist := distuv.F{D1: float64(dfNum), D2: float64(dfDen)}
	return 1 - fDist.CDF(vr), nil
}
