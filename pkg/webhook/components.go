package webhook

import (
	"log"
	"math"

	"github.com/kacperjurak/gokincore"
	"github.com/kacperjurak/gokincore/pkg/models"
)

// Components decomposes a fitted model into its additive terms
// evaluated on the fit grid, one curve per term. Single-term models
// have nothing to decompose and return nil.
func Components(kind gokincore.ModelKind, times, params []float64) []models.ComponentCurve {
	switch kind {
	case gokincore.Exp1:
		if len(params) != 3 {
			return nil
		}
		a, k, b := params[0], params[1], params[2]
		return []models.ComponentCurve{
			{Name: "a*exp(k*t)", Values: evalTerm(times, func(t float64) float64 { return a * math.Exp(k*t) })},
			{Name: "baseline", Values: evalTerm(times, func(t float64) float64 { return b })},
		}
	case gokincore.Exp2:
		if len(params) != 4 {
			return nil
		}
		a1, a2, k1, k2 := params[0], params[1], params[2], params[3]
		return []models.ComponentCurve{
			{Name: "a1*exp(k1*t)", Values: evalTerm(times, func(t float64) float64 { return a1 * math.Exp(k1*t) })},
			{Name: "a2*exp(k2*t)", Values: evalTerm(times, func(t float64) float64 { return a2 * math.Exp(k2*t) })},
		}
	}
	return nil
}

func evalTerm(times []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		v := f(t)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			log.Printf("Warning: non-finite component value at t=%.4f, setting to 0.0", t)
			v = 0.0
		}
		out[i] = v
	}
	return out
}
