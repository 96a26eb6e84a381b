package gokincore

import (
	"math"
	"math/rand"
	"sort"
	"strings"
)

type ModelKind string

const (
	Linear ModelKind = "linear"
	Exp1   ModelKind = "exp1"
	Exp2   ModelKind = "exp2"
)

// Model is one entry of the closed set of fittable functional forms.
// RateIndices points at the decay-rate positions inside the parameter
// vector, in the order half-lives are reported.
type Model struct {
	Kind        ModelKind
	Equation    string
	ParamNames  []string
	RateIndices []int
	Eval        func(x float64, params []float64) float64
}

func (m *Model) NumParams() int {
	return len(m.ParamNames)
}

// Curve evaluates the model over xs.
func (m *Model) Curve(xs []float64, params []float64) [][2]float64 {
	curve := make([][2]float64, len(xs))
	for i, x := range xs {
		curve[i] = [2]float64{x, m.Eval(x, params)}
	}
	return curve
}

var models = map[ModelKind]*Model{
	Linear: {
		Kind:       Linear,
		Equation:   "y = a * x + b",
		ParamNames: []string{"a", "b"},
		Eval: func(x float64, p []float64) float64 {
			return p[0]*x + p[1]
		},
	},
	Exp1: {
		Kind:        Exp1,
		Equation:    "y = a * exp(k * x) + b",
		ParamNames:  []string{"a", "k", "b"},
		RateIndices: []int{1},
		Eval: func(x float64, p []float64) float64 {
			return p[0]*math.Exp(p[1]*x) + p[2]
		},
	},
	Exp2: {
		Kind:        Exp2,
		Equation:    "y = a1 * exp(k1 * x) + a2 * exp(k2 * x)",
		ParamNames:  []string{"a1", "a2", "k1", "k2"},
		RateIndices: []int{2, 3},
		Eval: func(x float64, p []float64) float64 {
			return p[0]*math.Exp(p[2]*x) + p[1]*math.Exp(p[3]*x)
		},
	},
}

// LookupModel resolves a model kind, case-insensitively.
func LookupModel(kind ModelKind) (*Model, error) {
	m, ok := models[ModelKind(strings.ToLower(string(kind)))]
	if !ok {
		return nil, &UnknownModelError{Kind: kind}
	}
	return m, nil
}

// ModelKinds lists the registered kinds in stable order.
func ModelKinds() []string {
	kinds := make([]string, 0, len(models))
	for k := range models {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultInitParams derives starting values from the sample when the
// caller supplies none. Deterministic: everything comes from the data.
func DefaultInitParams(m *Model, x, y []float64) []float64 {
	n := len(x)
	if n < 2 {
		return make([]float64, m.NumParams())
	}
	switch m.Kind {
	case Linear:
		a := 0.0
		if span := x[n-1] - x[0]; span != 0 {
			a = (y[n-1] - y[0]) / span
		}
		return []float64{a, y[0] - a*x[0]}
	case Exp1:
		b := y[n-1]
		return []float64{y[0] - b, decayRate(x, y, b), b}
	case Exp2:
		k := decayRate(x, y, 0)
		a := y[0] / 2
		return []float64{a, a, 2 * k, k / 2}
	}
	return make([]float64, m.NumParams())
}

// decayRate estimates a rate constant from the half-way point of the
// sample, falling back to -1 when the data gives no usable ratio.
func decayRate(x, y []float64, b float64) float64 {
	mid := len(x) / 2
	num, den := y[mid]-b, y[0]-b
	if den == 0 || x[mid] == x[0] {
		return -1
	}
	r := num / den
	if r <= 0 {
		return -1
	}
	k := math.Log(r) / (x[mid] - x[0])
	if k == 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return -1
	}
	return k
}

// NoisyCurve samples the model on xs and perturbs every point by a
// uniform relative noise. The seed makes runs reproducible.
func NoisyCurve(m *Model, xs, params []float64, noiseLevel float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	ys := make([]float64, len(xs))
	for i, x := range xs {
		v := m.Eval(x, params)
		maxNoise := math.Abs(v) * noiseLevel
		ys[i] = v - maxNoise + rng.Float64()*2*maxNoise
	}
	return ys
}
