package processing

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kacperjurak/gokincore"
	"github.com/kacperjurak/gokincore/pkg/config"
	"github.com/kacperjurak/gokincore/pkg/models"
)

// KineticsProcessor fits decay models to absorbance series
type KineticsProcessor struct {
	cfg *config.Config
	fit config.FitConfig
}

// NewKineticsProcessor creates a processor. Runtime settings on cfg
// (Model, Method, TimeUnit, InitValues) override the fit section.
func NewKineticsProcessor(cfg *config.Config, fit config.FitConfig) *KineticsProcessor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &KineticsProcessor{cfg: cfg, fit: fit}
}

// Process fits one kinetic series and derives half-lives and a report.
// An empty model falls back to the configured default; "auto" runs the
// first-order versus second-order exponential comparison.
func (p *KineticsProcessor) Process(times, values []float64, label, model string) (models.Outcome, error) {
	if len(times) == 0 {
		return failedOutcome(model), fmt.Errorf("no time data provided")
	}
	if len(values) == 0 {
		return failedOutcome(model), fmt.Errorf("no absorbance data provided")
	}
	if len(times) != len(values) {
		return failedOutcome(model), fmt.Errorf("time and absorbance data length mismatch: %d vs %d",
			len(times), len(values))
	}

	kind := strings.ToLower(model)
	if kind == "" {
		kind = strings.ToLower(p.cfg.Model)
	}
	if kind == "" {
		kind = strings.ToLower(p.fit.Model)
	}
	if kind == "" {
		kind = "auto"
	}
	unit := p.timeUnit()

	if !p.cfg.Quiet {
		minAbs, _ := stats.Min(values)
		maxAbs, _ := stats.Max(values)
		meanAbs, _ := stats.Mean(values)
		log.Printf("Fitting %d points - Model: %s, Method: %s", len(times), kind, p.method())
		log.Printf("Absorbance range [%.4f, %.4f], mean %.4f", minAbs, maxAbs, meanAbs)
	}

	startTime := time.Now()

	var (
		res    *gokincore.FitResult
		report string
		pValue float64
		auto   bool
	)
	if kind == "auto" {
		auto = true
		cmp, err := gokincore.CompareExponentialModels(times, values, p.compareOptions())
		if err != nil {
			log.Printf("Model comparison FAILED: %v", err)
			return failedOutcome(kind), err
		}
		for _, cand := range []*gokincore.FitResult{cmp.Exp1, cmp.Exp2} {
			if cand != nil && cand.Status != gokincore.OK {
				log.Printf("Candidate %s did not converge: %v", cand.Kind, cand.Failure())
			}
		}
		log.Printf("Model comparison completed - Best: %s, p-value: %.5f", cmp.Kind, cmp.PValue)

		res = cmp.Best
		pValue = cmp.PValue
		report = p.formatComparison(label, cmp, unit)
	} else {
		m, err := gokincore.LookupModel(gokincore.ModelKind(kind))
		if err != nil {
			return failedOutcome(kind), err
		}
		res, err = gokincore.Fit(times, values, m, p.fitOptions(m))
		if err != nil {
			log.Printf("Fitting %s FAILED: %v", kind, err)
			return failedOutcome(kind), err
		}
		report = p.formatReport(label, res, unit)
	}

	duration := time.Since(startTime)

	for _, w := range res.Warnings {
		log.Printf("Fit warning [%s]: %s", w.Code, w.Message)
	}
	if !p.cfg.Quiet {
		log.Printf("Model: %s, R-square=%.5f, Params=%v, Status=%s",
			res.Kind, res.RSquared, res.Params, res.Status)
	}
	log.Printf("Processing time: %v", duration)

	return models.Outcome{
		Model:      string(res.Kind),
		AutoSelect: auto,
		PValue:     pValue,
		Fit:        res,
		HalfLives:  p.halfLives(res, unit),
		Report:     report,
		Status:     res.Status,
	}, nil
}

// ProcessorFunc adapts the processor to the worker pool signature
func (p *KineticsProcessor) ProcessorFunc() func(times, values []float64, label, model string) interface{} {
	return func(times, values []float64, label, model string) interface{} {
		outcome, err := p.Process(times, values, label, model)
		if err != nil {
			log.Printf("Kinetics processing error: %v", err)
		}
		return outcome
	}
}

func (p *KineticsProcessor) method() string {
	if p.cfg.Method != "" {
		return p.cfg.Method
	}
	if p.fit.Method != "" {
		return p.fit.Method
	}
	return gokincore.MethodLM
}

func (p *KineticsProcessor) timeUnit() gokincore.TimeUnit {
	s := p.cfg.TimeUnit
	if s == "" {
		s = p.fit.TimeUnit
	}
	if s == "" {
		return gokincore.Minute
	}
	u := gokincore.TimeUnit(strings.ToLower(s))
	if _, err := u.Seconds(); err != nil {
		log.Printf("Unknown time unit %q, using minutes", s)
		return gokincore.Minute
	}
	return u
}

func (p *KineticsProcessor) bounds() gokincore.Bounds {
	return gokincore.Bounds{Lower: p.fit.LowerBounds, Upper: p.fit.UpperBounds}
}

// initFor picks start values for a model: runtime InitValues first,
// then the config map, then nil for data-derived defaults. Values of
// the wrong length are ignored so one -v set cannot break the other
// candidate of a comparison.
func (p *KineticsProcessor) initFor(m *gokincore.Model) []float64 {
	if len(p.cfg.InitValues) > 0 {
		if len(p.cfg.InitValues) == m.NumParams() {
			return []float64(p.cfg.InitValues)
		}
		log.Printf("Ignoring %d init values for %s (%d parameters)",
			len(p.cfg.InitValues), m.Kind, m.NumParams())
	}
	if init, ok := p.fit.InitParams[string(m.Kind)]; ok {
		if len(init) == m.NumParams() {
			return init
		}
		log.Printf("Ignoring configured init values for %s: got %d, want %d",
			m.Kind, len(init), m.NumParams())
	}
	return nil
}

func (p *KineticsProcessor) fitOptions(m *gokincore.Model) gokincore.FitOptions {
	return gokincore.FitOptions{
		InitParams:   p.initFor(m),
		Bounds:       p.bounds(),
		Method:       p.method(),
		Ftol:         p.fit.Ftol,
		MaxFuncEvals: p.fit.MaxFuncEvals,
	}
}

func (p *KineticsProcessor) compareOptions() gokincore.CompareOptions {
	m1, _ := gokincore.LookupModel(gokincore.Exp1)
	m2, _ := gokincore.LookupModel(gokincore.Exp2)
	return gokincore.CompareOptions{
		InitExp1:     p.initFor(m1),
		InitExp2:     p.initFor(m2),
		Bounds:       p.bounds(),
		Method:       p.method(),
		Ftol:         p.fit.Ftol,
		MaxFuncEvals: p.fit.MaxFuncEvals,
	}
}

func (p *KineticsProcessor) halfLives(res *gokincore.FitResult, unit gokincore.TimeUnit) []models.HalfLife {
	m, err := gokincore.LookupModel(res.Kind)
	if err != nil || res.Status != gokincore.OK {
		return nil
	}
	var hls []models.HalfLife
	for _, idx := range m.RateIndices {
		k := res.Params[idx]
		t, err := gokincore.HalfLife(k, unit)
		if err != nil {
			log.Printf("Half-life undefined for %s=%v: %v", m.ParamNames[idx], k, err)
			t = math.Inf(1)
		}
		hls = append(hls, models.HalfLife{Param: m.ParamNames[idx], Seconds: t})
	}
	return hls
}

func (p *KineticsProcessor) formatReport(label string, res *gokincore.FitResult, unit gokincore.TimeUnit) string {
	report, err := gokincore.FormatReport(label, res, unit)
	if err != nil {
		log.Printf("Report formatting failed: %v", err)
		return ""
	}
	return report
}

func (p *KineticsProcessor) formatComparison(label string, cmp *gokincore.ComparisonResult, unit gokincore.TimeUnit) string {
	report, err := gokincore.FormatComparisonReport(label, cmp, unit)
	if err != nil {
		log.Printf("Report formatting failed: %v", err)
		return ""
	}
	return report
}

func failedOutcome(model string) models.Outcome {
	return models.Outcome{
		Model:  strings.ToLower(model),
		Status: gokincore.FAILED,
	}
}
