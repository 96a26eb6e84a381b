package models

import (
	"time"

	"github.com/kacperjurak/gokincore"
)

// KineticsData represents one incoming absorbance decay series
type KineticsData struct {
	Timestamp string    `json:"timestamp"`
	Label     string    `json:"label,omitempty"`
	Times     []float64 `json:"times"`
	Values    []float64 `json:"values"`
	Model     string    `json:"model,omitempty"` // linear, exp1, exp2 or auto
}

// BatchItem represents a single kinetic run with iteration number
type BatchItem struct {
	KineticsData KineticsData `json:"kinetics_data"`
	Iteration    int          `json:"iteration"`
}

// KineticsBatch represents a batch of kinetic runs
type KineticsBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Runs      []BatchItem `json:"runs"`
}

// HalfLife is one decay half-life derived from a fitted rate constant
type HalfLife struct {
	Param   string  `json:"param"`
	Seconds float64 `json:"seconds"`
}

// Outcome is the service-level result of fitting one kinetic series
type Outcome struct {
	Model      string
	AutoSelect bool
	PValue     float64
	Fit        *gokincore.FitResult
	HalfLives  []HalfLife
	Report     string
	Status     string
}

// WorkItem represents a single fitting task
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Iteration int
	Times     []float64
	Values    []float64
	Label     string
	Model     string // per-request model override, empty means configured default
	StartTime time.Time
}

// WorkResult contains the result of processing one work item
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Iteration      int
	Outcome        Outcome
	ProcessingTime time.Duration
	Success        bool
	Times          []float64
	Values         []float64
	Label          string
}

// PlotItem represents a queued plot rendering task
type PlotItem struct {
	RequestID string
	Label     string
	Outcome   Outcome
	Times     []float64
	Values    []float64
}

// ComponentCurve is one additive term of a fitted model evaluated on
// the dense fit grid
type ComponentCurve struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// PlotOptions carries presentation settings for the plot renderer
type PlotOptions struct {
	Title          string    `json:"title,omitempty"`
	XLabel         string    `json:"xlabel,omitempty"`
	YLabel         string    `json:"ylabel,omitempty"`
	XLimit         []float64 `json:"xlimit,omitempty"`
	YLimit         []float64 `json:"ylimit,omitempty"`
	LegendLocation string    `json:"legend_location,omitempty"`
	FigureSize     []int     `json:"figure_size,omitempty"`
}

// PlotPayload is the JSON document posted to the plot renderer for a
// fitted kinetic series
type PlotPayload struct {
	ID         string           `json:"id"`
	Time       string           `json:"time"`
	Label      string           `json:"label,omitempty"`
	Model      string           `json:"model"`
	Equation   string           `json:"equation,omitempty"`
	Parameters []float64        `json:"parameters"`
	StdErrors  []float64        `json:"std_errors"`
	RSquare    float64          `json:"r_square"`
	PValue     float64          `json:"p_value"`
	HalfLives  []HalfLife       `json:"half_lives,omitempty"`
	Times      []float64        `json:"times"`
	Values     []float64        `json:"values"`
	FitTimes   []float64        `json:"fit_times"`
	FitValues  []float64        `json:"fit_values"`
	Components []ComponentCurve `json:"components,omitempty"`
	Options    PlotOptions      `json:"options"`
}

// SpectrumPayload is the JSON document posted to the plot renderer for
// an absorbance spectrum
type SpectrumPayload struct {
	ID             string      `json:"id"`
	Time           string      `json:"time"`
	Label          string      `json:"label,omitempty"`
	Wavelengths    []float64   `json:"wavelengths"`
	Values         []float64   `json:"values"`
	PeakWavelength float64     `json:"peak_wavelength"`
	PeakValue      float64     `json:"peak_value"`
	Options        PlotOptions `json:"options"`
}

// RunTiming tracks performance metrics for one processed run
type RunTiming struct {
	Iteration      int           `json:"iteration"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	RSquare        float64       `json:"r_square"`
	Success        bool          `json:"success"`
	Model          string        `json:"model"`
}

// BufferSet contains reusable buffers to reduce allocations
type BufferSet struct {
	Times  []float64
	Values []float64
}
