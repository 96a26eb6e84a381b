package processing

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// SpectrumSummary describes one absorbance spectrum
type SpectrumSummary struct {
	Label          string
	Points         int
	MinAbs         float64
	MaxAbs         float64
	MeanAbs        float64
	MedianAbs      float64
	PeakWavelength float64
	PeakAbs        float64
}

// FilterWavelengths keeps samples with wavelength strictly above min.
// Instrument exports carry UV noise below the usable range.
func FilterWavelengths(wavelengths, values []float64, min float64) ([]float64, []float64) {
	outW := make([]float64, 0, len(wavelengths))
	outV := make([]float64, 0, len(values))
	for i, w := range wavelengths {
		if i < len(values) && w > min {
			outW = append(outW, w)
			outV = append(outV, values[i])
		}
	}
	return outW, outV
}

// SpectrumProcessor summarizes absorbance spectra
type SpectrumProcessor struct{}

// NewSpectrumProcessor creates a new spectrum processor
func NewSpectrumProcessor() *SpectrumProcessor {
	return &SpectrumProcessor{}
}

// Process computes descriptive statistics and the absorbance peak for
// one spectrum
func (p *SpectrumProcessor) Process(wavelengths, values []float64, label string) (SpectrumSummary, error) {
	if len(wavelengths) == 0 {
		return SpectrumSummary{}, fmt.Errorf("no wavelength data provided")
	}
	if len(wavelengths) != len(values) {
		return SpectrumSummary{}, fmt.Errorf("wavelength and absorbance data length mismatch: %d vs %d",
			len(wavelengths), len(values))
	}

	startTime := time.Now()

	minAbs, err := stats.Min(values)
	if err != nil {
		return SpectrumSummary{}, fmt.Errorf("spectrum statistics: %w", err)
	}
	maxAbs, err := stats.Max(values)
	if err != nil {
		return SpectrumSummary{}, fmt.Errorf("spectrum statistics: %w", err)
	}
	meanAbs, err := stats.Mean(values)
	if err != nil {
		return SpectrumSummary{}, fmt.Errorf("spectrum statistics: %w", err)
	}
	medianAbs, err := stats.Median(values)
	if err != nil {
		return SpectrumSummary{}, fmt.Errorf("spectrum statistics: %w", err)
	}

	peak := 0
	for i, v := range values {
		if v > values[peak] {
			peak = i
		}
	}

	log.Printf("Spectrum processed: %d points in %v", len(wavelengths), time.Since(startTime))

	return SpectrumSummary{
		Label:          label,
		Points:         len(wavelengths),
		MinAbs:         minAbs,
		MaxAbs:         maxAbs,
		MeanAbs:        meanAbs,
		MedianAbs:      medianAbs,
		PeakWavelength: wavelengths[peak],
		PeakAbs:        values[peak],
	}, nil
}

// FormatSummary renders the text block for one spectrum
func FormatSummary(s SpectrumSummary) string {
	var b strings.Builder
	if s.Label != "" {
		fmt.Fprintln(&b, s.Label)
	}
	fmt.Fprintln(&b, strings.Repeat("-", 30))
	fmt.Fprintf(&b, "%-12s%10d\n", "Points", s.Points)
	fmt.Fprintf(&b, "%-12s%10.4f\n", "Abs min", s.MinAbs)
	fmt.Fprintf(&b, "%-12s%10.4f\n", "Abs max", s.MaxAbs)
	fmt.Fprintf(&b, "%-12s%10.4f\n", "Abs mean", s.MeanAbs)
	fmt.Fprintf(&b, "%-12s%10.4f\n", "Abs median", s.MedianAbs)
	fmt.Fprintf(&b, "%-12s%10.1f\n", "Peak (nm)", s.PeakWavelength)
	fmt.Fprintf(&b, "%-12s%10.4f\n", "Peak Abs", s.PeakAbs)
	return b.String()
}
