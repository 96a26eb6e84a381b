package gokincore

import (
	"errors"
	"fmt"
	"strings"
)

// FormatReport renders the text block for one fit: label, equation,
// the parameter table with standard errors, R-square and one half-life
// line per rate constant of the model. A zero rate constant renders an
// explicit inf instead of failing the whole report.
func FormatReport(label string, res *FitResult, unit TimeUnit) (string, error) {
	if res == nil {
		return "", fmt.Errorf("report: no fit result")
	}
	m, err := LookupModel(res.Kind)
	if err != nil {
		return "", err
	}
	if len(res.Params) != m.NumParams() || len(res.StdErrs) != m.NumParams() {
		return "", fmt.Errorf("report: %s wants %d parameters, got %d values and %d errors",
			m.Kind, m.NumParams(), len(res.Params), len(res.StdErrs))
	}

	var b strings.Builder
	if label != "" {
		fmt.Fprintln(&b, label)
	}
	fmt.Fprintln(&b, m.Equation)
	fmt.Fprintln(&b, strings.Repeat("-", 30))
	fmt.Fprintf(&b, "%-10s%10s%10s\n", "Parameter", "Value", "Std Err")
	fmt.Fprintln(&b, strings.Repeat("-", 30))
	for i, name := range m.ParamNames {
		fmt.Fprintf(&b, "%-10s%+10.4f%10.4f\n", name, res.Params[i], res.StdErrs[i])
	}
	fmt.Fprintf(&b, "%-10s%10.5f\n", "R-square", res.RSquared)

	for i, idx := range m.RateIndices {
		name := fmt.Sprintf("t%d (sec)", i+1)
		t, err := HalfLife(res.Params[idx], unit)
		if err != nil {
			var invalid *InvalidRateConstantError
			if !errors.As(err, &invalid) {
				return "", err
			}
			fmt.Fprintf(&b, "%-10s%10s\n", name, "inf")
			continue
		}
		fmt.Fprintf(&b, "%-10s%10.2f\n", name, t)
	}
	return b.String(), nil
}

// FormatComparisonReport renders the winning fit of a comparison with
// the F-test p-value appended.
func FormatComparisonReport(label string, cmp *ComparisonResult, unit TimeUnit) (string, error) {
	if cmp == nil || cmp.Best == nil {
		return "", fmt.Errorf("report: no comparison result")
	}
	report, err := FormatReport(label, cmp.Best, unit)
	if err != nil {
		return "", err
	}
	return report + fmt.Sprintf("%-10s%10.5f\n", "p-value", cmp.PValue), nil
}
