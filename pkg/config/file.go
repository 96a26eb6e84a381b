package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlotConfig holds the parsing and presentation settings for one plot
// mode. UseCols selects the two data columns by index; XColumn and
// YColumn take precedence when the file carries a header row.
type PlotConfig struct {
	UseCols        []int     `yaml:"use_cols,flow"`
	FigureSize     []int     `yaml:"figure_size,flow"`
	XColumn        string    `yaml:"xcolumn"`
	YColumn        string    `yaml:"ycolumn"`
	XLabel         string    `yaml:"xlabel"`
	YLabel         string    `yaml:"ylabel"`
	XLimit         []float64 `yaml:"xlimit,flow"`
	YLimit         []float64 `yaml:"ylimit,flow"`
	SkipHeader     int       `yaml:"skip_header"`
	SkipFooter     int       `yaml:"skip_footer"`
	LegendLocation string    `yaml:"legend_location"`
	Title          string    `yaml:"title"`
	Model          bool      `yaml:"model"`
}

// FitConfig holds the curve fitting defaults. InitParams keys are
// model names; a model without an entry gets data-derived start values.
type FitConfig struct {
	Model        string               `yaml:"model"` // linear, exp1, exp2 or auto
	Method       string               `yaml:"method"`
	LowerBounds  []float64            `yaml:"lower_bounds,flow"`
	UpperBounds  []float64            `yaml:"upper_bounds,flow"`
	Ftol         float64              `yaml:"ftol"`
	MaxFuncEvals int                  `yaml:"max_fev"`
	TimeUnit     string               `yaml:"time_unit"`
	InitParams   map[string][]float64 `yaml:"init_params"`
}

// PlotSections groups the per-mode plot settings
type PlotSections struct {
	Kinetics PlotConfig `yaml:"kinetics"`
	Spectrum PlotConfig `yaml:"spectrum"`
}

// FileConfig is the on-disk YAML configuration layout
type FileConfig struct {
	Plot PlotSections `yaml:"plot"`
	Fit  FitConfig    `yaml:"fit"`
}

// DefaultFileConfig returns the stock configuration for the
// spectrophotometer export format the tool was written for.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Plot: PlotSections{
			Kinetics: PlotConfig{
				UseCols:        []int{0, 1},
				FigureSize:     []int{7, 5},
				XColumn:        "Time (min)",
				YColumn:        "Abs",
				XLabel:         "Time (min)",
				YLabel:         "Absorbance (A.U.)",
				XLimit:         []float64{-0.5, 7.5},
				YLimit:         []float64{0.2, 1.2},
				SkipHeader:     1,
				SkipFooter:     27,
				LegendLocation: "best",
				Model:          true,
			},
			Spectrum: PlotConfig{
				UseCols:        []int{0, 1},
				FigureSize:     []int{7, 5},
				XColumn:        "Wavelength (nm)",
				YColumn:        "Abs",
				XLabel:         "Wavelength (nm)",
				YLabel:         "Absorbance (A.U.)",
				XLimit:         []float64{300, 500},
				YLimit:         []float64{0.1, 1.2},
				SkipHeader:     1,
				SkipFooter:     37,
				LegendLocation: "best",
				Model:          false,
			},
		},
		Fit: FitConfig{
			Model:        "auto",
			Method:       "lm",
			LowerBounds:  []float64{-2},
			UpperBounds:  []float64{2},
			Ftol:         1e-6,
			MaxFuncEvals: 1600,
			TimeUnit:     "minute",
			InitParams: map[string][]float64{
				"exp1": {-1, -1, 1},
			},
		},
	}
}

// LoadFile reads a YAML configuration file. Missing keys keep their
// default values, so a partial file only overrides what it names.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves the configuration as YAML
func (c *FileConfig) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// Section returns the plot settings for the given mode
func (c *FileConfig) Section(mode string) (*PlotConfig, error) {
	switch mode {
	case "kinetics":
		return &c.Plot.Kinetics, nil
	case "spectrum":
		return &c.Plot.Spectrum, nil
	default:
		return nil, fmt.Errorf("unknown plot mode %q, valid modes are kinetics and spectrum", mode)
	}
}
