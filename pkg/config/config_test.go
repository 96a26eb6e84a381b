package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayFlagsSet(t *testing.T) {
	var a ArrayFlags
	require.NoError(t, a.Set("-1"))
	require.NoError(t, a.Set("0.5"))
	require.Equal(t, ArrayFlags{-1, 0.5}, a)
	require.Error(t, a.Set("not-a-number"))
}

func TestStringFlagsSet(t *testing.T) {
	var s StringFlags
	require.NoError(t, s.Set("run-1.csv"))
	require.NoError(t, s.Set("run-2.csv"))
	require.Equal(t, StringFlags{"run-1.csv", "run-2.csv"}, s)
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig()

	require.Equal(t, "Time (min)", cfg.Plot.Kinetics.XColumn)
	require.Equal(t, "Abs", cfg.Plot.Kinetics.YColumn)
	require.Equal(t, 1, cfg.Plot.Kinetics.SkipHeader)
	require.Equal(t, 27, cfg.Plot.Kinetics.SkipFooter)
	require.True(t, cfg.Plot.Kinetics.Model)

	require.Equal(t, "Wavelength (nm)", cfg.Plot.Spectrum.XColumn)
	require.Equal(t, 37, cfg.Plot.Spectrum.SkipFooter)
	require.Equal(t, []float64{300, 500}, cfg.Plot.Spectrum.XLimit)

	require.Equal(t, "auto", cfg.Fit.Model)
	require.Equal(t, "lm", cfg.Fit.Method)
	require.Equal(t, []float64{-2}, cfg.Fit.LowerBounds)
	require.Equal(t, []float64{2}, cfg.Fit.UpperBounds)
	require.Equal(t, 1e-6, cfg.Fit.Ftol)
	require.Equal(t, 1600, cfg.Fit.MaxFuncEvals)
	require.Equal(t, "minute", cfg.Fit.TimeUnit)
	require.Equal(t, []float64{-1, -1, 1}, cfg.Fit.InitParams["exp1"])
}

func TestFileConfigRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	want := DefaultFileConfig()
	require.NoError(t, want.Write(path))

	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := `
plot:
  kinetics:
    skip_footer: 12
    title: Bleaching runs
fit:
  method: nelder-mead
  init_params:
    exp2: [1, 1, -0.5, -0.05]
`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, 12, cfg.Plot.Kinetics.SkipFooter)
	require.Equal(t, "Bleaching runs", cfg.Plot.Kinetics.Title)
	require.Equal(t, "nelder-mead", cfg.Fit.Method)

	// untouched keys keep their defaults
	require.Equal(t, "Time (min)", cfg.Plot.Kinetics.XColumn)
	require.Equal(t, 1, cfg.Plot.Kinetics.SkipHeader)
	require.Equal(t, "auto", cfg.Fit.Model)
	require.Equal(t, []float64{-1, -1, 1}, cfg.Fit.InitParams["exp1"])
	require.Equal(t, []float64{1, 1, -0.5, -0.05}, cfg.Fit.InitParams["exp2"])
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("plot: [broken"), 0644))
		_, err := LoadFile(path)
		require.Error(t, err)
		require.Contains(t, err.Error(), "parse config file")
	})
}

func TestSection(t *testing.T) {
	cfg := DefaultFileConfig()

	kin, err := cfg.Section("kinetics")
	require.NoError(t, err)
	require.Equal(t, "Time (min)", kin.XColumn)

	spec, err := cfg.Section("spectrum")
	require.NoError(t, err)
	require.Equal(t, "Wavelength (nm)", spec.XColumn)

	_, err = cfg.Section("histogram")
	require.Error(t, err)
}

func TestServerConfigApplyEnv(t *testing.T) {
	t.Setenv("KIN_PORT", "9090")
	t.Setenv("KIN_WORKER_COUNT", "8")
	t.Setenv("KIN_WEBHOOK_URL", "http://localhost:3001/webhook")

	cfg := DefaultServerConfig()
	cfg.ApplyEnv()

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 8, cfg.WorkerCount)
	require.Equal(t, "http://localhost:3001/webhook", cfg.WebhookURL)
	require.Equal(t, "6060", cfg.ProfilingPort)
}

func TestServerConfigApplyEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("KIN_WORKER_COUNT", "zero")

	cfg := DefaultServerConfig()
	cfg.ApplyEnv()
	require.Equal(t, 5, cfg.WorkerCount)
}
