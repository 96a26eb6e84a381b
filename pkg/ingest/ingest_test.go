package ingest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var kineticsLines = []string{
	"Sample: bleach run",
	"Time (min),Abs",
	"0.0,1.103",
	"0.5,0.913",
	"1.0,0.767",
	"1.5,0.651",
	"2.0,0.563",
	"",
	"Instrument: UV-2600",
	"Operator: mk",
	"Mode: kinetics",
}

func kineticsFile(sep string) []byte {
	return []byte(strings.Join(kineticsLines, sep) + sep)
}

func kineticsOptions() Options {
	return Options{
		UseCols:    []int{0, 1},
		XColumn:    "Time (min)",
		YColumn:    "Abs",
		SkipHeader: 1,
		SkipFooter: 3,
	}
}

func TestDetectLineSep(t *testing.T) {
	for _, sep := range []string{"\r\r\n", "\r\n", "\r", "\n"} {
		t.Run(strconv.Quote(sep), func(t *testing.T) {
			got, err := DetectLineSep(kineticsFile(sep))
			require.NoError(t, err)
			require.Equal(t, sep, got)
		})
	}

	t.Run("unidentifiable", func(t *testing.T) {
		_, err := DetectLineSep([]byte("0.0,1.103"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "could not identify line separator")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DetectLineSep(nil)
		require.Error(t, err)
	})
}

func TestNormalize(t *testing.T) {
	norm, err := Normalize([]byte("a,b\r\r\n1,2\r\r\n"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(norm))

	same, err := Normalize([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(same))
}

func TestParseSeries(t *testing.T) {
	wantX := []float64{0, 0.5, 1, 1.5, 2}
	wantY := []float64{1.103, 0.913, 0.767, 0.651, 0.563}

	for _, sep := range []string{"\r\r\n", "\r\n", "\r", "\n"} {
		t.Run(strconv.Quote(sep), func(t *testing.T) {
			s, err := ParseSeries(kineticsFile(sep), kineticsOptions())
			require.NoError(t, err)
			require.Equal(t, wantX, s.X)
			require.Equal(t, wantY, s.Y)
		})
	}
}

func TestParseSeriesBlankLineEndsData(t *testing.T) {
	// no footer skip configured, the blank line still protects the
	// parser from the metadata block
	opts := kineticsOptions()
	opts.SkipFooter = 0

	s, err := ParseSeries(kineticsFile("\n"), opts)
	require.NoError(t, err)
	require.Len(t, s.X, 5)
	require.Len(t, s.Y, 5)
}

func TestParseSeriesColumnSelection(t *testing.T) {
	t.Run("by name", func(t *testing.T) {
		content := []byte("Abs,Time (min)\n1.103,0.0\n0.913,0.5\n")
		s, err := ParseSeries(content, Options{XColumn: "Time (min)", YColumn: "Abs"})
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0.5}, s.X)
		require.Equal(t, []float64{1.103, 0.913}, s.Y)
	})

	t.Run("positional", func(t *testing.T) {
		content := []byte("t,ignored,abs\n0.0,9,1.103\n0.5,9,0.913\n")
		s, err := ParseSeries(content, Options{UseCols: []int{0, 2}})
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0.5}, s.X)
		require.Equal(t, []float64{1.103, 0.913}, s.Y)
	})

	t.Run("missing column", func(t *testing.T) {
		content := []byte("t,abs\n0.0,1.103\n")
		_, err := ParseSeries(content, Options{XColumn: "Time (min)"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found in header")
	})

	t.Run("same column twice", func(t *testing.T) {
		content := []byte("t,abs\n0.0,1.103\n")
		_, err := ParseSeries(content, Options{UseCols: []int{1, 1}})
		require.Error(t, err)
	})

	t.Run("wrong use_cols length", func(t *testing.T) {
		content := []byte("t,abs\n0.0,1.103\n")
		_, err := ParseSeries(content, Options{UseCols: []int{0}})
		require.Error(t, err)
	})
}

func TestParseSeriesBadValues(t *testing.T) {
	t.Run("not a number", func(t *testing.T) {
		content := []byte("t,abs\n0.0,oops\n")
		_, err := ParseSeries(content, Options{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "bad abs value")
	})

	t.Run("non-finite", func(t *testing.T) {
		content := []byte("t,abs\n0.0,NaN\n")
		_, err := ParseSeries(content, Options{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "non-finite")
	})

	t.Run("short row", func(t *testing.T) {
		content := []byte("t,ignored,abs\n0.0,9\n")
		_, err := ParseSeries(content, Options{UseCols: []int{0, 2}})
		require.Error(t, err)
	})
}

func TestParseSeriesTooShort(t *testing.T) {
	_, err := ParseSeries([]byte("only line\n"), kineticsOptions())
	require.Error(t, err)
	require.Contains(t, err.Error(), "file too short")
}

func TestReadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-1.csv")
	require.NoError(t, os.WriteFile(path, kineticsFile("\r\r\n"), 0644))

	s, err := ReadSeries(path, kineticsOptions())
	require.NoError(t, err)
	require.Equal(t, "run-1.csv", s.Label)
	require.Len(t, s.X, 5)

	_, err = ReadSeries(filepath.Join(t.TempDir(), "missing.csv"), kineticsOptions())
	require.Error(t, err)
}
