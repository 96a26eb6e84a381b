package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Series is one x/y sample read from a measurement file
type Series struct {
	X     []float64
	Y     []float64
	Label string
}

// Options control how a measurement file is parsed. UseCols selects
// the two data columns by index; XColumn and YColumn override the
// indices when the named columns exist in the header row. SkipHeader
// lines are dropped before the header row, SkipFooter lines are
// dropped from the end of the file.
type Options struct {
	UseCols    []int
	XColumn    string
	YColumn    string
	SkipHeader int
	SkipFooter int
}

// DetectLineSep identifies the newline convention of a file from its
// first line. Recognized separators are \r\r\n, \r\n, \r and \n;
// spectrophotometer exports commonly use the double-carriage-return
// variant.
func DetectLineSep(data []byte) (string, error) {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i+1]
	}
	switch {
	case bytes.HasSuffix(line, []byte("\r\r\n")):
		return "\r\r\n", nil
	case bytes.HasSuffix(line, []byte("\r\n")):
		return "\r\n", nil
	case bytes.HasSuffix(line, []byte("\r")):
		return "\r", nil
	case bytes.HasSuffix(line, []byte("\n")):
		return "\n", nil
	}
	return "", fmt.Errorf("could not identify line separator")
}

// Normalize rewrites data using Unix newlines
func Normalize(data []byte) ([]byte, error) {
	sep, err := DetectLineSep(data)
	if err != nil {
		return nil, err
	}
	if sep == "\n" {
		return data, nil
	}
	return bytes.ReplaceAll(data, []byte(sep), []byte("\n")), nil
}

// ReadSeries reads one measurement file from disk. The label defaults
// to the file base name.
func ReadSeries(path string, opts Options) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := ParseSeries(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Label = filepath.Base(path)
	return s, nil
}

// ParseSeries extracts a two-column series from raw file content.
// Data rows run from the line after the header row up to the first
// blank line or the skip-footer cut, whichever comes first.
func ParseSeries(data []byte, opts Options) (*Series, error) {
	norm, err := Normalize(data)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(norm), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if opts.SkipHeader < 0 || opts.SkipFooter < 0 {
		return nil, fmt.Errorf("negative skip counts")
	}
	if len(lines) <= opts.SkipHeader+opts.SkipFooter+1 {
		return nil, fmt.Errorf("file too short: %d lines with %d header and %d footer lines to skip",
			len(lines), opts.SkipHeader, opts.SkipFooter)
	}
	lines = lines[opts.SkipHeader : len(lines)-opts.SkipFooter]

	header, err := splitRecord(lines[0])
	if err != nil {
		return nil, fmt.Errorf("parse header row: %w", err)
	}

	dataLines := lines[1:]
	for i, line := range dataLines {
		if strings.TrimSpace(line) == "" {
			dataLines = dataLines[:i]
			break
		}
	}
	if len(dataLines) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	xi, yi, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(strings.Join(dataLines, "\n")))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse data rows: %w", err)
	}

	s := &Series{
		X: make([]float64, 0, len(records)),
		Y: make([]float64, 0, len(records)),
	}
	for i, rec := range records {
		if xi >= len(rec) || yi >= len(rec) {
			return nil, fmt.Errorf("data row %d has %d columns, need column %d and %d",
				i+1, len(rec), xi, yi)
		}
		x, err := parseValue(rec[xi], i+1, columnName(header, xi))
		if err != nil {
			return nil, err
		}
		y, err := parseValue(rec[yi], i+1, columnName(header, yi))
		if err != nil {
			return nil, err
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
	}
	return s, nil
}

func columnName(header []string, i int) string {
	if i < len(header) {
		return strings.TrimSpace(header[i])
	}
	return fmt.Sprintf("column %d", i)
}

// resolveColumns picks the x and y column indices, preferring header
// names over positional indices when both are configured.
func resolveColumns(header []string, opts Options) (int, int, error) {
	xi, yi := 0, 1
	if len(opts.UseCols) == 2 {
		xi, yi = opts.UseCols[0], opts.UseCols[1]
	} else if len(opts.UseCols) != 0 {
		return 0, 0, fmt.Errorf("use_cols needs exactly two column indices, got %d", len(opts.UseCols))
	}
	if opts.XColumn != "" {
		i := columnIndex(header, opts.XColumn)
		if i < 0 {
			return 0, 0, fmt.Errorf("column %q not found in header %v", opts.XColumn, header)
		}
		xi = i
	}
	if opts.YColumn != "" {
		i := columnIndex(header, opts.YColumn)
		if i < 0 {
			return 0, 0, fmt.Errorf("column %q not found in header %v", opts.YColumn, header)
		}
		yi = i
	}
	if xi < 0 || yi < 0 {
		return 0, 0, fmt.Errorf("column indices must not be negative")
	}
	if xi == yi {
		return 0, 0, fmt.Errorf("x and y both resolve to column %d", xi)
	}
	return xi, yi, nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}

func parseValue(field string, row int, column string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("data row %d: bad %s value %q", row, column, field)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("data row %d: non-finite %s value %q", row, column, field)
	}
	return v, nil
}

func splitRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	return rec, nil
}
