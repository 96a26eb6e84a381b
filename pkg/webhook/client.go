package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kacperjurak/gokincore"
	"github.com/kacperjurak/gokincore/pkg/models"
)

// Client posts fit results to the plot renderer with pooled
// connections and marshal buffers
type Client struct {
	url        string
	quiet      bool
	httpClient *http.Client
	bufferPool sync.Pool
}

// NewClient creates a new plot renderer client
func NewClient(url string, quiet bool) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,

		// small JSON payloads, compression costs more than it saves
		DisableCompression: true,
	}

	return &Client{
		url:   url,
		quiet: quiet,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 1024))
			},
		},
	}
}

// SendPlot posts one fitted kinetic series
func (c *Client) SendPlot(item models.PlotItem, opts models.PlotOptions) error {
	fit := item.Outcome.Fit
	if fit == nil {
		return fmt.Errorf("no fit result to plot for %s", item.RequestID)
	}

	fitTimes := make([]float64, len(fit.Curve))
	fitValues := make([]float64, len(fit.Curve))
	for i, pt := range fit.Curve {
		fitTimes[i] = pt[0]
		fitValues[i] = pt[1]
	}

	equation := ""
	if m, err := gokincore.LookupModel(fit.Kind); err == nil {
		equation = m.Equation
	}

	payload := models.PlotPayload{
		ID:         item.RequestID,
		Time:       time.Now().Format(time.RFC3339Nano),
		Label:      item.Label,
		Model:      item.Outcome.Model,
		Equation:   equation,
		Parameters: sanitizeSlice(fit.Params),
		StdErrors:  sanitizeSlice(fit.StdErrs),
		RSquare:    sanitizeFloat(fit.RSquared),
		PValue:     sanitizeFloat(item.Outcome.PValue),
		HalfLives:  sanitizeHalfLives(item.Outcome.HalfLives),
		Times:      item.Times,
		Values:     item.Values,
		FitTimes:   fitTimes,
		FitValues:  fitValues,
		Components: Components(fit.Kind, fitTimes, fit.Params),
		Options:    opts,
	}

	if err := c.post(payload); err != nil {
		return err
	}
	if !c.quiet {
		log.Printf("Plot webhook sent - ID: %s, Model: %s, R-square: %.5f",
			item.RequestID, payload.Model, payload.RSquare)
	}
	return nil
}

// SendSpectrum posts one absorbance spectrum
func (c *Client) SendSpectrum(payload models.SpectrumPayload) error {
	payload.Time = time.Now().Format(time.RFC3339Nano)
	payload.PeakWavelength = sanitizeFloat(payload.PeakWavelength)
	payload.PeakValue = sanitizeFloat(payload.PeakValue)

	if err := c.post(payload); err != nil {
		return err
	}
	if !c.quiet {
		log.Printf("Spectrum webhook sent - ID: %s, Peak: %.1f nm",
			payload.ID, payload.PeakWavelength)
	}
	return nil
}

// post marshals the payload through a pooled buffer and delivers it
func (c *Client) post(payload interface{}) error {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return nil
}

// sanitizeFloat cleans float64 values for JSON compatibility
func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0.0
	}
	return value
}

func sanitizeSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = sanitizeFloat(v)
	}
	return out
}

func sanitizeHalfLives(hls []models.HalfLife) []models.HalfLife {
	out := make([]models.HalfLife, len(hls))
	for i, hl := range hls {
		out[i] = models.HalfLife{Param: hl.Param, Seconds: sanitizeFloat(hl.Seconds)}
	}
	return out
}
