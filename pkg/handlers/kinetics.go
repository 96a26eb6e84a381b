package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/kacperjurak/gokincore"
	"github.com/kacperjurak/gokincore/pkg/config"
	"github.com/kacperjurak/gokincore/pkg/models"
	"github.com/kacperjurak/gokincore/pkg/worker"
)

// KineticsHandler handles single kinetic series processing requests
type KineticsHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	processor  ProcessorFunc
}

// ProcessorFunc defines the signature for kinetic series processing
type ProcessorFunc func(times, values []float64, label, model string) interface{}

// NewKineticsHandler creates a new kinetics handler
func NewKineticsHandler(cfg *config.Config, pool *worker.Pool, processor ProcessorFunc) *KineticsHandler {
	return &KineticsHandler{
		config:     cfg,
		workerPool: pool,
		processor:  processor,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *KineticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setupCORS(w)

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var kineticsData models.KineticsData
	if err := json.NewDecoder(r.Body).Decode(&kineticsData); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if len(kineticsData.Times) == 0 {
		h.writeError(w, "No data points provided", http.StatusBadRequest)
		return
	}

	if len(kineticsData.Times) != len(kineticsData.Values) {
		h.writeError(w, "Time and absorbance lengths differ", http.StatusBadRequest)
		return
	}

	// Generate unique ID for this request
	requestID := uuid.NewString()

	// Process data asynchronously
	go h.processAsync(requestID, kineticsData)

	// Return immediate response
	response := map[string]interface{}{
		"success":    true,
		"request_id": requestID,
		"message":    "Processing started",
	}

	if !h.config.Quiet {
		log.Printf("HTTP Request received - ID: %s, Data points: %d", requestID, len(kineticsData.Times))
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// processAsync fits the series off the request goroutine and queues
// the plot delivery
func (h *KineticsHandler) processAsync(requestID string, kineticsData models.KineticsData) {
	result := h.processor(kineticsData.Times, kineticsData.Values, kineticsData.Label, kineticsData.Model)

	outcome, ok := result.(models.Outcome)
	if !ok {
		log.Printf("⚠️  Unexpected processor result for %s: %T", requestID, result)
		return
	}

	if outcome.Fit == nil || outcome.Status != gokincore.OK {
		log.Printf("⚠️  Skipping plot for %s, fit did not converge", requestID)
		return
	}

	h.workerPool.QueueWebhook(models.PlotItem{
		RequestID: requestID,
		Label:     kineticsData.Label,
		Outcome:   outcome,
		Times:     kineticsData.Times,
		Values:    kineticsData.Values,
	})
}

// setupCORS sets up CORS headers
func (h *KineticsHandler) setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// writeError writes an error response
func (h *KineticsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
