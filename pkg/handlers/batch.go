package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/kacperjurak/gokincore/pkg/config"
	"github.com/kacperjurak/gokincore/pkg/models"
	"github.com/kacperjurak/gokincore/pkg/worker"
)

// BatchHandler handles batch kinetic series processing requests
type BatchHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	processor  ProcessorFunc
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(cfg *config.Config, pool *worker.Pool, processor ProcessorFunc) *BatchHandler {
	return &BatchHandler{
		config:     cfg,
		workerPool: pool,
		processor:  processor,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setupCORS(w)

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch models.KineticsBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if len(batch.Runs) == 0 {
		h.writeError(w, "No runs provided in batch", http.StatusBadRequest)
		return
	}

	log.Printf("🔄 Batch processing started - ID: %s, Runs: %d", batch.BatchID, len(batch.Runs))

	// Process batch asynchronously
	go h.processBatchAsync(batch)

	// Return immediate response
	response := map[string]interface{}{
		"success":  true,
		"batch_id": batch.BatchID,
		"runs":     len(batch.Runs),
		"message":  "Batch processing started with worker pool",
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

// processBatchAsync handles asynchronous batch processing
func (h *BatchHandler) processBatchAsync(batch models.KineticsBatch) {
	batchStartTime := time.Now()
	runTimings := make([]models.RunTiming, len(batch.Runs))
	resultsReceived := 0

	// Submit all jobs to worker pool
	for _, item := range batch.Runs {
		job := h.createWorkItem(item, batch.BatchID)
		h.workerPool.SubmitJob(job)
	}

	// Collect results from worker pool
	for resultsReceived < len(batch.Runs) {
		if result, ok := h.workerPool.GetResult(); ok {
			h.processResult(result, runTimings)
			resultsReceived++
		} else {
			// No results available yet, small delay to prevent busy waiting
			time.Sleep(1 * time.Millisecond)
		}
	}

	// All results collected
	totalBatchTime := time.Since(batchStartTime)
	concurrency := h.getConcurrency()

	// Save timing results to file
	h.saveTimingResults(batch.BatchID, totalBatchTime, runTimings, concurrency)

	log.Printf("🎉 Batch processing completed - ID: %s, Total time: %v", batch.BatchID, totalBatchTime)
}

// createWorkItem converts a batch item to a work item
func (h *BatchHandler) createWorkItem(item models.BatchItem, batchID string) models.WorkItem {
	data := item.KineticsData

	for i, v := range data.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			log.Printf("WARNING: Invalid absorbance value at index %d: %v", i, v)
		}
	}

	return models.WorkItem{
		ID:        item.Iteration,
		RequestID: uuid.NewString(),
		BatchID:   batchID,
		Iteration: item.Iteration,
		Times:     data.Times,
		Values:    data.Values,
		Label:     data.Label,
		Model:     data.Model,
		StartTime: time.Now(),
	}
}

// processResult processes a work result and updates timing
func (h *BatchHandler) processResult(result models.WorkResult, runTimings []models.RunTiming) {
	if result.Iteration < 0 || result.Iteration >= len(runTimings) {
		log.Printf("ERROR: Result iteration %d out of range for batch of %d", result.Iteration, len(runTimings))
		return
	}

	rSquare := 0.0
	if result.Outcome.Fit != nil {
		rSquare = result.Outcome.Fit.RSquared
	}

	// Record timing
	runTimings[result.Iteration] = models.RunTiming{
		Iteration:      result.Iteration,
		ProcessingTime: result.ProcessingTime,
		RSquare:        rSquare,
		Success:        result.Success,
		Model:          result.Outcome.Model,
	}

	if !result.Success || result.Outcome.Fit == nil {
		log.Printf("⚠️  Run iteration %d failed, skipping plot", result.Iteration)
		return
	}

	h.workerPool.QueueWebhook(models.PlotItem{
		RequestID: fmt.Sprintf("%s_run_%03d", result.RequestID, result.Iteration),
		Label:     result.Label,
		Outcome:   result.Outcome,
		Times:     result.Times,
		Values:    result.Values,
	})

	if !h.config.Quiet {
		log.Printf("✅ Processed run iteration %d", result.Iteration)
	}
}

// getConcurrency returns the current concurrency level
func (h *BatchHandler) getConcurrency() int {
	concurrency := 5
	if h.config != nil && h.config.Threads > 0 {
		concurrency = int(h.config.Threads)
	}
	return concurrency
}

// saveTimingResults saves timing data to a CSV file for performance analysis
func (h *BatchHandler) saveTimingResults(batchID string, totalTime time.Duration, runTimings []models.RunTiming, concurrency int) {
	filename := "batch_timing_results.csv"

	// Check if file exists to decide on header
	var writeHeader bool
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		writeHeader = true
	}

	// Open file for append
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Error opening timing file: %v", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header if new file
	if writeHeader {
		header := []string{
			"Timestamp",
			"BatchID",
			"TotalRuns",
			"Concurrency",
			"TotalBatchTime_ms",
			"AvgRunTime_ms",
			"MinRunTime_ms",
			"MaxRunTime_ms",
			"SuccessRate",
			"AvgRSquare",
			"RunsPerSecond",
			"EfficiencyScore",
			"Model",
		}
		if err := writer.Write(header); err != nil {
			log.Printf("Error writing timing header: %v", err)
			return
		}
	}

	// Calculate statistics
	msTimes := make([]float64, len(runTimings))
	var successful int
	var totalRSq float64

	for i, timing := range runTimings {
		msTimes[i] = float64(timing.ProcessingTime.Nanoseconds()) / 1000000.0
		if timing.Success {
			successful++
			totalRSq += timing.RSquare
		}
	}

	avgRunTime, err := stats.Mean(msTimes)
	if err != nil {
		log.Printf("Error computing timing stats: %v", err)
		return
	}
	minRunTime, _ := stats.Min(msTimes)
	maxRunTime, _ := stats.Max(msTimes)

	numRuns := len(runTimings)
	successRate := float64(successful) / float64(numRuns) * 100
	avgRSq := 0.0
	if successful > 0 {
		avgRSq = totalRSq / float64(successful)
	}

	totalMs := float64(totalTime.Nanoseconds()) / 1000000.0
	runsPerSecond := float64(numRuns) / totalTime.Seconds()

	// Efficiency score: how well we utilized the concurrency
	// Perfect efficiency = 1.0 (linear speedup), poor efficiency < 0.5
	efficiencyScore := avgRunTime * float64(numRuns) / totalMs / float64(concurrency)

	// Get model from first run timing (should be consistent across the batch)
	model := "Unknown"
	if len(runTimings) > 0 && runTimings[0].Model != "" {
		model = runTimings[0].Model
	}

	// Write timing record
	record := []string{
		time.Now().Format(time.RFC3339),
		batchID,
		fmt.Sprintf("%d", numRuns),
		fmt.Sprintf("%d", concurrency),
		fmt.Sprintf("%.2f", totalMs),
		fmt.Sprintf("%.2f", avgRunTime),
		fmt.Sprintf("%.2f", minRunTime),
		fmt.Sprintf("%.2f", maxRunTime),
		fmt.Sprintf("%.1f", successRate),
		fmt.Sprintf("%.5f", avgRSq),
		fmt.Sprintf("%.2f", runsPerSecond),
		fmt.Sprintf("%.3f", efficiencyScore),
		model,
	}

	if err := writer.Write(record); err != nil {
		log.Printf("Error writing timing record: %v", err)
		return
	}

	log.Printf("📊 Timing saved: %d runs, %d goroutines, %.2f ms total, %.2f%% success, %.3f efficiency",
		numRuns, concurrency, totalMs, successRate, efficiencyScore)
}

// setupCORS sets up CORS headers
func (h *BatchHandler) setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// writeError writes an error response
func (h *BatchHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
