package worker

import (
	"log"
	"sync"
	"time"

	"github.com/kacperjurak/gokincore"
	"github.com/kacperjurak/gokincore/pkg/models"
)

// Pool manages concurrent curve-fitting workers
type Pool struct {
	jobs         chan models.WorkItem
	results      chan models.WorkResult
	webhookQueue chan models.PlotItem
	workers      int
	bufferPool   sync.Pool
	shutdown     chan struct{}
	wg           sync.WaitGroup
	processor    ProcessorFunc
	webhook      WebhookFunc
}

// ProcessorFunc defines the signature for kinetic series processing
type ProcessorFunc func(times, values []float64, label, model string) interface{}

// WebhookFunc delivers a finished fit to the plot renderer
type WebhookFunc func(item models.PlotItem)

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Webhook   WebhookFunc
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	// do not block queueing new jobs, and results even if the workers are already busy jobs/results * 2
	pool := &Pool{
		jobs:         make(chan models.WorkItem, opts.Workers*2),
		results:      make(chan models.WorkResult, opts.Workers*2),
		webhookQueue: make(chan models.PlotItem, opts.Workers*4), // 4x buffer for async webhooks - possibly slower operation, that's why extended buffer
		workers:      opts.Workers,
		shutdown:     make(chan struct{}),
		processor:    opts.Processor,
		webhook:      opts.Webhook,
		bufferPool: sync.Pool{
			New: func() interface{} {
				// typical kinetic runs carry tens to a few hundred samples
				return &models.BufferSet{
					Times:  make([]float64, 0, 200),
					Values: make([]float64, 0, 200),
				}
			},
		},
	}

	pool.start()
	return pool
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	// Start webhook processor
	p.wg.Add(1)
	go p.webhookProcessor()

	log.Printf("🔧 Worker pool started with %d workers", p.workers)
}

// worker processes fit jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			result := p.processJob(job)
			p.results <- result

		case <-p.shutdown:
			return
		}
	}
}

// processJob runs one fit with buffer reuse for the series copies
func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	buffers := p.bufferPool.Get().(*models.BufferSet)
	defer p.bufferPool.Put(buffers)

	startTime := time.Now()
	result := p.processor(job.Times, job.Values, job.Label, job.Model)
	processingTime := time.Since(startTime)

	p.stageSeries(job, buffers)

	// Create copies for the result (buffers will be reused)
	timesCopy := make([]float64, len(buffers.Times))
	valuesCopy := make([]float64, len(buffers.Values))
	copy(timesCopy, buffers.Times)
	copy(valuesCopy, buffers.Values)

	outcome, ok := result.(models.Outcome)
	if !ok {
		// Fallback for invalid result
		outcome = models.Outcome{
			Model:  job.Model,
			Status: gokincore.FAILED,
		}
	}

	return models.WorkResult{
		ID:             job.ID,
		RequestID:      job.RequestID,
		BatchID:        job.BatchID,
		Iteration:      job.Iteration,
		Outcome:        outcome,
		ProcessingTime: processingTime,
		Success:        outcome.Status == gokincore.OK,
		Times:          timesCopy,
		Values:         valuesCopy,
		Label:          job.Label,
	}
}

// stageSeries copies the job series into pooled buffers, growing them
// only when capacity falls short
func (p *Pool) stageSeries(job models.WorkItem, buffers *models.BufferSet) {
	dataLen := len(job.Times)

	if cap(buffers.Times) < dataLen {
		// +25% extra capacity to absorb size variations between jobs
		newCap := dataLen + (dataLen >> 2)
		if newCap < 200 {
			newCap = 200
		}
		buffers.Times = make([]float64, dataLen, newCap)
		buffers.Values = make([]float64, dataLen, newCap)
	} else {
		buffers.Times = buffers.Times[:dataLen]
		buffers.Values = buffers.Values[:dataLen]
	}

	copy(buffers.Times, job.Times)
	copy(buffers.Values, job.Values)
}

// webhookProcessor drains the webhook queue without blocking workers
func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.webhookQueue:
			go p.sendWebhook(item)

		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) sendWebhook(item models.PlotItem) {
	if p.webhook == nil {
		log.Printf("No webhook sender configured, dropping plot for %s", item.RequestID)
		return
	}
	p.webhook(item)
}

// SubmitJob submits a job to the worker pool
func (p *Pool) SubmitJob(job models.WorkItem) {
	select {
	case p.jobs <- job:
		// Job submitted successfully
	default:
		log.Printf("⚠️  Worker pool jobs channel full, job may be delayed")
		p.jobs <- job // Block until space available
	}
}

// GetResult retrieves a result from the worker pool (non-blocking)
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// QueueWebhook queues a plot delivery for async processing
func (p *Pool) QueueWebhook(item models.PlotItem) {
	select {
	case p.webhookQueue <- item:
		// Webhook queued successfully
	default:
		log.Printf("⚠️  Webhook queue full, dropping webhook for %s", item.RequestID)
	}
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown() {
	log.Printf("🛑 Shutting down worker pool...")
	close(p.shutdown)
	p.wg.Wait()
	log.Printf("✅ Worker pool shutdown complete")
}
