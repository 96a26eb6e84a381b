package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kacperjurak/gokincore/internal/processing"
	"github.com/kacperjurak/gokincore/pkg/config"
	"github.com/kacperjurak/gokincore/pkg/handlers"
	"github.com/kacperjurak/gokincore/pkg/models"
	"github.com/kacperjurak/gokincore/pkg/profiling"
	"github.com/kacperjurak/gokincore/pkg/webhook"
	"github.com/kacperjurak/gokincore/pkg/worker"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	config        *config.Config
	serverConfig  *config.ServerConfig
	fileConfig    *config.FileConfig
	processor     ProcessorFunc
	workerPool    *worker.Pool
	webhookClient *webhook.Client
	httpServer    *http.Server
	profiler      *profiling.Profiler
	middleware    *profiling.Middleware
}

// ProcessorFunc defines the signature for kinetic series processing
type ProcessorFunc func(times, values []float64, label, model string) interface{}

// Options holds configuration for creating a new server
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	FileConfig   *config.FileConfig
	Processor    ProcessorFunc
}

// New creates a new server instance
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if opts.FileConfig == nil {
		opts.FileConfig = config.DefaultFileConfig()
	}
	if opts.Processor == nil {
		proc := processing.NewKineticsProcessor(opts.Config, opts.FileConfig.Fit)
		opts.Processor = ProcessorFunc(proc.ProcessorFunc())
	}

	// Create webhook client
	webhookClient := webhook.NewClient(opts.ServerConfig.WebhookURL, opts.Config.Quiet)
	plotOpts := plotOptions(opts.FileConfig.Plot.Kinetics)

	// Create worker pool with plot delivery wired in
	workerPool := worker.New(worker.Options{
		Workers:   opts.ServerConfig.WorkerCount,
		Processor: worker.ProcessorFunc(opts.Processor),
		Webhook: func(item models.PlotItem) {
			if err := webhookClient.SendPlot(item, plotOpts); err != nil {
				log.Printf("⚠️  Plot webhook failed for %s: %v", item.RequestID, err)
			}
		},
	})

	// Create profiler and middleware
	profiler := profiling.New(opts.ServerConfig)
	middleware := profiling.NewMiddleware(opts.ServerConfig.EnableProfiling)

	server := &Server{
		config:        opts.Config,
		serverConfig:  opts.ServerConfig,
		fileConfig:    opts.FileConfig,
		processor:     opts.Processor,
		workerPool:    workerPool,
		webhookClient: webhookClient,
		profiler:      profiler,
		middleware:    middleware,
	}

	server.setupRoutes()
	return server
}

// plotOptions maps the plot section of the file config onto the
// renderer payload options
func plotOptions(pc config.PlotConfig) models.PlotOptions {
	return models.PlotOptions{
		Title:          pc.Title,
		XLabel:         pc.XLabel,
		YLabel:         pc.YLabel,
		XLimit:         pc.XLimit,
		YLimit:         pc.YLimit,
		LegendLocation: pc.LegendLocation,
		FigureSize:     pc.FigureSize,
	}
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if !s.config.Quiet {
		r.Use(chimiddleware.Logger)
	}

	// Create handlers
	kineticsHandler := handlers.NewKineticsHandler(s.config, s.workerPool, handlers.ProcessorFunc(s.processor))
	batchHandler := handlers.NewBatchHandler(s.config, s.workerPool, handlers.ProcessorFunc(s.processor))

	// Register routes with profiling middleware, the handlers do their
	// own method filtering and CORS
	r.Handle("/kinetics-data", s.middleware.ProfiledHandler("kinetics-single", kineticsHandler))
	r.Handle("/kinetics-data/batch", s.middleware.ProfiledHandler("kinetics-batch", batchHandler))
	r.Get("/health", s.healthHandler)
	r.Get("/debug/gc", s.gcHandler)
	r.Get("/debug/memory", s.memoryHandler)

	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler exposes the configured route tree
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profiling.ForceGC()
	stats := profiling.GetGCStats()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"gc_runs": %d,
		"pause_total_ms": %.3f,
		"pause_recent_us": %.3f,
		"cpu_percent": %.2f,
		"last_gc": "%s",
		"timestamp": "%s"
	}`,
		stats.NumGC,
		float64(stats.PauseTotal.Nanoseconds())/1000000.0,
		float64(stats.PauseRecent.Nanoseconds())/1000.0,
		stats.GCCPUPercent,
		stats.LastGC.Format(time.RFC3339),
		time.Now().Format(time.RFC3339))
}

// memoryHandler provides current memory statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	profiling.LogGCStats()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"message":"Memory stats logged to console","timestamp":"%s"}`,
		time.Now().Format(time.RFC3339))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Start profiling server
	if err := s.profiler.Start(); err != nil {
		log.Printf("❌ Failed to start profiler: %v", err)
	}

	log.Println("🚀 Starting HTTP server on port", s.serverConfig.Port)
	log.Println("📡 Endpoints available:")
	log.Printf("  - Single: http://localhost:%s/kinetics-data", s.serverConfig.Port)
	log.Printf("  - Batch:  http://localhost:%s/kinetics-data/batch", s.serverConfig.Port)
	log.Printf("  - Health: http://localhost:%s/health", s.serverConfig.Port)
	log.Printf("  - GC:     http://localhost:%s/debug/gc", s.serverConfig.Port)
	log.Printf("  - Memory: http://localhost:%s/debug/memory", s.serverConfig.Port)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop accepting requests before draining the workers
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Printf("⚠️ HTTP server shutdown error: %v", err)
	}

	// Shutdown profiler
	if perr := s.profiler.Stop(); perr != nil {
		log.Printf("⚠️ Profiler shutdown error: %v", perr)
	}

	// Shutdown worker pool
	s.workerPool.Shutdown()

	log.Println("✅ Server shutdown complete")
	return err
}
