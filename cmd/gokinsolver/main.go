package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kacperjurak/gokincore/internal/processing"
	"github.com/kacperjurak/gokincore/pkg/config"
	"github.com/kacperjurak/gokincore/pkg/ingest"
	"github.com/kacperjurak/gokincore/pkg/models"
	"github.com/kacperjurak/gokincore/pkg/server"
	"github.com/kacperjurak/gokincore/pkg/webhook"
)

func main() {
	cfg, writeConfig := parseFlags()

	if writeConfig != "" {
		if err := config.DefaultFileConfig().Write(writeConfig); err != nil {
			log.Fatal(err)
		}
		log.Printf("Default config written to %s", writeConfig)
		return
	}

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	fileCfg := loadFileConfig(cfg.ConfigPath)

	if cfg.HTTPServer {
		runServer(cfg, fileCfg)
		return
	}

	if err := runLocal(cfg, fileCfg); err != nil {
		log.Fatal(err)
	}
}

// parseFlags parses command line flags and returns configuration
func parseFlags() (*config.Config, string) {
	cfg := config.DefaultConfig()
	var writeConfig string

	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "Processing mode: kinetics or spectrum")
	flag.Var(&cfg.Files, "f", "Measurement data file (repeatable)")
	flag.Var(&cfg.Labels, "l", "Series label, pairs with -f in order (repeatable)")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model to fit: linear, exp1, exp2 or auto (default from config file)")
	flag.StringVar(&cfg.Method, "method", cfg.Method, "Optimization method: lm or nelder-mead (default from config file)")
	flag.StringVar(&cfg.TimeUnit, "unit", cfg.TimeUnit, "Time column unit: minute or second (default from config file)")
	flag.Var(&cfg.InitValues, "v", "Parameters init values (array)")
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to YAML config file")
	flag.StringVar(&writeConfig, "writeconfig", "", "Write the default YAML config to the given path and exit")
	flag.StringVar(&cfg.WebhookURL, "webhook", cfg.WebhookURL, "Plot renderer webhook URL")
	flag.BoolVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Use concurrency for calculations")
	flag.UintVar(&cfg.Threads, "threads", cfg.Threads, "Number of threads to use for calculations")
	flag.BoolVar(&cfg.HTTPServer, "http", cfg.HTTPServer, "Start HTTP server on port 8080")
	flag.BoolVar(&cfg.EnableProfiling, "profile", cfg.EnableProfiling, "Enable pprof profiling")
	flag.BoolVar(&cfg.Quiet, "q", cfg.Quiet, "Quiet mode")
	flag.Parse()

	// Bare arguments are treated as additional data files
	cfg.Files = append(cfg.Files, flag.Args()...)

	return cfg, writeConfig
}

func loadFileConfig(path string) *config.FileConfig {
	if path == "" {
		return config.DefaultFileConfig()
	}

	fileCfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	return fileCfg
}

// runLocal processes the given data files and prints one report per
// file in input order
func runLocal(cfg *config.Config, fileCfg *config.FileConfig) error {
	if len(cfg.Files) == 0 {
		return fmt.Errorf("no input files, pass -f or bare file arguments")
	}

	section, err := fileCfg.Section(cfg.Mode)
	if err != nil {
		return err
	}

	readOpts := ingest.Options{
		UseCols:    section.UseCols,
		XColumn:    section.XColumn,
		YColumn:    section.YColumn,
		SkipHeader: section.SkipHeader,
		SkipFooter: section.SkipFooter,
	}

	var sender *webhook.Client
	if cfg.WebhookURL != "" {
		sender = webhook.NewClient(cfg.WebhookURL, cfg.Quiet)
	}
	plotOpts := renderOptions(section)

	reports := make([]string, len(cfg.Files))
	failures := make([]error, len(cfg.Files))

	var g errgroup.Group
	limit := 1
	if cfg.Concurrency && cfg.Threads > 1 {
		limit = int(cfg.Threads)
	}
	g.SetLimit(limit)

	switch cfg.Mode {
	case "kinetics":
		proc := processing.NewKineticsProcessor(cfg, fileCfg.Fit)
		for i, file := range cfg.Files {
			i, file := i, file
			g.Go(func() error {
				series, err := ingest.ReadSeries(file, readOpts)
				if err != nil {
					failures[i] = err
					return nil
				}
				label := seriesLabel(cfg, i, series.Label)

				outcome, err := proc.Process(series.X, series.Y, label, "")
				if err != nil {
					failures[i] = err
					return nil
				}
				reports[i] = outcome.Report

				if sender != nil && outcome.Fit != nil {
					item := models.PlotItem{
						RequestID: fmt.Sprintf("%s_%03d", label, i),
						Label:     label,
						Outcome:   outcome,
						Times:     series.X,
						Values:    series.Y,
					}
					if err := sender.SendPlot(item, plotOpts); err != nil {
						log.Printf("⚠️  Plot webhook failed for %s: %v", label, err)
					}
				}
				return nil
			})
		}

	case "spectrum":
		proc := processing.NewSpectrumProcessor()
		cutoff := 0.0
		if len(section.XLimit) > 0 {
			cutoff = section.XLimit[0]
		}
		for i, file := range cfg.Files {
			i, file := i, file
			g.Go(func() error {
				series, err := ingest.ReadSeries(file, readOpts)
				if err != nil {
					failures[i] = err
					return nil
				}
				label := seriesLabel(cfg, i, series.Label)

				wavelengths, values := processing.FilterWavelengths(series.X, series.Y, cutoff)
				summary, err := proc.Process(wavelengths, values, label)
				if err != nil {
					failures[i] = err
					return nil
				}
				reports[i] = processing.FormatSummary(summary)

				if sender != nil {
					payload := models.SpectrumPayload{
						ID:             fmt.Sprintf("%s_%03d", label, i),
						Label:          label,
						Wavelengths:    wavelengths,
						Values:         values,
						PeakWavelength: summary.PeakWavelength,
						PeakValue:      summary.PeakAbs,
						Options:        plotOpts,
					}
					if err := sender.SendSpectrum(payload); err != nil {
						log.Printf("⚠️  Spectrum webhook failed for %s: %v", label, err)
					}
				}
				return nil
			})
		}
	}

	g.Wait()

	// Print in input order regardless of completion order
	failed := 0
	for i, file := range cfg.Files {
		if failures[i] != nil {
			failed++
			log.Printf("❌ %s: %v", file, failures[i])
			continue
		}
		fmt.Println(reports[i])
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(cfg.Files))
	}
	return nil
}

func seriesLabel(cfg *config.Config, i int, fallback string) string {
	if i < len(cfg.Labels) && cfg.Labels[i] != "" {
		return cfg.Labels[i]
	}
	return fallback
}

// renderOptions maps the plot section of the file config onto the
// renderer payload options
func renderOptions(pc *config.PlotConfig) models.PlotOptions {
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

func runServer(cfg *config.Config, fileCfg *config.FileConfig) {
	serverConfig := config.DefaultServerConfig()
	if cfg.Threads > 0 {
		serverConfig.WorkerCount = int(cfg.Threads)
	}
	serverConfig.EnableProfiling = cfg.EnableProfiling
	if cfg.WebhookURL != "" {
		serverConfig.WebhookURL = cfg.WebhookURL
	}
	serverConfig.ApplyEnv()

	srv := server.New(server.Options{
		Config:       cfg,
		ServerConfig: serverConfig,
		FileConfig:   fileCfg,
	})

	// Setup graceful shutdown
	setupGracefulShutdown(srv)

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal("❌ Failed to start server:", err)
	}
}

// setupGracefulShutdown sets up graceful shutdown handling
func setupGracefulShutdown(srv *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("🛑 Received shutdown signal...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		os.Exit(0)
	}()
}
