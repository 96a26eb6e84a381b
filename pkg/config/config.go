package config

import (
	"os"
	"strconv"
)

// ArrayFlags collects repeated numeric flag values
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	return "ArrayFlags"
}

func (a *ArrayFlags) Set(value string) error {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*a = append(*a, val)
	return nil
}

// StringFlags collects repeated string flag values
type StringFlags []string

func (s *StringFlags) String() string {
	return "StringFlags"
}

func (s *StringFlags) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Config holds the runtime configuration shared by the CLI and the
// HTTP service. Model, Method, TimeUnit and InitValues override the
// fit section of the config file when set.
type Config struct {
	Mode            string // kinetics or spectrum
	Files           StringFlags
	Labels          StringFlags
	Model           string // linear, exp1, exp2 or auto
	Method          string
	InitValues      ArrayFlags
	TimeUnit        string
	ConfigPath      string
	WebhookURL      string
	Concurrency     bool
	Threads         uint
	Quiet           bool
	HTTPServer      bool
	EnableProfiling bool
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:       "kinetics",
		Threads:    5,
		Quiet:      false,
		HTTPServer: false,
	}
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	WorkerCount     int
	WebhookURL      string
	EnableMetrics   bool
	EnableProfiling bool
	ProfilingPort   string
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WorkerCount:     5,
		WebhookURL:      "http://kinplot:3001/webhook",
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
	}
}

// ApplyEnv overrides server settings from environment variables,
// typically loaded from a .env file.
func (s *ServerConfig) ApplyEnv() {
	if v := os.Getenv("KIN_PORT"); v != "" {
		s.Port = v
	}
	if v := os.Getenv("KIN_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.WorkerCount = n
		}
	}
	if v := os.Getenv("KIN_WEBHOOK_URL"); v != "" {
		s.WebhookURL = v
	}
	if v := os.Getenv("KIN_PROFILING_PORT"); v != "" {
		s.ProfilingPort = v
	}
}
