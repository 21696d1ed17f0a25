package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/copyleftdev/icemaze/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Database struct {
		DSN string `env:"DB_DSN" envDefault:"file:data/icemaze.db?_pragma=busy_timeout(5000)"`
	}
	Optimization struct {
		WorkerCount    int     `env:"OPT_WORKER_COUNT" envDefault:"4"`
		PopulationSize int     `env:"OPT_POPULATION_SIZE" envDefault:"128"`
		EliteCount     int     `env:"OPT_ELITE_COUNT" envDefault:"24"`
		MutationRate   float64 `env:"OPT_MUTATION_RATE" envDefault:"0.5"`
		Generations    int     `env:"OPT_GENERATIONS" envDefault:"2500"`
		ReportEvery    int     `env:"OPT_REPORT_EVERY" envDefault:"100"`
		CacheSize      int     `env:"OPT_CACHE_SIZE" envDefault:"8192"`
		MaxConcurrent  int     `env:"OPT_MAX_CONCURRENT" envDefault:"4"`
	}
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set
// in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	// Ensure the data directory exists for file-backed sqlite databases
	if dir := sqliteDir(cfg.Database.DSN); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// OptimizerDefaults converts the optimization section into optimizer settings.
func (c *Config) OptimizerDefaults() optimization.OptimizerConfig {
	oc := optimization.DefaultConfig()
	oc.PopulationSize = c.Optimization.PopulationSize
	oc.EliteCount = c.Optimization.EliteCount
	oc.MutationRate = c.Optimization.MutationRate
	oc.Generations = c.Optimization.Generations
	oc.Workers = c.Optimization.WorkerCount
	oc.CacheSize = c.Optimization.CacheSize
	return oc
}

// sqliteDir returns the directory of a "file:" DSN, or "" for memory or
// relative-to-cwd databases.
func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
