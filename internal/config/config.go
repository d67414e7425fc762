// Package config loads run configuration from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"qshot/qsim"
)

// Backend names accepted by QSHOT_BACKEND.
const (
	BackendDense  = "dense"
	BackendSparse = "sparse"
)

// Config holds application configuration
type Config struct {
	Shots       int
	Seed        *uint64 // nil draws a fresh seed per run
	RequireSeed bool    // runs without a fixed seed fail with qsim.ErrConfig
	Workers     int
	Backend     string
	LogLevel    string
	Pretty      bool
}

// Load reads configuration from a .env file, if present, and the
// environment. Malformed values are errors, not silent defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		Shots:       env.intVar("QSHOT_SHOTS", 1024),
		RequireSeed: env.boolVar("QSHOT_REQUIRE_SEED", false),
		Workers:     env.intVar("QSHOT_WORKERS", runtime.GOMAXPROCS(0)),
		Backend:     getEnv("QSHOT_BACKEND", BackendDense),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Pretty:      env.boolVar("LOG_PRETTY", true),
	}
	if raw := os.Getenv("QSHOT_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		env.check("QSHOT_SEED", raw, err)
		cfg.Seed = &seed
	}
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Errors wrap qsim.ErrConfig.
func (c *Config) Validate() error {
	if c.Shots <= 0 {
		return fmt.Errorf("%w: shots must be positive, got %d", qsim.ErrConfig, c.Shots)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", qsim.ErrConfig, c.Workers)
	}
	if _, err := c.BackendFactory(); err != nil {
		return err
	}
	return nil
}

// BackendFactory resolves the configured backend name.
func (c *Config) BackendFactory() (qsim.BackendFactory, error) {
	switch c.Backend {
	case BackendDense, "":
		return qsim.DenseBackend, nil
	case BackendSparse:
		return qsim.SparseBackend, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", qsim.ErrConfig, c.Backend)
}

// RunConfig converts the configuration into run parameters.
func (c *Config) RunConfig() qsim.RunConfig {
	return qsim.RunConfig{
		Shots:       c.Shots,
		Seed:        c.Seed,
		RequireSeed: c.RequireSeed,
		Workers:     c.Workers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and keeps the first malformed one.
type envReader struct {
	err error
}

func (r *envReader) check(key, raw string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %s %q: %v", qsim.ErrConfig, key, raw, err)
	}
}

func (r *envReader) intVar(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	r.check(key, value, err)
	return intVal
}

func (r *envReader) boolVar(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	r.check(key, value, err)
	return boolVal
}
