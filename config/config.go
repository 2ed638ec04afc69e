// Package config loads the solver settings of all packages at once: defaults,
// then an optional YAML file, then MDP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/internal/validation"
	"github.com/sw965/mdp/linprog"
	"github.com/sw965/mdp/pi"
	"github.com/sw965/mdp/vi"
	"gopkg.in/yaml.v3"
	"io"
	"log/slog"
	"os"
	"strconv"
)

type Config struct {
	ValueIteration  vi.Config      `yaml:"value_iteration"`
	PolicyIteration pi.Config      `yaml:"policy_iteration"`
	LP              linprog.Config `yaml:"lp"`

	// LogLevel is the level of the logger built by NewLogger.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

func Default() Config {
	return Config{
		ValueIteration:  vi.DefaultConfig(),
		PolicyIteration: pi.DefaultConfig(),
		LP:              linprog.DefaultConfig(),
		LogLevel:        "info",
	}
}

func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.ValueIteration.Validate(); err != nil {
		return fmt.Errorf("value_iteration: %w", err)
	}
	if err := c.PolicyIteration.Validate(); err != nil {
		return fmt.Errorf("policy_iteration: %w", err)
	}
	if err := c.LP.Validate(); err != nil {
		return fmt.Errorf("lp: %w", err)
	}
	return nil
}

// Load merges defaults, the YAML file at path (skipped when path is empty or
// the file does not exist) and environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %v", mdp.ErrConfiguration, path, err)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", mdp.ErrConfiguration, key, v)
	}
	*dst = i
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", mdp.ErrConfiguration, key, v)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", mdp.ErrConfiguration, key, v)
	}
	*dst = b
	return nil
}

// loadEnv applies MDP_* overrides. Malformed values are errors rather than
// being ignored.
func loadEnv(cfg *Config) error {
	return errors.Join(
		envInt("MDP_VI_ITERATIONS", &cfg.ValueIteration.Iterations),
		envFloat("MDP_VI_EPSILON", &cfg.ValueIteration.Epsilon),
		envInt("MDP_VI_PARALLELISM", &cfg.ValueIteration.Parallelism),
		envInt("MDP_PI_ITERATIONS", &cfg.PolicyIteration.Iterations),
		envBool("MDP_PI_SPARSE", &cfg.PolicyIteration.Sparse),
		envFloat("MDP_LP_TOLERANCE", &cfg.LP.Tolerance),
		envString("MDP_LOG_LEVEL", &cfg.LogLevel),
	)
}

func envString(key string, dst *string) error {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
	return nil
}

// NewLogger returns a text logger writing to w at c.LogLevel.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: log level %q: %v", mdp.ErrConfiguration, c.LogLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// WithLogger returns c with logger set on every solver config.
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.ValueIteration.Logger = logger
	c.PolicyIteration.Logger = logger
	c.LP.Logger = logger
	return c
}
