package linprog

import (
	"github.com/sw965/mdp/internal/validation"
	"log/slog"
)

type Config struct {
	// Tolerance decides which constraints are binding when the policy is
	// read off the optimal values.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`

	Logger *slog.Logger `yaml:"-" validate:"-"`
}

func DefaultConfig() Config {
	return Config{Tolerance: 1e-6}
}

func (c Config) Validate() error {
	return validation.Struct(c)
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
