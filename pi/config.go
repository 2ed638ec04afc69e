package pi

import (
	"github.com/sw965/mdp/internal/validation"
	"log/slog"
)

type Config struct {
	// Iterations caps the number of evaluate-improve rounds.
	Iterations int `yaml:"iterations" validate:"gte=1"`

	// Sparse evaluates policies with the sparse direct solver instead of a
	// dense LU factorization.
	Sparse bool `yaml:"sparse"`

	Logger *slog.Logger `yaml:"-" validate:"-"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 1000,
		Sparse:     false,
	}
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
