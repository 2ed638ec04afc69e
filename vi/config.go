package vi

import (
	"github.com/sw965/mdp/internal/validation"
	"log/slog"
)

// Config controls value iteration. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// Iterations caps the number of infinite-horizon sweeps.
	Iterations int `yaml:"iterations" validate:"gte=1"`

	// Epsilon is the target sup-norm distance to the optimal value.
	Epsilon float64 `yaml:"epsilon" validate:"gt=0"`

	// Parallelism is the number of workers of the infinite-horizon sweep.
	// 0 and 1 sweep on the calling goroutine.
	Parallelism int `yaml:"parallelism" validate:"gte=0"`

	Logger *slog.Logger `yaml:"-" validate:"-"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:  1000,
		Epsilon:     1e-3,
		Parallelism: 0,
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
