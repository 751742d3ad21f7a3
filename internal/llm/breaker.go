package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// BreakerConfig configures retries and the circuit breaker around a Generator.
type BreakerConfig struct {
	// Name labels the breaker in logs (default: generator)
	Name string

	// Retry policy applied inside the breaker
	Retry apperrors.RetryConfig

	// MinRequests before the failure ratio is considered (default: 5)
	MinRequests uint32

	// FailureRatio that opens the breaker (default: 0.6)
	FailureRatio float64

	// OpenTimeout before a half-open probe (default: 30s)
	OpenTimeout time.Duration

	// HalfOpenMaxCalls allowed while half-open (default: 1)
	HalfOpenMaxCalls uint32
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "generator",
		Retry:            apperrors.DefaultRetryConfig(),
		MinRequests:      5,
		FailureRatio:     0.6,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c BreakerConfig) normalize() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Retry.Multiplier == 0 {
		c.Retry = d.Retry
	}
	if c.MinRequests == 0 {
		c.MinRequests = d.MinRequests
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = d.FailureRatio
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	return c
}

// BreakerGenerator retries transient failures of an inner Generator and stops
// calling it while too many calls fail.
type BreakerGenerator struct {
	inner   Generator
	cfg     BreakerConfig
	breaker *gobreaker.CircuitBreaker[string]
}

var _ Generator = (*BreakerGenerator)(nil)

// NewBreakerGenerator wraps inner with retry and circuit breaking.
func NewBreakerGenerator(inner Generator, cfg BreakerConfig) *BreakerGenerator {
	cfg = cfg.normalize()
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation and rejected prompts say nothing about provider health.
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return apperrors.GetCode(err) == apperrors.ErrCodeProviderRejected
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				slog.String("operation", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &BreakerGenerator{
		inner:   inner,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Generate implements Generator. An open breaker fails fast with
// ErrCodeProviderCircuitOpen.
func (b *BreakerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.breaker.Execute(func() (string, error) {
		return apperrors.RetryWithResult(ctx, b.cfg.Retry, func() (string, error) {
			return b.inner.Generate(ctx, prompt)
		})
	})
	if IsCircuitOpen(err) {
		return "", apperrors.New(apperrors.ErrCodeProviderCircuitOpen,
			"generation provider is failing; calls are paused", err).
			WithDetail("breaker", b.cfg.Name).
			WithSuggestion("Check the generation provider and retry after " + b.cfg.OpenTimeout.String())
	}
	return out, err
}

// State returns the breaker state name.
func (b *BreakerGenerator) State() string {
	return b.breaker.State().String()
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
