package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Strategy is one way of producing a coordinate. Strategies are tried
// in order by the Acquirer until one succeeds.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context) (Coordinate, error)
}

// Config bounds each acquisition attempt. GPS must never block the
// flow indefinitely; the per-strategy timeouts cap the total wait.
type Config struct {
	HighAccuracyTimeout time.Duration
	LowAccuracyTimeout  time.Duration
}

// DefaultConfig matches the bounds the access page has always used.
func DefaultConfig() Config {
	return Config{
		HighAccuracyTimeout: 10 * time.Second,
		LowAccuracyTimeout:  15 * time.Second,
	}
}

// Acquirer drives the ordered fallback chain: high-accuracy GPS, one
// low-accuracy GPS retry, then IP lookup. Permission denial anywhere
// aborts the whole chain.
type Acquirer struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewAcquirer assembles the standard chain. GPS strategies are only
// included when the platform capability exists; the IP fallback is
// always last.
func NewAcquirer(provider Provider, ip *IPLocator, cfg Config, logger *slog.Logger) *Acquirer {
	var strategies []Strategy
	if provider != nil && provider.Available() {
		strategies = append(strategies,
			&gpsStrategy{provider: provider, highAccuracy: true, timeout: cfg.HighAccuracyTimeout},
			&gpsStrategy{provider: provider, highAccuracy: false, timeout: cfg.LowAccuracyTimeout},
		)
	}
	if ip != nil {
		strategies = append(strategies, &ipStrategy{locator: ip})
	}
	return &Acquirer{strategies: strategies, logger: logger}
}

// NewAcquirerWithStrategies builds an acquirer over an explicit chain.
func NewAcquirerWithStrategies(logger *slog.Logger, strategies ...Strategy) *Acquirer {
	return &Acquirer{strategies: strategies, logger: logger}
}

// Acquire walks the chain until a strategy yields a coordinate.
// A permission denial stops the walk immediately: asking another
// strategy would not change the user's answer, and falling back to IP
// against an explicit refusal is not acceptable.
func (a *Acquirer) Acquire(ctx context.Context) (Coordinate, error) {
	for _, s := range a.strategies {
		coord, err := s.Acquire(ctx)
		if err == nil {
			a.logger.Debug("location acquired",
				slog.String("strategy", s.Name()),
				slog.String("source", coord.Source.String()))
			return coord, nil
		}
		if errors.Is(err, ErrPermissionDenied) {
			return Coordinate{}, fmt.Errorf("%s: %w", s.Name(), err)
		}
		if ctx.Err() != nil {
			return Coordinate{}, ctx.Err()
		}
		a.logger.Warn("location strategy failed",
			slog.String("strategy", s.Name()),
			slog.String("error", err.Error()))
	}
	return Coordinate{}, ErrExhausted
}

// gpsStrategy requests a single fix from the platform provider with a
// bounded timeout. A deadline hit is reported as position-unavailable
// so the driver moves on instead of treating it as fatal.
type gpsStrategy struct {
	provider     Provider
	highAccuracy bool
	timeout      time.Duration
}

func (s *gpsStrategy) Name() string {
	if s.highAccuracy {
		return "gps_high_accuracy"
	}
	return "gps_low_accuracy"
}

func (s *gpsStrategy) Acquire(ctx context.Context) (Coordinate, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	coord, err := s.provider.CurrentPosition(attemptCtx, s.highAccuracy)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Coordinate{}, fmt.Errorf("%w: fix timed out after %s", ErrPositionUnavailable, s.timeout)
		}
		return Coordinate{}, err
	}
	return coord, nil
}

type ipStrategy struct {
	locator *IPLocator
}

func (s *ipStrategy) Name() string { return "ip_lookup" }

func (s *ipStrategy) Acquire(ctx context.Context) (Coordinate, error) {
	return s.locator.Locate(ctx)
}
