// Package location resolves the user's position from a provider, falling back
// to the map host when the provider cannot answer.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
)

// DefaultTimeout bounds a single provider lookup.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable is returned by a provider that has no location to offer.
var ErrUnavailable = errors.New("location: unavailable")

// Provider answers "where is the user".
type Provider interface {
	CurrentLocation(ctx context.Context) (geo.Point, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (geo.Point, error)

func (f ProviderFunc) CurrentLocation(ctx context.Context) (geo.Point, error) {
	return f(ctx)
}

// Static is a provider with a fixed, configured position.
type Static struct {
	point   geo.Point
	enabled bool
}

// NewStatic creates a static provider from config.
func NewStatic(cfg config.LocationConfig) Static {
	return Static{point: geo.Point{Lat: cfg.Lat, Lon: cfg.Lon}, enabled: cfg.Enabled}
}

func (s Static) CurrentLocation(ctx context.Context) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	if !s.enabled {
		return geo.Point{}, ErrUnavailable
	}
	return s.point, nil
}

// Result is the outcome of one resolution. When Err is set the caller is
// expected to ask the map host instead.
type Result struct {
	Point geo.Point
	Err   error
}

// Resolver runs provider lookups off the caller's goroutine and delivers the
// outcome on Results.
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
	results  chan Result
	busy     atomic.Bool
}

// NewResolver creates a resolver. A nil provider always fails over.
func NewResolver(provider Provider, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		results:  make(chan Result, 1),
	}
}

// Results delivers one Result per accepted Resolve call.
func (r *Resolver) Results() <-chan Result {
	return r.results
}

// Resolve starts a lookup. It returns false if a lookup is already running.
func (r *Resolver) Resolve(ctx context.Context) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer r.busy.Store(false)
		res := r.lookup(ctx)
		select {
		case r.results <- res:
		case <-ctx.Done():
		}
	}()
	return true
}

func (r *Resolver) lookup(ctx context.Context) Result {
	if r.provider == nil {
		return Result{Err: ErrUnavailable}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := r.provider.CurrentLocation(ctx)
	if err != nil {
		r.logger.Debug("location provider failed", "err", err)
		return Result{Err: fmt.Errorf("current location: %w", err)}
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return Result{Err: fmt.Errorf("current location: %w: out of range %+v", ErrUnavailable, p)}
	}
	return Result{Point: p}
}
