package config

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/roach88/eva/internal/clock"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/gateway"
	"github.com/roach88/eva/internal/schedule"
)

// Configuration bundles what every operation needs. It is immutable once
// published.
type Configuration struct {
	Gateway  gateway.Gateway
	Strategy schedule.Strategy
	Clock    clock.Clock
	Logger   zerolog.Logger

	// Registry holds the gateway metrics. Nil when metrics are disabled.
	Registry *prometheus.Registry
}

// Close releases the gateway.
func (c *Configuration) Close() error {
	return c.Gateway.Close()
}

// Builder performs the one-time setup.
type Builder func(ctx context.Context) (*Configuration, error)

type result struct {
	cfg *Configuration
	err error
}

// Cell is a write-once holder for a Configuration or the failure to build
// one. The zero value is ready to use.
type Cell struct {
	once sync.Once
	res  atomic.Pointer[result]
}

// Initialize runs build the first time it is called and publishes the
// outcome. Later calls, and calls racing the first, return that outcome
// without running their own builder.
func (c *Cell) Initialize(ctx context.Context, build Builder) (*Configuration, error) {
	c.once.Do(func() {
		c.res.Store(run(ctx, build))
	})
	return c.Configuration()
}

// Configuration returns the published outcome, or a Configuration error
// wrapping errs.ErrNotInitialized if Initialize has not completed.
func (c *Cell) Configuration() (*Configuration, error) {
	r := c.res.Load()
	if r == nil {
		return nil, errs.Configuration("", errs.ErrNotInitialized)
	}
	return r.cfg, r.err
}

func run(ctx context.Context, build Builder) (r *result) {
	defer func() {
		if p := recover(); p != nil {
			r = &result{err: errs.Configuration("while initializing", fmt.Errorf("panic: %v", p))}
		}
	}()
	cfg, err := build(ctx)
	if err != nil {
		return &result{err: errs.Configuration("while initializing", err)}
	}
	return &result{cfg: cfg}
}

var process Cell

// Initialize initializes the process-wide cell.
func Initialize(ctx context.Context, build Builder) (*Configuration, error) {
	return process.Initialize(ctx, build)
}

// Current returns the process-wide configuration.
func Current() (*Configuration, error) {
	return process.Configuration()
}

// Process returns the process-wide cell.
func Process() *Cell {
	return &process
}
