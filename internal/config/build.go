package config

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/roach88/eva/internal/clock"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/gateway"
	"github.com/roach88/eva/internal/schedule"
	"github.com/roach88/eva/internal/store"
)

// BuildOptions supplies collaborators that do not come from the file.
type BuildOptions struct {
	// Clock defaults to clock.System.
	Clock clock.Clock

	// Logger defaults to a no-op logger.
	Logger zerolog.Logger

	// IDs overrides identifier generation. Defaults to gateway.RandomIDs.
	IDs gateway.IDSource
}

// Build returns a Builder that opens the store described by f, migrates it
// and assembles the gateway.
func Build(f File, opts BuildOptions) Builder {
	return func(ctx context.Context) (*Configuration, error) {
		log := opts.Logger
		cfg, err := build(ctx, f, opts)
		if err != nil {
			log.Error().Err(err).Str("driver", f.Store.Driver).Msg("initialization failed")
			return nil, err
		}
		log.Info().
			Str("driver", f.Store.Driver).
			Str("strategy", cfg.Strategy.String()).
			Bool("metrics", cfg.Registry != nil).
			Msg("initialized")
		return cfg, nil
	}
}

func build(ctx context.Context, f File, opts BuildOptions) (*Configuration, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	strategy, err := schedule.ParseStrategy(f.Scheduling.Strategy)
	if err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	st, err := store.Open(ctx, store.Config{Driver: f.Store.Driver, Path: f.Store.Path, Logger: opts.Logger})
	if err != nil {
		return nil, errs.Database("while opening the database", err)
	}
	if err := gateway.Bootstrap(ctx, st, clk.Now(), f.Store.SeedDefaultSegment, opts.Logger); err != nil {
		st.Close()
		return nil, err
	}

	var gw gateway.Gateway = gateway.New(st, gateway.Options{Logger: opts.Logger, IDs: opts.IDs})
	var reg *prometheus.Registry
	if f.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		gw = gateway.Instrument(gw, gateway.NewMetrics(reg))
	}

	return &Configuration{
		Gateway:  gw,
		Strategy: strategy,
		Clock:    clk,
		Logger:   opts.Logger,
		Registry: reg,
	}, nil
}
