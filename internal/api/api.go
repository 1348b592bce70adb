// Package api is the outward-facing surface: the named operations, taking
// and returning wire documents, with every failure rendered to one string.
package api

import (
	"context"
	"encoding/json"

	"github.com/roach88/eva/internal/config"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/schedule"
	"github.com/roach88/eva/internal/wire"
)

// Failure is the error returned by every operation. Message is the rendered
// cause chain; the chain itself stays reachable through errors.Is and
// errors.As.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func fail(err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Message: errs.Render(err), Err: err}
}

// API runs operations against a configuration cell.
type API struct {
	cell  *config.Cell
	build config.Builder
}

// New returns an API over cell. build runs on the first Initialize.
func New(cell *config.Cell, build config.Builder) *API {
	return &API{cell: cell, build: build}
}

// Initialize builds the configuration once. Every other operation fails
// until it has completed.
func (a *API) Initialize(ctx context.Context) error {
	_, err := a.cell.Initialize(ctx, a.build)
	return fail(err)
}

// Close releases the configuration, if one was built.
func (a *API) Close() error {
	cfg, err := a.cell.Configuration()
	if err != nil {
		return nil
	}
	return cfg.Close()
}

func (a *API) configuration() (*config.Configuration, error) {
	return a.cell.Configuration()
}

// AddTask creates a task from a NewTask document and returns the Task
// document with its identifier.
func (a *API) AddTask(ctx context.Context, newTask []byte) ([]byte, error) {
	cfg, err := a.configuration()
	if err != nil {
		return nil, fail(err)
	}
	nt, err := wire.DecodeNewTask(newTask)
	if err != nil {
		return nil, fail(err)
	}
	task, err := cfg.Gateway.AddTask(ctx, nt)
	if err != nil {
		return nil, fail(err)
	}
	out, err := wire.EncodeTask(task)
	return out, fail(err)
}

// RemoveTask deletes a task. id is a JSON integer or numeric string.
func (a *API) RemoveTask(ctx context.Context, id []byte) error {
	cfg, err := a.configuration()
	if err != nil {
		return fail(err)
	}
	var wid wire.ID
	if err := json.Unmarshal(id, &wid); err != nil {
		return fail(errs.Serialisation("while deserialising a task identifier", err))
	}
	return fail(cfg.Gateway.DeleteTask(ctx, wid.Domain()))
}

// UpdateTask replaces a task with the given Task document.
func (a *API) UpdateTask(ctx context.Context, task []byte) error {
	cfg, err := a.configuration()
	if err != nil {
		return fail(err)
	}
	t, err := wire.DecodeTask(task)
	if err != nil {
		return fail(err)
	}
	return fail(cfg.Gateway.UpdateTask(ctx, t))
}

// ListTasks returns every task as a JSON array.
func (a *API) ListTasks(ctx context.Context) ([]byte, error) {
	cfg, err := a.configuration()
	if err != nil {
		return nil, fail(err)
	}
	tasks, err := cfg.Gateway.AllTasks(ctx)
	if err != nil {
		return nil, fail(err)
	}
	out, err := wire.EncodeTasks(tasks)
	return out, fail(err)
}

// Schedule computes a schedule starting now. An empty strategy name uses the
// configured strategy.
func (a *API) Schedule(ctx context.Context, strategyName string) ([]byte, error) {
	cfg, err := a.configuration()
	if err != nil {
		return nil, fail(err)
	}
	strategy := cfg.Strategy
	if strategyName != "" {
		if strategy, err = schedule.ParseStrategy(strategyName); err != nil {
			return nil, fail(err)
		}
	}
	groups, err := cfg.Gateway.AllTasksPerTimeSegment(ctx)
	if err != nil {
		return nil, fail(err)
	}
	sched, err := schedule.Compute(groups, strategy, cfg.Clock.Now())
	if err != nil {
		return nil, fail(err)
	}
	out, err := wire.EncodeSchedule(sched)
	return out, fail(err)
}

// AddTimeSegment creates a time segment from a NewTimeSegment document and
// returns the stored TimeSegment document.
func (a *API) AddTimeSegment(ctx context.Context, segment []byte) ([]byte, error) {
	cfg, err := a.configuration()
	if err != nil {
		return nil, fail(err)
	}
	ns, err := wire.DecodeNewTimeSegment(segment)
	if err != nil {
		return nil, fail(err)
	}
	seg, err := cfg.Gateway.AddTimeSegment(ctx, ns)
	if err != nil {
		return nil, fail(err)
	}
	out, err := wire.EncodeTimeSegment(seg)
	return out, fail(err)
}

// DeleteTimeSegment deletes the time segment described by a TimeSegment
// document.
func (a *API) DeleteTimeSegment(ctx context.Context, segment []byte) error {
	cfg, err := a.configuration()
	if err != nil {
		return fail(err)
	}
	s, err := wire.DecodeTimeSegment(segment)
	if err != nil {
		return fail(err)
	}
	return fail(cfg.Gateway.DeleteTimeSegment(ctx, s))
}

// UpdateTimeSegment replaces a time segment with the given document.
func (a *API) UpdateTimeSegment(ctx context.Context, segment []byte) error {
	cfg, err := a.configuration()
	if err != nil {
		return fail(err)
	}
	s, err := wire.DecodeTimeSegment(segment)
	if err != nil {
		return fail(err)
	}
	return fail(cfg.Gateway.UpdateTimeSegment(ctx, s))
}

// ListTimeSegments returns every time segment as a JSON array.
func (a *API) ListTimeSegments(ctx context.Context) ([]byte, error) {
	cfg, err := a.configuration()
	if err != nil {
		return nil, fail(err)
	}
	segs, err := cfg.Gateway.AllTimeSegments(ctx)
	if err != nil {
		return nil, fail(err)
	}
	out, err := wire.EncodeTimeSegments(segs)
	return out, fail(err)
}
