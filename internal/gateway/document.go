package gateway

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/store"
	"github.com/roach88/eva/internal/wire"
)

// Options configures a DocumentGateway.
type Options struct {
	// Logger receives mutation and refusal events. Zero value logs nothing.
	Logger zerolog.Logger

	// IDs draws identifiers for new entities. Defaults to RandomIDs.
	IDs IDSource
}

// DocumentGateway implements Gateway over a store.DocumentStore.
//
// It is safe for concurrent use as long as the store is (and Options.IDs,
// if set). Task writes and time segment deletes are serialized so that a
// reference check and the write it guards cannot interleave with another
// such operation. Writers in other processes sharing the store are not
// covered.
type DocumentGateway struct {
	store store.DocumentStore
	log   zerolog.Logger
	ids   IDSource

	// refs guards the segment checks of AddTask, UpdateTask and
	// DeleteTimeSegment together with their writes.
	refs sync.Mutex
}

var _ Gateway = (*DocumentGateway)(nil)

// New returns a gateway over s. The gateway takes ownership of s.
func New(s store.DocumentStore, opts Options) *DocumentGateway {
	ids := opts.IDs
	if ids == nil {
		ids = RandomIDs
	}
	return &DocumentGateway{
		store: s,
		log:   opts.Logger.With().Str("component", "gateway").Logger(),
		ids:   ids,
	}
}

// Close closes the underlying store.
func (g *DocumentGateway) Close() error {
	return g.store.Close()
}

// AddTask validates t, checks its time segment exists, and stores it under a
// fresh identifier.
func (g *DocumentGateway) AddTask(ctx context.Context, t domain.NewTask) (domain.Task, error) {
	if err := domain.Validate(t); err != nil {
		return domain.Task{}, errs.Serialisation("while serialising a task", err)
	}

	g.refs.Lock()
	defer g.refs.Unlock()
	if err := g.requireSegment(ctx, t.TimeSegmentID, "while searching for the time segment of the new task"); err != nil {
		return domain.Task{}, err
	}

	var task domain.Task
	id, err := g.create(ctx, TypeTask, wire.FormatID(t.TimeSegmentID), func(id domain.ID) ([]byte, error) {
		task = t.WithID(id)
		return wire.EncodeTask(task)
	})
	if err != nil {
		if errs.Is(err, errs.KindSerialisation) {
			return domain.Task{}, err
		}
		return domain.Task{}, errs.Database("while creating a task", err)
	}

	g.log.Debug().Stringer("id", wire.ID(id)).Str("content", task.Content).Msg("task created")
	return task, nil
}

// DeleteTask removes the task with the given identifier.
func (g *DocumentGateway) DeleteTask(ctx context.Context, id domain.ID) error {
	doc, err := g.getOfType(ctx, id, TypeTask)
	if err != nil {
		return errs.Database("while deleting a task", err)
	}
	if err := g.store.DeleteWithRevision(ctx, doc.ID, doc.Rev); err != nil {
		return errs.Database("while deleting a task", err)
	}
	g.log.Debug().Stringer("id", wire.ID(id)).Msg("task deleted")
	return nil
}

// UpdateTask replaces the stored task with t. The time segment check happens
// before anything is written.
func (g *DocumentGateway) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := domain.Validate(t); err != nil {
		return errs.Serialisation("while serialising a task", err)
	}
	body, err := wire.EncodeTask(t)
	if err != nil {
		return err
	}

	g.refs.Lock()
	defer g.refs.Unlock()
	if err := g.requireSegment(ctx, t.TimeSegmentID, "while searching for the time segment of the task"); err != nil {
		return err
	}
	if err := g.replace(ctx, t.ID, TypeTask, wire.FormatID(t.TimeSegmentID), body); err != nil {
		return errs.Database("while updating a task", err)
	}
	g.log.Debug().Stringer("id", wire.ID(t.ID)).Msg("task updated")
	return nil
}

// AllTasks returns every task.
func (g *DocumentGateway) AllTasks(ctx context.Context) ([]domain.Task, error) {
	docs, err := g.store.AllOfType(ctx, TypeTask)
	if err != nil {
		return nil, errs.Database("while loading all tasks", err)
	}
	return decodeTasks(docs)
}

// AllTasksPerTimeSegment returns every time segment with the tasks that
// reference it. Segments without tasks are included with an empty list. A
// task whose segment is missing fails the call.
func (g *DocumentGateway) AllTasksPerTimeSegment(ctx context.Context) ([]domain.SegmentTasks, error) {
	groups, err := g.store.GroupedByRef(ctx, TypeTimeSegment, TypeTask)
	if err != nil {
		return nil, errs.Database("while loading tasks per time segment", err)
	}
	out := make([]domain.SegmentTasks, 0, len(groups))
	for _, grp := range groups {
		seg, err := decodeSegment(grp.Parent)
		if err != nil {
			return nil, err
		}
		tasks, err := decodeTasks(grp.Children)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SegmentTasks{Segment: seg, Tasks: tasks})
	}
	slices.SortFunc(out, func(a, b domain.SegmentTasks) int {
		return cmp.Compare(a.Segment.ID, b.Segment.ID)
	})
	return out, nil
}

// AddTimeSegment stores s under a fresh identifier.
func (g *DocumentGateway) AddTimeSegment(ctx context.Context, s domain.NewTimeSegment) (domain.TimeSegment, error) {
	if err := domain.Validate(s); err != nil {
		return domain.TimeSegment{}, errs.Serialisation("while serialising a time segment", err)
	}

	var seg domain.TimeSegment
	id, err := g.create(ctx, TypeTimeSegment, "", func(id domain.ID) ([]byte, error) {
		seg = s.WithID(id)
		return wire.EncodeTimeSegment(seg)
	})
	if err != nil {
		if errs.Is(err, errs.KindSerialisation) {
			return domain.TimeSegment{}, err
		}
		return domain.TimeSegment{}, errs.Database("while creating a time segment", err)
	}

	g.log.Debug().Stringer("id", wire.ID(id)).Str("name", seg.Name).Msg("time segment created")
	return seg, nil
}

// UpdateTimeSegment replaces the stored time segment with s.
func (g *DocumentGateway) UpdateTimeSegment(ctx context.Context, s domain.TimeSegment) error {
	if err := domain.Validate(s); err != nil {
		return errs.Serialisation("while serialising a time segment", err)
	}
	body, err := wire.EncodeTimeSegment(s)
	if err != nil {
		return err
	}
	if err := g.replace(ctx, s.ID, TypeTimeSegment, "", body); err != nil {
		return errs.Database("while updating a time segment", err)
	}
	g.log.Debug().Stringer("id", wire.ID(s.ID)).Msg("time segment updated")
	return nil
}

// DeleteTimeSegment removes s unless tasks still reference it or it is the
// last time segment. A missing segment is reported before either rule, and
// the referencing-task rule wins when both apply.
func (g *DocumentGateway) DeleteTimeSegment(ctx context.Context, s domain.TimeSegment) error {
	g.refs.Lock()
	defer g.refs.Unlock()

	doc, err := g.getOfType(ctx, s.ID, TypeTimeSegment)
	if err != nil {
		return errs.Database("while deleting a time segment", err)
	}

	tasks, err := g.store.Referencing(ctx, TypeTask, doc.ID)
	if err != nil {
		return errs.Database("while fetching tasks for a time segment", err)
	}
	if n := len(tasks); n > 0 {
		g.log.Info().Stringer("id", wire.ID(s.ID)).Int("tasks", n).Msg("refused to delete referenced time segment")
		return errs.Invariant("while deleting a time segment", &errs.SegmentInUseError{Count: n})
	}

	segments, err := g.store.AllOfType(ctx, TypeTimeSegment)
	if err != nil {
		return errs.Database("while loading time segments", err)
	}
	if len(segments) <= 1 {
		g.log.Info().Stringer("id", wire.ID(s.ID)).Msg("refused to delete last time segment")
		return errs.Invariant("while deleting a time segment", errs.ErrLastSegment)
	}

	if err := g.store.DeleteWithRevision(ctx, doc.ID, doc.Rev); err != nil {
		return errs.Database("while deleting a time segment", err)
	}
	g.log.Debug().Stringer("id", wire.ID(s.ID)).Msg("time segment deleted")
	return nil
}

// AllTimeSegments returns every time segment.
func (g *DocumentGateway) AllTimeSegments(ctx context.Context) ([]domain.TimeSegment, error) {
	docs, err := g.store.AllOfType(ctx, TypeTimeSegment)
	if err != nil {
		return nil, errs.Database("while loading time segments", err)
	}
	segs := make([]domain.TimeSegment, 0, len(docs))
	for _, d := range docs {
		s, err := decodeSegment(d)
		if err != nil {
			return nil, err
		}
		segs = append(segs, s)
	}
	slices.SortFunc(segs, func(a, b domain.TimeSegment) int { return cmp.Compare(a.ID, b.ID) })
	return segs, nil
}

// get returns the raw document for id.
func (g *DocumentGateway) get(ctx context.Context, id domain.ID) (store.Document, error) {
	return g.store.Get(ctx, wire.FormatID(id))
}

// getOfType is get, treating a document of another type as missing.
func (g *DocumentGateway) getOfType(ctx context.Context, id domain.ID, typ string) (store.Document, error) {
	doc, err := g.get(ctx, id)
	if err != nil {
		return store.Document{}, err
	}
	if doc.Type != typ {
		return store.Document{}, fmt.Errorf("%s %s: %w", typ, doc.ID, store.ErrNotFound)
	}
	return doc, nil
}

// requireSegment fails unless id names a stored time segment.
func (g *DocumentGateway) requireSegment(ctx context.Context, id domain.ID, op string) error {
	if _, err := g.getOfType(ctx, id, TypeTimeSegment); err != nil {
		return errs.Database(op, err)
	}
	return nil
}

// create stores a new document, drawing another identifier when the drawn
// one is taken. body is called once per attempt with the candidate ID.
func (g *DocumentGateway) create(ctx context.Context, typ, ref string, body func(domain.ID) ([]byte, error)) (domain.ID, error) {
	for attempt := 1; ; attempt++ {
		id := g.ids()
		b, err := body(id)
		if err != nil {
			return 0, err
		}
		_, err = g.store.Create(ctx, store.Document{ID: wire.FormatID(id), Type: typ, Ref: ref, Body: b})
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, store.ErrExists) || attempt == maxCreateAttempts {
			return 0, err
		}
		g.log.Debug().Stringer("id", wire.ID(id)).Int("attempt", attempt).Msg("identifier taken, drawing another")
	}
}

// replace does a read-modify-write with the revision observed at read time.
func (g *DocumentGateway) replace(ctx context.Context, id domain.ID, typ, ref string, body []byte) error {
	doc, err := g.getOfType(ctx, id, typ)
	if err != nil {
		return err
	}
	doc.Ref = ref
	doc.Body = body
	_, err = g.store.UpdateWithRevision(ctx, doc)
	return err
}

func decodeTasks(docs []store.Document) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		t, err := wire.DecodeTask(d.Body)
		if err != nil {
			return nil, err
		}
		if t.ID, err = documentID(d); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b domain.Task) int { return cmp.Compare(a.ID, b.ID) })
	return tasks, nil
}

func decodeSegment(d store.Document) (domain.TimeSegment, error) {
	s, err := wire.DecodeTimeSegment(d.Body)
	if err != nil {
		return domain.TimeSegment{}, err
	}
	if s.ID, err = documentID(d); err != nil {
		return domain.TimeSegment{}, err
	}
	return s, nil
}

// documentID parses the store key, which is authoritative over any
// identifier inside the body.
func documentID(d store.Document) (domain.ID, error) {
	id, err := wire.ParseID(d.ID)
	if err != nil {
		return 0, errs.Serialisation("while deserialising a document identifier", err)
	}
	return id, nil
}
