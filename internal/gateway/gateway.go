// Package gateway mediates every read and write of tasks and time segments.
//
// The document store understands documents, revisions and references but
// nothing about the domain. The gateway adds what it lacks:
//
//   - Referential integrity: a task's time segment must exist (and be a time
//     segment) before the task is created or updated.
//   - Non-emptiness: the last time segment cannot be deleted, and no segment
//     can be deleted while tasks still reference it.
//   - Optimistic concurrency: updates and deletes carry the revision observed
//     when the document was read, so a concurrent edit is rejected instead of
//     clobbered.
//
// The first two rules each span several store calls. DocumentGateway holds
// a lock across the check and the write so that concurrent calls in one
// process cannot break them.
//
// Identifiers are drawn by the gateway, not by the store.
package gateway

import (
	"context"

	"github.com/roach88/eva/internal/domain"
)

// Document type tags used in the store.
const (
	TypeTask        = "task"
	TypeTimeSegment = "time-segment"
)

// Gateway is the capability set offered to the outward surface.
//
// Every failure is an *errs.Error. Bulk reads return entities ordered by ID.
type Gateway interface {
	AddTask(ctx context.Context, t domain.NewTask) (domain.Task, error)
	DeleteTask(ctx context.Context, id domain.ID) error
	UpdateTask(ctx context.Context, t domain.Task) error
	AllTasks(ctx context.Context) ([]domain.Task, error)
	AllTasksPerTimeSegment(ctx context.Context) ([]domain.SegmentTasks, error)

	AddTimeSegment(ctx context.Context, s domain.NewTimeSegment) (domain.TimeSegment, error)
	UpdateTimeSegment(ctx context.Context, s domain.TimeSegment) error
	DeleteTimeSegment(ctx context.Context, s domain.TimeSegment) error
	AllTimeSegments(ctx context.Context) ([]domain.TimeSegment, error)

	// Close releases the underlying store.
	Close() error
}
