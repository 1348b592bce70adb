package domain

import "time"

// ID identifies a stored entity. Identifiers are unsigned 32-bit values
// drawn by the gateway.
type ID uint32

// NewTask is a creation request for a Task.
type NewTask struct {
	Content       string        `validate:"required"`
	Deadline      time.Time     `validate:"required"`
	Duration      time.Duration `validate:"gte=0"`
	Importance    uint32
	TimeSegmentID ID
}

// Task is a unit of work placed by the scheduler.
type Task struct {
	ID            ID
	Content       string        `validate:"required"`
	Deadline      time.Time     `validate:"required"`
	Duration      time.Duration `validate:"gte=0"`
	Importance    uint32
	TimeSegmentID ID
}

// WithID materializes the request as a Task with the given identifier.
func (n NewTask) WithID(id ID) Task {
	return Task{
		ID:            id,
		Content:       n.Content,
		Deadline:      n.Deadline,
		Duration:      n.Duration,
		Importance:    n.Importance,
		TimeSegmentID: n.TimeSegmentID,
	}
}
