package domain

import "time"

// Scheduled is a task with its assigned start time.
type Scheduled struct {
	Task Task
	When time.Time
}

// Schedule is an ordered assignment of start times to tasks. Order is the
// order produced by the scheduler and is significant.
type Schedule []Scheduled
