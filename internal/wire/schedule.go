package wire

import (
	"time"

	"github.com/roach88/eva/internal/domain"
)

// ScheduledDoc is one entry of a schedule.
type ScheduledDoc struct {
	Task TaskDoc   `json:"task"`
	When time.Time `json:"when"`
}

// ScheduleDoc is a schedule in scheduler order.
type ScheduleDoc []ScheduledDoc

// FromSchedule converts a schedule to its document without reordering or
// deduplicating entries.
func FromSchedule(s domain.Schedule) ScheduleDoc {
	out := make(ScheduleDoc, len(s))
	for i, entry := range s {
		out[i] = ScheduledDoc{Task: FromTask(entry.Task), When: entry.When.UTC()}
	}
	return out
}

// Domain converts the document back to a schedule.
func (d ScheduleDoc) Domain() domain.Schedule {
	out := make(domain.Schedule, len(d))
	for i, entry := range d {
		out[i] = domain.Scheduled{Task: entry.Task.Domain(), When: entry.When.UTC()}
	}
	return out
}
