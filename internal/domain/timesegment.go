package domain

import "time"

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtfield=Start"`
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Shift returns the range moved by d.
func (r Range) Shift(d time.Duration) Range {
	return Range{Start: r.Start.Add(d), End: r.End.Add(d)}
}

// NewTimeSegment is a creation request for a TimeSegment.
type NewTimeSegment struct {
	Name   string  `validate:"required"`
	Ranges []Range `validate:"dive"`
	Start  time.Time
	Period time.Duration `validate:"gte=0"`
}

// TimeSegment is a named, recurring set of windows during which tasks may
// be scheduled. Ranges repeat every Period counted from Start; a zero Period
// means the ranges occur once.
type TimeSegment struct {
	ID     ID
	Name   string  `validate:"required"`
	Ranges []Range `validate:"dive"`
	Start  time.Time
	Period time.Duration `validate:"gte=0"`
}

// WithID materializes the request as a TimeSegment with the given identifier.
func (n NewTimeSegment) WithID(id ID) TimeSegment {
	return TimeSegment{
		ID:     id,
		Name:   n.Name,
		Ranges: append([]Range(nil), n.Ranges...),
		Start:  n.Start,
		Period: n.Period,
	}
}

// SegmentTasks pairs a time segment with the tasks that reference it.
type SegmentTasks struct {
	Segment TimeSegment
	Tasks   []Task
}
