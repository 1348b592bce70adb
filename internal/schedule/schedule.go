// Package schedule assigns start times to tasks.
//
// Tasks are ordered by a strategy and then placed one after another, each in
// the earliest free slot inside its own time segment's windows. A slot never
// starts before now and never overlaps a previously placed task.
package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
)

// Strategy orders tasks before placement.
type Strategy string

const (
	// Importance places the most important tasks first. Earlier deadlines
	// break ties.
	Importance Strategy = "importance"

	// Urgency places the tasks with the earliest deadline first. Higher
	// importance breaks ties.
	Urgency Strategy = "urgency"
)

// Default is the strategy used when none is configured.
const Default = Importance

// MaxPeriods bounds how many repetitions of a segment are searched for a
// free slot.
const MaxPeriods = 520

// ParseStrategy returns the strategy named s.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Importance:
		return Importance, nil
	case Urgency:
		return Urgency, nil
	default:
		return "", errs.Scheduling(fmt.Errorf("unknown scheduling strategy %q", s))
	}
}

func (s Strategy) String() string { return string(s) }

func (s Strategy) compare(a, b domain.Task) int {
	byImportance := cmp.Compare(b.Importance, a.Importance)
	byDeadline := a.Deadline.Compare(b.Deadline)
	var c int
	if s == Urgency {
		c = cmp.Or(byDeadline, byImportance)
	} else {
		c = cmp.Or(byImportance, byDeadline)
	}
	return cmp.Or(c, cmp.Compare(a.ID, b.ID))
}

// Compute schedules every task in groups starting at now.
//
// The result is ordered by start time, which is also strategy order.
func Compute(groups []domain.SegmentTasks, strategy Strategy, now time.Time) (domain.Schedule, error) {
	if strategy != Importance && strategy != Urgency {
		return nil, errs.Scheduling(fmt.Errorf("unknown scheduling strategy %q", strategy))
	}

	segments := make(map[domain.ID]domain.TimeSegment, len(groups))
	var tasks []domain.Task
	for _, g := range groups {
		segments[g.Segment.ID] = g.Segment
		tasks = append(tasks, g.Tasks...)
	}
	slices.SortStableFunc(tasks, strategy.compare)

	out := make(domain.Schedule, 0, len(tasks))
	cursor := now
	for _, t := range tasks {
		seg, ok := segments[t.TimeSegmentID]
		if !ok {
			return nil, errs.Scheduling(fmt.Errorf("task %q references unknown time segment %d", t.Content, t.TimeSegmentID))
		}
		start, ok := earliestSlot(seg, cursor, t.Duration)
		if !ok {
			return nil, errs.Scheduling(fmt.Errorf("no room for task %q in time segment %q", t.Content, seg.Name))
		}
		out = append(out, domain.Scheduled{Task: t, When: start})
		cursor = start.Add(t.Duration)
	}
	return out, nil
}

// earliestSlot finds the first start >= from where d fits inside one window
// of seg. Ranges are assumed to lie within one period of each other.
func earliestSlot(seg domain.TimeSegment, from time.Time, d time.Duration) (time.Time, bool) {
	if len(seg.Ranges) == 0 {
		return time.Time{}, false
	}
	ranges := slices.Clone(seg.Ranges)
	slices.SortFunc(ranges, func(a, b domain.Range) int { return a.Start.Compare(b.Start) })

	periods := 1
	first := 0
	if seg.Period > 0 {
		periods = MaxPeriods
		// Skip repetitions that ended before from.
		if last := ranges[len(ranges)-1]; from.After(last.End) {
			first = int(from.Sub(last.End) / seg.Period)
		}
	}

	for k := first; k < first+periods; k++ {
		shift := time.Duration(k) * seg.Period
		for _, r := range ranges {
			w := r.Shift(shift)
			start := w.Start
			if from.After(start) {
				start = from
			}
			if start.Before(w.End) && !start.Add(d).After(w.End) {
				return start, true
			}
		}
	}
	return time.Time{}, false
}
