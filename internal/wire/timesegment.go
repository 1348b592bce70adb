package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/eva/internal/domain"
)

// RangeDoc is a half-open time range. It encodes as {"start":..,"end":..}
// and also decodes from a two-element array, the form older stores wrote.
type RangeDoc struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UnmarshalJSON accepts an object or a [start, end] pair.
func (r *RangeDoc) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []time.Time
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("range: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("range must have exactly 2 bounds, got %d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}
	type plain RangeDoc
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	*r = RangeDoc(p)
	return nil
}

// NewTimeSegmentDoc is the document shape of a time segment creation request.
type NewTimeSegmentDoc struct {
	Name   string     `json:"name"`
	Ranges []RangeDoc `json:"ranges"`
	Start  time.Time  `json:"start"`
	Period Seconds    `json:"period"`
}

// TimeSegmentDoc is the document shape of a stored time segment.
type TimeSegmentDoc struct {
	ID     ID         `json:"id"`
	Name   string     `json:"name"`
	Ranges []RangeDoc `json:"ranges"`
	Start  time.Time  `json:"start"`
	Period Seconds    `json:"period"`
}

// UnmarshalJSON accepts "_id" when "id" is absent.
func (d *TimeSegmentDoc) UnmarshalJSON(data []byte) error {
	type plain TimeSegmentDoc
	aux := struct {
		plain
		StoreID *ID `json:"_id"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = TimeSegmentDoc(aux.plain)
	if aux.StoreID != nil && !hasKey(data, "id") {
		d.ID = *aux.StoreID
	}
	return nil
}

// FromNewTimeSegment converts a creation request to its document.
func FromNewTimeSegment(s domain.NewTimeSegment) NewTimeSegmentDoc {
	return NewTimeSegmentDoc{
		Name:   s.Name,
		Ranges: fromRanges(s.Ranges),
		Start:  s.Start.UTC(),
		Period: Seconds(s.Period),
	}
}

// Domain converts the document to a creation request.
func (d NewTimeSegmentDoc) Domain() domain.NewTimeSegment {
	return domain.NewTimeSegment{
		Name:   d.Name,
		Ranges: toRanges(d.Ranges),
		Start:  d.Start.UTC(),
		Period: d.Period.Duration(),
	}
}

// FromTimeSegment converts a time segment to its document.
func FromTimeSegment(s domain.TimeSegment) TimeSegmentDoc {
	return TimeSegmentDoc{
		ID:     ID(s.ID),
		Name:   s.Name,
		Ranges: fromRanges(s.Ranges),
		Start:  s.Start.UTC(),
		Period: Seconds(s.Period),
	}
}

// Domain converts the document to a time segment.
func (d TimeSegmentDoc) Domain() domain.TimeSegment {
	return domain.TimeSegment{
		ID:     d.ID.Domain(),
		Name:   d.Name,
		Ranges: toRanges(d.Ranges),
		Start:  d.Start.UTC(),
		Period: d.Period.Duration(),
	}
}

func fromRanges(rs []domain.Range) []RangeDoc {
	out := make([]RangeDoc, len(rs))
	for i, r := range rs {
		out[i] = RangeDoc{Start: r.Start.UTC(), End: r.End.UTC()}
	}
	return out
}

func toRanges(rs []RangeDoc) []domain.Range {
	out := make([]domain.Range, len(rs))
	for i, r := range rs {
		out[i] = domain.Range{Start: r.Start.UTC(), End: r.End.UTC()}
	}
	return out
}
