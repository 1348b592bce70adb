package wire

import (
	"encoding/json"
	"time"

	"github.com/roach88/eva/internal/domain"
)

// NewTaskDoc is the document shape of a task creation request.
type NewTaskDoc struct {
	Content       string    `json:"content"`
	Deadline      time.Time `json:"deadline"`
	Duration      Seconds   `json:"duration"`
	Importance    uint32    `json:"importance"`
	TimeSegmentID ID        `json:"time_segment_id"`
}

// TaskDoc is the document shape of a stored task.
type TaskDoc struct {
	ID            ID        `json:"id"`
	Content       string    `json:"content"`
	Deadline      time.Time `json:"deadline"`
	Duration      Seconds   `json:"duration"`
	Importance    uint32    `json:"importance"`
	TimeSegmentID ID        `json:"time_segment_id"`
}

// UnmarshalJSON accepts "_id" when "id" is absent.
func (d *TaskDoc) UnmarshalJSON(data []byte) error {
	type plain TaskDoc
	aux := struct {
		plain
		StoreID *ID `json:"_id"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = TaskDoc(aux.plain)
	if aux.StoreID != nil && !hasKey(data, "id") {
		d.ID = *aux.StoreID
	}
	return nil
}

// FromNewTask converts a creation request to its document.
func FromNewTask(t domain.NewTask) NewTaskDoc {
	return NewTaskDoc{
		Content:       t.Content,
		Deadline:      t.Deadline.UTC(),
		Duration:      Seconds(t.Duration),
		Importance:    t.Importance,
		TimeSegmentID: ID(t.TimeSegmentID),
	}
}

// Domain converts the document to a creation request.
func (d NewTaskDoc) Domain() domain.NewTask {
	return domain.NewTask{
		Content:       d.Content,
		Deadline:      d.Deadline.UTC(),
		Duration:      d.Duration.Duration(),
		Importance:    d.Importance,
		TimeSegmentID: d.TimeSegmentID.Domain(),
	}
}

// FromTask converts a task to its document.
func FromTask(t domain.Task) TaskDoc {
	return TaskDoc{
		ID:            ID(t.ID),
		Content:       t.Content,
		Deadline:      t.Deadline.UTC(),
		Duration:      Seconds(t.Duration),
		Importance:    t.Importance,
		TimeSegmentID: ID(t.TimeSegmentID),
	}
}

// Domain converts the document to a task.
func (d TaskDoc) Domain() domain.Task {
	return domain.Task{
		ID:            d.ID.Domain(),
		Content:       d.Content,
		Deadline:      d.Deadline.UTC(),
		Duration:      d.Duration.Duration(),
		Importance:    d.Importance,
		TimeSegmentID: d.TimeSegmentID.Domain(),
	}
}

// hasKey reports whether the top-level JSON object in data has key.
func hasKey(data []byte, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
