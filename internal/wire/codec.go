package wire

import (
	"encoding/json"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
)

// DecodeNewTask decodes and validates a task creation request.
func DecodeNewTask(data []byte) (domain.NewTask, error) {
	var doc NewTaskDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewTask{}, errs.Serialisation("while deserialising a new task", err)
	}
	t := doc.Domain()
	if err := domain.Validate(t); err != nil {
		return domain.NewTask{}, errs.Serialisation("while deserialising a new task", err)
	}
	return t, nil
}

// DecodeTask decodes and validates a full task record.
func DecodeTask(data []byte) (domain.Task, error) {
	var doc TaskDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Task{}, errs.Serialisation("while deserialising a task", err)
	}
	t := doc.Domain()
	if err := domain.Validate(t); err != nil {
		return domain.Task{}, errs.Serialisation("while deserialising a task", err)
	}
	return t, nil
}

// DecodeNewTimeSegment decodes and validates a time segment creation request.
func DecodeNewTimeSegment(data []byte) (domain.NewTimeSegment, error) {
	var doc NewTimeSegmentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewTimeSegment{}, errs.Serialisation("while deserialising a new time segment", err)
	}
	s := doc.Domain()
	if err := domain.Validate(s); err != nil {
		return domain.NewTimeSegment{}, errs.Serialisation("while deserialising a new time segment", err)
	}
	return s, nil
}

// DecodeTimeSegment decodes and validates a full time segment record.
func DecodeTimeSegment(data []byte) (domain.TimeSegment, error) {
	var doc TimeSegmentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.TimeSegment{}, errs.Serialisation("while deserialising a time segment", err)
	}
	s := doc.Domain()
	if err := domain.Validate(s); err != nil {
		return domain.TimeSegment{}, errs.Serialisation("while deserialising a time segment", err)
	}
	return s, nil
}

// EncodeTask renders a task document.
func EncodeTask(t domain.Task) ([]byte, error) {
	return encode("while serialising a task", FromTask(t))
}

// EncodeNewTask renders a task creation document (no identifier).
func EncodeNewTask(t domain.NewTask) ([]byte, error) {
	return encode("while serialising a task", FromNewTask(t))
}

// EncodeTasks renders a list of task documents.
func EncodeTasks(ts []domain.Task) ([]byte, error) {
	docs := make([]TaskDoc, len(ts))
	for i, t := range ts {
		docs[i] = FromTask(t)
	}
	return encode("while serialising tasks", docs)
}

// EncodeTimeSegment renders a time segment document.
func EncodeTimeSegment(s domain.TimeSegment) ([]byte, error) {
	return encode("while serialising a time segment", FromTimeSegment(s))
}

// EncodeNewTimeSegment renders a time segment creation document.
func EncodeNewTimeSegment(s domain.NewTimeSegment) ([]byte, error) {
	return encode("while serialising a time segment", FromNewTimeSegment(s))
}

// EncodeTimeSegments renders a list of time segment documents.
func EncodeTimeSegments(ss []domain.TimeSegment) ([]byte, error) {
	docs := make([]TimeSegmentDoc, len(ss))
	for i, s := range ss {
		docs[i] = FromTimeSegment(s)
	}
	return encode("while serialising time segments", docs)
}

// EncodeSchedule renders a schedule in the order given.
func EncodeSchedule(s domain.Schedule) ([]byte, error) {
	return encode("while serialising a schedule", FromSchedule(s))
}

func encode(context string, v any) ([]byte, error) {
	b, err := Canonical(v)
	if err != nil {
		return nil, errs.Serialisation(context, err)
	}
	return b, nil
}
