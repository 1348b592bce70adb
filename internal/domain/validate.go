package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the struct tags of an entity or creation request.
// The returned error lists every failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid %s: %s", typeName(v), strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must not be negative"
	case "gtfield":
		return field + " must be after " + fe.Param()
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

func typeName(v any) string {
	switch v.(type) {
	case NewTask, *NewTask:
		return "new task"
	case Task, *Task:
		return "task"
	case NewTimeSegment, *NewTimeSegment:
		return "new time segment"
	case TimeSegment, *TimeSegment:
		return "time segment"
	default:
		return fmt.Sprintf("%T", v)
	}
}
