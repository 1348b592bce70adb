package errs

import (
	"errors"
	"strings"
)

// Render flattens an error chain into "primary message. (cause1. cause2.)".
//
// Each link contributes only its own text: the part of its message that is not
// repeated by the error it wraps.
func Render(err error) string {
	if err == nil {
		return ""
	}

	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if msg := ownMessage(e); msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(terminate(parts[0]))
	if len(parts) > 1 {
		b.WriteString(" (")
		for i, p := range parts[1:] {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(terminate(p))
		}
		b.WriteString(")")
	}
	return b.String()
}

func ownMessage(err error) string {
	var msg string
	if e, ok := err.(*Error); ok {
		msg = e.message()
	} else {
		msg = err.Error()
		if next := errors.Unwrap(err); next != nil {
			msg = strings.TrimSuffix(msg, next.Error())
			msg = strings.TrimRight(msg, ": ")
		}
	}
	msg = strings.TrimSpace(msg)
	return strings.TrimRight(msg, ".")
}

func terminate(s string) string {
	if strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}
