package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/eva/internal/domain"
)

// ID is an identifier field. It encodes as a JSON integer and decodes from an
// integer or a numeric string.
type ID uint32

// idForm is the representation an identifier arrived in.
type idForm int

const (
	idInteger idForm = iota
	idString
)

// MarshalJSON encodes the identifier as an integer.
func (id ID) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(id), 10), nil
}

// UnmarshalJSON accepts 42 or "42".
func (id *ID) UnmarshalJSON(data []byte) error {
	raw, form, err := splitID(data)
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		if form == idString {
			return fmt.Errorf("identifier %q is not an unsigned 32-bit integer", raw)
		}
		return fmt.Errorf("identifier %s is not an unsigned 32-bit integer", raw)
	}
	*id = ID(n)
	return nil
}

// String returns the decimal form used as a store key.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Domain converts to the domain identifier.
func (id ID) Domain() domain.ID {
	return domain.ID(id)
}

func splitID(data []byte) (string, idForm, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", 0, fmt.Errorf("identifier is empty")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", 0, fmt.Errorf("identifier: %w", err)
		}
		return s, idString, nil
	case 'n':
		return "", 0, fmt.Errorf("identifier must not be null")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", 0, fmt.Errorf("identifier must be an integer or a numeric string, got %s", data)
		}
		return n.String(), idInteger, nil
	}
}

// ParseID parses a decimal identifier as typed on a command line or used as a
// store key.
func ParseID(s string) (domain.ID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("identifier %q is not an unsigned 32-bit integer", s)
	}
	return domain.ID(n), nil
}

// FormatID renders a domain identifier as a store key.
func FormatID(id domain.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}
