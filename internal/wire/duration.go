package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Seconds is a duration carried as a whole number of seconds.
type Seconds time.Duration

// maxSeconds is the largest whole number of seconds a time.Duration holds.
const maxSeconds = uint64(math.MaxInt64 / int64(time.Second))

// MarshalJSON truncates toward zero and rejects negative durations.
func (s Seconds) MarshalJSON() ([]byte, error) {
	d := time.Duration(s)
	if d < 0 {
		return nil, fmt.Errorf("duration %s is negative", d)
	}
	return strconv.AppendInt(nil, int64(d/time.Second), 10), nil
}

// UnmarshalJSON accepts a non-negative integer.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a number of seconds, got %s", data)
	}
	secs, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("duration %s is not a non-negative whole number of seconds", n)
	}
	if secs > maxSeconds {
		return fmt.Errorf("duration %s exceeds the maximum of %d seconds", n, maxSeconds)
	}
	*s = Seconds(time.Duration(secs) * time.Second)
	return nil
}

// Duration returns the value as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}
