// Package cliptime parses clip start/end times into whole seconds and checks
// clip timing for implausible or corrupted values.
package cliptime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidTimeFormat = errors.New("invalid time format")

const (
	MaxSeconds      = 24 * 60 * 60
	maxMinutesOnly  = 1440
	sexagesimalBase = 60
)

// ParseSeconds converts a time given as a whole number of seconds, a digit
// string, "mm:ss" or "hh:mm:ss" into seconds. Results above 24 hours are rejected.
func ParseSeconds(input any) (int, error) {
	switch v := input.(type) {
	case int:
		return checkTotal(int64(v), input)
	case int64:
		return checkTotal(v, input)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v is not a whole number of seconds", ErrInvalidTimeFormat, v)
		}
		if v > MaxSeconds {
			return 0, fmt.Errorf("%w: %v exceeds 24 hours", ErrInvalidTimeFormat, v)
		}
		return checkTotal(int64(v), input)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return checkTotal(n, input)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, v.String())
		}
		return ParseSeconds(f)
	case string:
		return parseString(v)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimeFormat, input)
	}
}

func parseString(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty time", ErrInvalidTimeFormat)
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
		}
		return checkTotal(n, raw)
	}

	if !strings.Contains(s, ":") {
		return 0, fmt.Errorf("%w: %q (expected seconds, mm:ss or hh:mm:ss)", ErrInvalidTimeFormat, raw)
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q (expected mm:ss or hh:mm:ss)", ErrInvalidTimeFormat, raw)
	}

	values := make([]int64, len(parts))
	for i, part := range parts {
		if !isDigits(part) {
			return 0, fmt.Errorf("%w: %q has a non-numeric component", ErrInvalidTimeFormat, raw)
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
		}
		if i > 0 && n >= sexagesimalBase {
			return 0, fmt.Errorf("%w: %q has minutes or seconds of 60 or more", ErrInvalidTimeFormat, raw)
		}
		values[i] = n
	}

	var total int64
	if len(values) == 3 {
		if values[0] > MaxSeconds/3600 {
			return 0, fmt.Errorf("%w: %q exceeds 24 hours", ErrInvalidTimeFormat, raw)
		}
		total = values[0]*3600 + values[1]*60 + values[2]
	} else {
		if values[0] > maxMinutesOnly {
			return 0, fmt.Errorf("%w: %q has more than %d minutes", ErrInvalidTimeFormat, raw, maxMinutesOnly)
		}
		total = values[0]*60 + values[1]
	}
	return checkTotal(total, raw)
}

func checkTotal(n int64, input any) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %v is negative", ErrInvalidTimeFormat, input)
	}
	if n > MaxSeconds {
		return 0, fmt.Errorf("%w: %v exceeds 24 hours", ErrInvalidTimeFormat, input)
	}
	return int(n), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatSeconds renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatSeconds(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%d:%02d", sign, m, s)
}

// TimeValue is a request-body time that may arrive as a JSON string or number.
type TimeValue struct {
	raw any
	set bool
}

func NewTimeValue(v any) TimeValue {
	return TimeValue{raw: v, set: v != nil}
}

func (t *TimeValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimeFormat, n)
		}
		v = f
	}
	t.raw = v
	t.set = v != nil
	return nil
}

func (t TimeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.raw)
}

func (t TimeValue) IsSet() bool { return t.set }

// Seconds parses the value with ParseSeconds.
func (t TimeValue) Seconds() (int, error) {
	if !t.set {
		return 0, fmt.Errorf("%w: time is required", ErrInvalidTimeFormat)
	}
	return ParseSeconds(t.raw)
}
