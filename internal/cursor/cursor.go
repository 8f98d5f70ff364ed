// Package cursor encodes listing positions as opaque, URL-safe tokens.
//
// A token is base64url JSON in one of two closed shapes, one per sort mode:
//
//	{"serviceDate":"2025-02-09","createdAtMs":1739100000000}
//	{"savedCount":12,"createdAtMs":1739100000000}
//
// Decoding is strict about the shape so a token minted under one sort mode is
// never read as a position under the other.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

type Kind string

const (
	KindRecent    Kind = "recent"
	KindMostSaved Kind = "mostSaved"
)

var ErrEncoding = errors.New("cursor encoding failed")

type Cursor struct {
	Kind        Kind
	ServiceDate string
	SavedCount  int64
	CreatedAtMs int64
}

func Recent(serviceDate string, createdAtMs int64) Cursor {
	return Cursor{Kind: KindRecent, ServiceDate: serviceDate, CreatedAtMs: createdAtMs}
}

func MostSaved(savedCount, createdAtMs int64) Cursor {
	return Cursor{Kind: KindMostSaved, SavedCount: savedCount, CreatedAtMs: createdAtMs}
}

// Matches reports whether the cursor was minted for the given sort mode.
func (c Cursor) Matches(sort string) bool {
	return string(c.Kind) == sort
}

type recentShape struct {
	ServiceDate string `json:"serviceDate"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

type mostSavedShape struct {
	SavedCount  int64 `json:"savedCount"`
	CreatedAtMs int64 `json:"createdAtMs"`
}

func Encode(c Cursor) (string, error) {
	var v any
	switch c.Kind {
	case KindRecent:
		v = recentShape{ServiceDate: c.ServiceDate, CreatedAtMs: c.CreatedAtMs}
	case KindMostSaved:
		v = mostSavedShape{SavedCount: c.SavedCount, CreatedAtMs: c.CreatedAtMs}
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrEncoding, c.Kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode returns nil for an empty or malformed token. It never fails: callers
// treat a bad cursor as the start of the listing.
func Decode(token string) *Cursor {
	if token == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(token); err != nil {
			return nil
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}
	if len(fields) != 2 {
		return nil
	}

	createdAtMs, ok := wholeNumber(fields["createdAtMs"])
	if !ok {
		return nil
	}

	if rawDate, has := fields["serviceDate"]; has {
		var date string
		if err := json.Unmarshal(rawDate, &date); err != nil || !isJSONString(rawDate) {
			return nil
		}
		c := Recent(date, createdAtMs)
		return &c
	}
	if rawSaved, has := fields["savedCount"]; has {
		saved, ok := wholeNumber(rawSaved)
		if !ok || saved < 0 {
			return nil
		}
		c := MostSaved(saved, createdAtMs)
		return &c
	}
	return nil
}

func wholeNumber(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || isJSONString(raw) {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
