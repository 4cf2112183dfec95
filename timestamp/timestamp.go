// Package timestamp turns the several shapes a stored timestamp can take into
// one naive local wall-clock time.
//
// Stored documents carry ISO strings, native time values or epoch-bearing
// objects. Each is resolved once into a Value and normalized with Normalize.
// Epoch values follow fromtimestamp semantics: the instant is rendered in the
// configured location and from then on treated as a wall-clock reading with
// no zone attached.
package timestamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Layout is the ISO layout used when a naive local time is written out.
const Layout = "2006-01-02T15:04:05.999999"

var (
	ErrMissing     = errors.New("timestamp: missing")
	ErrUnsupported = errors.New("timestamp: unsupported representation")
)

// Value is one of ISOString, WallClock or Epoch.
type Value interface {
	timestamp()
}

type ISOString string

type WallClock time.Time

type Epoch struct {
	Seconds int64
	Nanos   int64
}

func (ISOString) timestamp() {}
func (WallClock) timestamp() {}
func (Epoch) timestamp()     {}

// isoLayouts mirrors what datetime.fromisoformat accepts.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FromAny resolves a raw decoded field into a Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrMissing
	case string:
		if x == "" {
			return nil, ErrMissing
		}
		return ISOString(x), nil
	case time.Time:
		if x.IsZero() {
			return nil, ErrMissing
		}
		return WallClock(x), nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil, ErrMissing
		}
		return WallClock(*x), nil
	case Value:
		return x, nil
	case map[string]any:
		return epochFromMap(x)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func epochFromMap(m map[string]any) (Value, error) {
	sec, ok := firstNumber(m, "seconds", "_seconds")
	if !ok {
		return nil, fmt.Errorf("%w: object without seconds", ErrUnsupported)
	}
	nanos, _ := firstNumber(m, "nanos", "nanoseconds", "_nanoseconds")
	return Epoch{Seconds: int64(sec), Nanos: int64(nanos)}, nil
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f, true
			}
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Normalize converts v into a wall-clock time in loc. A nil loc means time.Local.
func Normalize(v Value, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	switch x := v.(type) {
	case nil:
		return time.Time{}, ErrMissing
	case ISOString:
		t, err := parseISO(string(x))
		if err != nil {
			return time.Time{}, err
		}
		return wall(t, loc), nil
	case WallClock:
		return wall(time.Time(x), loc), nil
	case Epoch:
		return time.Unix(x.Seconds, x.Nanos).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// NormalizeAny is FromAny followed by Normalize.
func NormalizeAny(raw any, loc *time.Location) (time.Time, error) {
	v, err := FromAny(raw)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(v, loc)
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: invalid isoformat string %q", s)
}

// wall keeps the clock reading of t and drops its zone.
func wall(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
