package substatus

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexTime tolerates the timestamp shapes that appear in subscription
// snapshots and event logs coming from different backend generations:
// RFC3339 strings, bare epoch numbers in assorted units, and a legacy
// dd/MM/yyyy form. Anything unparseable decodes to the zero value instead of
// an error; absence of data is never fatal here.
type FlexTime struct {
	t time.Time
}

func NewFlexTime(t time.Time) FlexTime { return FlexTime{t: t} }

// Time returns the parsed value, or nil when absent/unparseable.
func (f FlexTime) Time() *time.Time {
	if f.t.IsZero() {
		return nil
	}
	t := f.t
	return &t
}

func (f FlexTime) InFuture(now time.Time) bool {
	return !f.t.IsZero() && f.t.After(now)
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	f.t = time.Time{}

	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		f.t = parseString(s)
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.t = fromEpochAuto(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		f.t = fromEpochAuto(int64(fl))
		return nil
	}
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.t.Format(time.RFC3339))
}

// Parse applies the same tolerance to an already-decoded value.
func Parse(v any) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		t := parseString(x)
		if t.IsZero() {
			return nil
		}
		return &t
	case float64:
		t := fromEpochAuto(int64(x))
		if t.IsZero() {
			return nil
		}
		return &t
	case int64:
		t := fromEpochAuto(x)
		if t.IsZero() {
			return nil
		}
		return &t
	case int:
		t := fromEpochAuto(int64(x))
		if t.IsZero() {
			return nil
		}
		return &t
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return &x
	default:
		return nil
	}
}

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	// Legacy dd/MM/yyyy rows mean "until the end of that day".
	if t, err := time.ParseInLocation("02/01/2006", s, time.Local); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.Local)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpochAuto(n)
	}

	return time.Time{}
}

// fromEpochAuto guesses the unit of a bare epoch number. Thresholds are
// approximate around the current epoch; store seconds if you can.
func fromEpochAuto(x int64) time.Time {
	if x <= 0 {
		return time.Time{}
	}
	switch {
	case x < 1e11: // seconds
		return time.Unix(x, 0)
	case x < 1e14: // milliseconds
		return time.Unix(x/1e3, (x%1e3)*1e6)
	case x < 1e17: // microseconds
		return time.Unix(x/1e6, (x%1e6)*1e3)
	default: // nanoseconds
		return time.Unix(x/1e9, x%1e9)
	}
}
