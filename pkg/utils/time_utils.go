package utils

import "time"

const daySeconds = 24 * 60 * 60

func NowUnixSeconds() int64 { return time.Now().Unix() }

// DaysRemaining returns the whole days left until end (unix seconds), rounding
// partial days up. Never negative.
func DaysRemaining(end int64, now time.Time) int {
	left := end - now.Unix()
	if left <= 0 {
		return 0
	}
	return int((left + daySeconds - 1) / daySeconds)
}

// FromUnixSeconds converts an epoch value in seconds to a local time.
// Returns zero time if t<=0 to let callers decide how to render.
func FromUnixSeconds(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0)
}

func FormatRFC3339(t int64) string {
	if t <= 0 {
		return ""
	}
	return time.Unix(t, 0).Format(time.RFC3339)
}

// FormatRFC3339Ptr renders an optional unix-seconds column for API snapshots;
// nil stays nil so JSON carries an explicit null.
func FormatRFC3339Ptr(t *int64) *string {
	if t == nil || *t <= 0 {
		return nil
	}
	s := time.Unix(*t, 0).Format(time.RFC3339)
	return &s
}
