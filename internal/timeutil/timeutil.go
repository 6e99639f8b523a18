// Package timeutil holds the duration and date conversions shared by the
// platform extractors.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO-8601 duration string such as "PT1H2M3S"
// into total seconds. Unparseable input yields 0, matching the upstream
// provider's "PT0S" default.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	days, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	hours, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(m[4]))
	return ((days*24+hours)*60+minutes)*60 + seconds
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// FormatDuration renders total seconds as HH:MM:SS. Hours do not wrap at
// 24, they keep counting.
func FormatDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ParseClock converts a clock string in H:MM:SS, MM:SS or SS form into
// total seconds.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed clock string: %q", s)
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("malformed clock string: %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatDateDMY renders a time as DD-MM-YYYY.
func FormatDateDMY(t time.Time) string {
	return t.Format("02-01-2006")
}

// UnixToDateDMY converts a Unix timestamp to DD-MM-YYYY in UTC.
func UnixToDateDMY(ts int64) string {
	return FormatDateDMY(time.Unix(ts, 0).UTC())
}

// ISOToDateDMY converts an ISO-8601 timestamp ("2021-06-15T00:00:00Z",
// with or without zone) to DD-MM-YYYY. The input is returned unchanged
// when it does not parse.
func ISOToDateDMY(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatDateDMY(t)
		}
	}
	return s
}

// DatePart returns the date portion of an ISO-8601 timestamp, discarding
// everything from the first 'T' on.
func DatePart(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}
