// Package timeutil centralizes the fixed America/New_York timestamp
// convention and duration formatting shared by commit suffixes, hook status
// lines, and hook output filenames.
package timeutil

import (
	"fmt"
	"time"
)

// TimestampLayout is the current two-digit-year, underscore-separated layout
// written by new code: YYmmdd_HHMMSS, e.g. "260730_143022".
const TimestampLayout = "060102_150405"

// LegacyTimestampLayout is the older layout still accepted when parsing
// existing suffixes and hook output filenames: YYmmddHHMMSS with no
// separator, e.g. "260730143022".
const LegacyTimestampLayout = "060102150405"

const (
	// ZombieThreshold is how long a RUNNING hook status line may age,
	// measured from its own timestamp, before it counts as a zombie. The
	// hook scheduler's zombie sweep takes its threshold from pkg/config,
	// whose default is this same value; no process liveness is checked.
	ZombieThreshold = 2 * time.Hour

	// StaleFixHookThreshold bounds how long a fix-hook run may stay RUNNING
	// before the scheduler treats it as abandoned.
	StaleFixHookThreshold = 1 * time.Hour

	// StaleCommentThreshold bounds how long an unresolved critique comment
	// may go without a reply before it is flagged as an error suffix.
	StaleCommentThreshold = 2 * time.Hour
)

var location = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// America/New_York must ship with every Go tzdata-capable runtime;
		// a missing zoneinfo database is an environment defect, not
		// something callers can recover from.
		panic(fmt.Sprintf("timeutil: load location %q: %v", name, err))
	}
	return loc
}

// Now returns the current time in the fixed America/New_York zone used
// throughout the file formats.
func Now() time.Time {
	return time.Now().In(location)
}

// FormatTimestamp renders t using the current TimestampLayout, e.g.
// "260730_143022".
func FormatTimestamp(t time.Time) string {
	return t.In(location).Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp string in either the current
// (YYmmdd_HHMMSS) or legacy (YYmmddHHMMSS) layout, returning it localized to
// America/New_York.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimestampLayout, s, location); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(LegacyTimestampLayout, s, location); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timeutil: %q is not a valid timestamp (want %s or legacy %s)", s, TimestampLayout, LegacyTimestampLayout)
}

// FormatDuration renders d the way hook and workflow status lines do:
// "XhYmZs" when at least an hour has elapsed, "YmZs" when at least a minute
// has, and plain "Zs" otherwise. Zero-valued leading units are omitted
// entirely rather than printed as "0h" or "0m".
func FormatDuration(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// DurationSince computes the elapsed duration between two parsed timestamps,
// as used to evaluate hook and agent suffixes against the staleness
// thresholds above.
func DurationSince(start, end time.Time) time.Duration {
	return end.Sub(start)
}
