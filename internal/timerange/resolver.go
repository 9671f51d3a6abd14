package timerange

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// lastHourDays is the duration recorded for the one-hour default window,
// kept at the historical 0.04 value rather than the exact 1/24.
const lastHourDays = 0.04

// dynamicTokenRe matches "past_<N>_<unit>" and "past <N> <unit>" with
// singular or plural units. Matching is a prefix match, so trailing
// qualifiers do not break recognition.
var dynamicTokenRe = regexp.MustCompile(`^past[_\s](\d+)[_\s](hour|hours|day|days|week|weeks|month|months)`)

// ResolveToken resolves a canonical time-range token (and an optional
// comparison token) against the reference instant now. Unknown or empty
// tokens degrade to the last-hour default. The comparison token, when
// present, runs through the same logic independently.
func ResolveToken(token, comparison string, now time.Time) TimeResolution {
	now = now.UTC()

	res := TimeResolution{Primary: parseToken(token, now)}
	if comparison != "" {
		c := parseToken(comparison, now)
		res.Comparison = &c
	}
	return res
}

// parseToken resolves a single token. Dynamic "past_N_unit" tokens take
// priority over the static table; anything unrecognized falls back to the
// last-hour window with a defaulted source.
func parseToken(token string, now time.Time) ResolvedRange {
	normalized := strings.ToLower(strings.TrimSpace(token))

	if r, ok := parseDynamicToken(normalized, now); ok {
		return r
	}

	switch normalized {
	case "today":
		start := startOfDay(now)
		return newResolvedRange(normalized, start, now, daysBetween(start, now), SourceExplicit)

	case "yesterday":
		// Full previous UTC day.
		start := startOfDay(now.AddDate(0, 0, -1))
		end := startOfDay(now)
		return newResolvedRange(normalized, start, end, 1, SourceExplicit)

	case "this_week":
		start := startOfWeek(now)
		return newResolvedRange(normalized, start, now, 7, SourceExplicit)

	case "last_week":
		end := startOfWeek(now)
		start := end.AddDate(0, 0, -7)
		return newResolvedRange(normalized, start, end, 7, SourceExplicit)

	case "last_3_days":
		return daysBackRange(normalized, 3, now)

	case "last_7_days":
		return daysBackRange(normalized, 7, now)

	case "last_30_days":
		return daysBackRange(normalized, 30, now)

	case "last_month", "this_month":
		// Months are always approximated as 30 days; this is a deliberate
		// simplification, not a calendar-month calculation.
		return daysBackRange(normalized, 30, now)

	case "last_24_hours":
		return newResolvedRange(normalized, now.Add(-24*time.Hour), now, 1, SourceExplicit)

	case "last_hour", "current":
		return newResolvedRange(normalized, now.Add(-time.Hour), now, lastHourDays, SourceExplicit)

	default:
		// Empty or unrecognized: last hour, but flagged as defaulted so
		// callers can tell it apart from an explicit "last_hour".
		return newResolvedRange("last_hour", now.Add(-time.Hour), now, lastHourDays, SourceDefaulted)
	}
}

// parseDynamicToken handles past_N_{hour,day,week,month} tokens.
func parseDynamicToken(token string, now time.Time) (ResolvedRange, bool) {
	m := dynamicTokenRe.FindStringSubmatch(token)
	if m == nil {
		return ResolvedRange{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return ResolvedRange{}, false
	}
	unit := strings.TrimSuffix(m[2], "s")

	switch unit {
	case "hour":
		start := now.Add(-time.Duration(n) * time.Hour)
		return newResolvedRange(token, start, now, float64(n)/24.0, SourceExplicit), true
	case "day":
		return daysBackRange(token, n, now), true
	case "week":
		return daysBackRange(token, n*7, now), true
	case "month":
		// 30-day month approximation.
		return daysBackRange(token, n*30, now), true
	}
	return ResolvedRange{}, false
}

// daysBackRange builds the window [start-of-day(now-n days), now].
func daysBackRange(token string, n int, now time.Time) ResolvedRange {
	start := startOfDay(now.AddDate(0, 0, -n))
	return newResolvedRange(token, start, now, float64(n), SourceExplicit)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfHour(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday 00:00 UTC at or before t.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	// time.Weekday counts Sunday as 0; shift so Monday is the week anchor.
	offset := (weekday + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func daysBetween(start, end time.Time) float64 {
	return end.Sub(start).Seconds() / 86400.0
}
