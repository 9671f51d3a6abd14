package timerange

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// minWindow is the narrowest window a query may resolve to. Narrower
	// results are widened by pulling the start back, preserving the end.
	minWindow = 5 * time.Minute
	// maxWindow caps windows at two years, preserving the end.
	maxWindow = 730 * 24 * time.Hour
)

var (
	comparisonRe = regexp.MustCompile(`\b(vs\.?|versus|compared?\s+to|compare)\b`)
	todayRe      = regexp.MustCompile(`\btoday\b`)
	yesterdayRe  = regexp.MustCompile(`\byesterday\b`)
	// inspectionRe marks "what happened yesterday"-style questions, which
	// want the full previous day rather than yesterday-start through now.
	inspectionRe = regexp.MustCompile(`(what|show|display|happened|errors?|issues?)`)
	// futureRe catches forward-looking phrases; the resolver refuses to
	// project into the future and falls back to the current hour.
	futureRe = regexp.MustCompile(`\b(tomorrow|next|in\s+\d+)`)
)

// ResolveQuery extracts and resolves a time window from a raw natural
// language query, anchored at now. It never returns an error: queries with
// no usable time expression resolve to the start of the current hour through
// now, flagged SourceDefaulted.
func ResolveQuery(query string, now time.Time) TimeResolution {
	now = now.UTC()
	lower := strings.ToLower(query)

	var (
		start   time.Time
		end     = now
		source  = SourceExplicit
		pending = comparisonRe.MatchString(lower)
	)

	switch {
	case todayRe.MatchString(lower):
		start = startOfDay(now)

	case yesterdayRe.MatchString(lower):
		yesterday := now.AddDate(0, 0, -1)
		start = startOfDay(yesterday)
		if inspectionRe.MatchString(lower) {
			end = startOfDay(now).Add(-time.Millisecond)
		}

	case futureRe.MatchString(lower):
		// Forward-looking queries get the current hour instead of a
		// future window; the window does not reflect the asked range.
		start = startOfHour(now)
		source = SourceDefaulted

	default:
		start, end, source = extractWindow(query, lower, now)
	}

	start, end = clampWindow(start, end, now)

	durationDays := daysBetween(start, end)
	return TimeResolution{
		Primary:           newResolvedRange("", start, end, durationDays, source),
		ComparisonPending: pending,
	}
}

// extractWindow runs the general date-mention extractor over the query.
// Two or more mentions become a range, one mention pairs with now, and no
// mentions falls through to a single relative-phrase parse before defaulting.
func extractWindow(query, lower string, now time.Time) (start, end time.Time, source Source) {
	end = now
	source = SourceExplicit

	mentions := searchMentions(query, now)
	switch {
	case len(mentions) >= 2:
		sort.Slice(mentions, func(i, j int) bool { return mentions[i].Before(mentions[j]) })
		return mentions[0], mentions[len(mentions)-1], source

	case len(mentions) == 1:
		if strings.Contains(lower, "from now") {
			// "3 days from now": the mention is a future end time.
			return now, mentions[0], source
		}
		return mentions[0], now, source

	default:
		if t, ok := parseRelative(query, now); ok {
			return t, now, source
		}
		return startOfHour(now), now, SourceDefaulted
	}
}

// clampWindow applies the unconditional post-processing invariants: swap an
// inverted window, clamp the end to now, then enforce the minimum and
// maximum widths while preserving the end.
func clampWindow(start, end, now time.Time) (time.Time, time.Time) {
	if start.After(end) {
		start, end = end, start
	}
	if end.After(now) {
		end = now
	}
	if end.Sub(start) < minWindow {
		start = end.Add(-minWindow)
	}
	if end.Sub(start) > maxWindow {
		start = end.Add(-maxWindow)
	}
	return start, end
}
