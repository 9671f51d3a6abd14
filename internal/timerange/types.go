// Package timerange resolves natural-language time expressions into absolute
// UTC windows. It supports two modes: canonical tokens produced by the intent
// classifier ("last_7_days", "past_10_days") and raw free-text queries
// ("what happened yesterday", "between 2pm and 5pm").
//
// Every timestamp leaving this package is an absolute UTC instant with
// millisecond precision. The resolver never fails: unrecognized input
// degrades to the last-hour default window, flagged with SourceDefaulted.
package timerange

import "time"

// Granularity is the time bucketing used when querying time-series backends.
type Granularity string

const (
	GranularityHourly Granularity = "HOURLY"
	GranularityDaily  Granularity = "DAILY"
)

// hourlyCutoffDays is the duration threshold for hourly bucketing. Windows of
// three days or less resolve hourly, everything longer resolves daily.
const hourlyCutoffDays = 3.0

// granularityFor derives the bucketing from a window duration in days.
func granularityFor(durationDays float64) Granularity {
	if durationDays <= hourlyCutoffDays {
		return GranularityHourly
	}
	return GranularityDaily
}

// Source records whether a resolved window reflects an expression the user
// actually wrote or the resolver's always-answer fallback.
type Source string

const (
	// SourceExplicit means the window was derived from a recognized expression.
	SourceExplicit Source = "explicit"
	// SourceDefaulted means parsing gave up and the default window was used.
	SourceDefaulted Source = "defaulted"
)

// TimeWindow is a closed UTC interval. Start <= End always holds on output;
// it is enforced by the resolver, never assumed of inputs.
type TimeWindow struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// StartMillis returns the window start as Unix milliseconds.
func (w TimeWindow) StartMillis() int64 { return w.Start.UnixMilli() }

// EndMillis returns the window end as Unix milliseconds.
func (w TimeWindow) EndMillis() int64 { return w.End.UnixMilli() }

// Duration returns the window width.
func (w TimeWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// ResolvedRange is one fully resolved time expression: the absolute window,
// its width in days, and the derived granularity. Created once per query and
// never mutated.
type ResolvedRange struct {
	Token        string      `json:"time_range,omitempty"`
	Window       TimeWindow  `json:"-"`
	StartTime    int64       `json:"start_time"`
	EndTime      int64       `json:"end_time"`
	DurationDays float64     `json:"duration_days"`
	Granularity  Granularity `json:"index"`
	Source       Source      `json:"source"`
}

// TimeResolution is the resolver's full answer: a primary range plus an
// optional comparison range when the caller supplied a second expression.
// ComparisonPending is set when free-text comparison intent ("vs", "versus",
// "compared to") was detected but no second window could be computed; dual
// free-text window extraction is not supported yet and callers must treat the
// flag as a typed not-yet-supported marker, not as a second range.
type TimeResolution struct {
	Primary           ResolvedRange  `json:"primary_range"`
	Comparison        *ResolvedRange `json:"comparison_range,omitempty"`
	ComparisonPending bool           `json:"comparison_pending,omitempty"`
}

// Granularity of the whole resolution follows the primary range.
func (r TimeResolution) Index() Granularity { return r.Primary.Granularity }

func newResolvedRange(token string, start, end time.Time, durationDays float64, source Source) ResolvedRange {
	return ResolvedRange{
		Token:        token,
		Window:       TimeWindow{Start: start, End: end},
		StartTime:    start.UnixMilli(),
		EndTime:      end.UnixMilli(),
		DurationDays: durationDays,
		Granularity:  granularityFor(durationDays),
		Source:       source,
	}
}
