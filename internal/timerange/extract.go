package timerange

import (
	"time"

	"github.com/markusmobius/go-dateparser"
)

// searcherConfig builds the dateparser configuration used by free-text
// extraction: UTC anchored at now, with ambiguous dates resolved into the
// past so "Monday" means the most recent Monday.
func searcherConfig(now time.Time) *dateparser.Configuration {
	return &dateparser.Configuration{
		CurrentTime:         now,
		DefaultTimezone:     time.UTC,
		PreferredDateSource: dateparser.Past,
	}
}

// searchMentions returns every date mention found in the text, in document
// order. Extraction failures are treated as "no mentions".
func searchMentions(text string, now time.Time) []time.Time {
	_, entries, err := dateparser.Search(searcherConfig(now), text)
	if err != nil {
		return nil
	}

	out := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		if entry.Date.Time.IsZero() {
			continue
		}
		out = append(out, entry.Date.Time.UTC())
	}
	return out
}

// parseRelative attempts a whole-string relative parse ("3 days ago") as a
// last resort when no discrete mentions were found.
func parseRelative(text string, now time.Time) (time.Time, bool) {
	dt, err := dateparser.Parse(searcherConfig(now), text)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}
	return dt.Time.UTC(), true
}
