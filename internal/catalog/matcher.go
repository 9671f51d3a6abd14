package catalog

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the minimum similarity score a candidate needs to be
// reported as a match.
const DefaultThreshold = 0.3

// Substring hits are floored at these scores so a literal path or name
// fragment always outranks a weak whole-string similarity.
const (
	pathSubstringFloor = 0.70
	nameSubstringFloor = 0.60
)

// MatchKind tells how a candidate matched the query.
type MatchKind string

const (
	MatchSimilarity      MatchKind = "similarity"
	MatchSubstringInPath MatchKind = "substring_in_path"
	MatchSubstringInName MatchKind = "substring_in_name"
)

// Match is one scored catalog hit.
type Match struct {
	ServiceID   int       `json:"service_id"`
	ServiceName string    `json:"service_name"`
	ServicePath string    `json:"service_path"`
	Score       float64   `json:"similarity_score"`
	Kind        MatchKind `json:"match_type"`
}

// FindMatches scores every cataloged service against the query and returns
// up to maxResults hits at or above the threshold, best first. Ties keep
// catalog order (ascending service id), so results are deterministic.
// A maxResults of zero or less means no limit.
func (c *Catalog) FindMatches(query string, threshold float64, maxResults int) []Match {
	needle := normalize(query)
	if needle == "" {
		return nil
	}

	var out []Match
	for _, id := range c.ids {
		entry := c.services[id]
		path := normalize(entry.ServicePath)
		name := normalize(entry.ServiceName)

		score := similarity(needle, path)
		kind := MatchSimilarity

		switch {
		case path != "" && strings.Contains(path, needle):
			kind = MatchSubstringInPath
			if score < pathSubstringFloor {
				score = pathSubstringFloor
			}
		case strings.Contains(name, needle):
			kind = MatchSubstringInName
			if score < nameSubstringFloor {
				score = nameSubstringFloor
			}
		}

		if score < threshold {
			continue
		}
		out = append(out, Match{
			ServiceID:   id,
			ServiceName: entry.ServiceName,
			ServicePath: entry.ServicePath,
			Score:       score,
			Kind:        kind,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// FindBestMatch returns the single best hit. The second return is false when
// nothing cleared the threshold; that is an expected outcome, not an error.
func (c *Catalog) FindBestMatch(query string, threshold float64) (Match, bool) {
	matches := c.FindMatches(query, threshold, 1)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// similarity is the Ratcliff/Obershelp ratio over individual characters,
// in [0, 1].
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
