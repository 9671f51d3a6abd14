package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/slopilot/slopilot/internal/timerange"
)

// ErrUnknownIntent marks a classification whose primary intent is not on the
// allow-list. This aborts the whole request.
var ErrUnknownIntent = errors.New("unknown intent")

// Model is the LLM call behind the classifier.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Entities are the slots extracted from the user question. Service and
// ComparisonRange are nil when not mentioned; the model is instructed to
// emit null rather than guess.
type Entities struct {
	Service         *string `json:"service"`
	TimeRange       string  `json:"time_range"`
	ComparisonRange *string `json:"comparison_range"`
}

// Classification is the full classifier output: the model's intents and
// entities, the enrichment expansion, the derived data sources, and the
// resolved time window.
type Classification struct {
	Query             string                   `json:"query"`
	PrimaryIntent     string                   `json:"primary_intent"`
	SecondaryIntents  []string                 `json:"secondary_intents"`
	Entities          Entities                 `json:"entities"`
	EnrichedIntents   []string                 `json:"enriched_intents"`
	DataSources       []string                 `json:"data_sources"`
	EnrichmentDetails map[string][]string      `json:"enrichment_details,omitempty"`
	TimeResolution    timerange.TimeResolution `json:"timestamp_resolution"`
}

// Needs reports whether the classification requires the named data source.
func (c *Classification) Needs(dataSource string) bool {
	for _, ds := range c.DataSources {
		if ds == dataSource {
			return true
		}
	}
	return false
}

// HasIntent reports whether the intent is among the enriched intents.
func (c *Classification) HasIntent(intent string) bool {
	for _, in := range c.EnrichedIntents {
		if in == intent {
			return true
		}
	}
	return false
}

// Classifier drives the LLM classification and post-processes its output
// against the static tables.
type Classifier struct {
	tables *Tables
	model  Model
	system string
	log    *zap.Logger

	// now is swappable so tests can freeze the resolver's reference time.
	now func() time.Time
}

// NewClassifier wires a classifier over the given model.
func NewClassifier(tables *Tables, model Model, log *zap.Logger) *Classifier {
	return &Classifier{
		tables: tables,
		model:  model,
		system: buildSystemPrompt(tables),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// llmResult is the raw JSON shape the model must produce.
type llmResult struct {
	PrimaryIntent    string   `json:"primary_intent"`
	SecondaryIntents []string `json:"secondary_intents"`
	Entities         Entities `json:"entities"`
}

// Classify maps the question to a validated classification. It fails on
// model errors, unparseable output, and primary intents outside the
// allow-list; everything downstream of a successful classification is
// non-fatal by design.
func (c *Classifier) Classify(ctx context.Context, query string) (*Classification, error) {
	raw, err := c.model.Complete(ctx, c.system, query)
	if err != nil {
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	payload, err := extractJSON(raw)
	if err != nil {
		c.log.Warn("classifier returned no JSON object", zap.String("response", truncate(raw, 200)))
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	var result llmResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("intent classification returned malformed JSON: %w", err)
	}

	if !c.tables.Known(result.PrimaryIntent) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, result.PrimaryIntent)
	}

	// Secondary intents off the allow-list are dropped, not fatal.
	secondary := make([]string, 0, len(result.SecondaryIntents))
	for _, s := range result.SecondaryIntents {
		if c.tables.Known(s) {
			secondary = append(secondary, s)
		} else {
			c.log.Warn("dropping unknown secondary intent", zap.String("intent", s))
		}
	}

	entities := result.Entities

	enriched := c.tables.Enrich(append([]string{result.PrimaryIntent}, secondary...))

	details := map[string][]string{}
	if rules := c.tables.Enrichments(result.PrimaryIntent); len(rules) > 0 {
		details[result.PrimaryIntent] = rules
	}

	comparison := ""
	if entities.ComparisonRange != nil {
		comparison = *entities.ComparisonRange
	}

	// When the model produced no time token, extract the window from the
	// raw question instead; unrecognized questions still degrade to the
	// last-hour default inside the resolver.
	var resolution timerange.TimeResolution
	if entities.TimeRange == "" {
		resolution = timerange.ResolveQuery(query, c.now())
	} else {
		resolution = timerange.ResolveToken(entities.TimeRange, comparison, c.now())
	}

	c.log.Debug("classified query",
		zap.String("primary_intent", result.PrimaryIntent),
		zap.Strings("enriched_intents", enriched),
		zap.String("time_range", entities.TimeRange))

	return &Classification{
		Query:             query,
		PrimaryIntent:     result.PrimaryIntent,
		SecondaryIntents:  secondary,
		Entities:          entities,
		EnrichedIntents:   enriched,
		DataSources:       c.tables.DataSources(enriched),
		EnrichmentDetails: details,
		TimeResolution:    resolution,
	}, nil
}

// extractJSON pulls the outermost JSON object out of a model response that
// may carry stray prose around it.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in model response")
	}
	return s[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
