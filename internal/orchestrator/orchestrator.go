// Package orchestrator sequences one question end to end: classify, resolve
// the time window, resolve the service name, fan out to the required data
// backends, and assemble a single aggregate response. Individual backend
// failures degrade the aggregate; only classification or time-resolution
// failure aborts a request.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slopilot/slopilot/internal/backends/clickhouse"
	"github.com/slopilot/slopilot/internal/backends/opensearch"
	"github.com/slopilot/slopilot/internal/backends/slostats"
	"github.com/slopilot/slopilot/internal/backends/slostore"
	"github.com/slopilot/slopilot/internal/catalog"
	"github.com/slopilot/slopilot/internal/history"
	"github.com/slopilot/slopilot/internal/intent"
)

// Classifier is the intent classification step.
type Classifier interface {
	Classify(ctx context.Context, query string) (*intent.Classification, error)
}

// PatternStore is the behavior-pattern backend.
type PatternStore interface {
	QueryIntents(ctx context.Context, intents []string, p clickhouse.QueryParams) []clickhouse.IntentResult
}

// StatsAPI is the SLO statistics backend.
type StatsAPI interface {
	FetchForIntents(ctx context.Context, intents []string, p slostats.FetchParams) (*slostats.Report, error)
}

// DefinitionStore is the SLO definition backend.
type DefinitionStore interface {
	DefinitionsForApplication(ctx context.Context, appID int) (*slostore.Report, error)
}

// ServiceMatcher resolves a free-text service name against the catalog.
type ServiceMatcher interface {
	FindBestMatch(query string, threshold float64) (catalog.Match, bool)
}

// TimeSummary echoes the resolved window in the aggregate response.
type TimeSummary struct {
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
	Index         string `json:"index"`
	TimeRange     string `json:"time_range"`
	Source        string `json:"source"`
	HasComparison bool   `json:"has_comparison"`
}

// ClassificationSummary echoes the classification without its embedded time
// resolution (reported separately).
type ClassificationSummary struct {
	PrimaryIntent    string          `json:"primary_intent"`
	SecondaryIntents []string        `json:"secondary_intents"`
	EnrichedIntents  []string        `json:"enriched_intents"`
	Entities         intent.Entities `json:"entities"`
}

// Metadata carries processing context for the caller.
type Metadata struct {
	AppID             int       `json:"app_id"`
	Service           string    `json:"service,omitempty"`
	EnrichmentApplied bool      `json:"enrichment_applied"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// Response is the single aggregate result for a query. Failed requests have
// Success false and an Error message; everything else is best-effort.
type Response struct {
	Success         bool                   `json:"success"`
	Error           string                 `json:"error,omitempty"`
	RequestID       string                 `json:"request_id"`
	Query           string                 `json:"query"`
	Classification  *ClassificationSummary `json:"classification,omitempty"`
	TimeResolution  *TimeSummary           `json:"time_resolution,omitempty"`
	ServiceMatch    *catalog.Match         `json:"service_match,omitempty"`
	DataSourcesUsed []string               `json:"data_sources_used"`
	Data            map[string]any         `json:"data"`
	Metadata        Metadata               `json:"metadata"`
}

// Orchestrator wires the pipeline. Catalog, definitions, and history are
// optional; a nil member simply disables that capability.
type Orchestrator struct {
	classifier Classifier
	patterns   PatternStore
	stats      StatsAPI
	defs       DefinitionStore
	matcher    ServiceMatcher
	hist       *history.Store
	appID      int
	log        *zap.Logger
}

// Options configures an Orchestrator.
type Options struct {
	Classifier  Classifier
	Patterns    PatternStore
	Stats       StatsAPI
	Definitions DefinitionStore
	Matcher     ServiceMatcher
	History     *history.Store
	AppID       int
	Logger      *zap.Logger
}

// New builds an orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		classifier: opts.Classifier,
		patterns:   opts.Patterns,
		stats:      opts.Stats,
		defs:       opts.Definitions,
		matcher:    opts.Matcher,
		hist:       opts.History,
		appID:      opts.AppID,
		log:        log,
	}
}

// Process answers one question. It never returns an error: failures are
// reported inside the response so callers always get a structured result.
func (o *Orchestrator) Process(ctx context.Context, query string) *Response {
	requestID := uuid.NewString()
	resp := &Response{
		RequestID: requestID,
		Query:     query,
		Data:      map[string]any{},
		Metadata: Metadata{
			AppID:       o.appID,
			ProcessedAt: time.Now().UTC(),
		},
	}

	log := o.log.With(zap.String("request_id", requestID))
	log.Info("processing query", zap.String("query", query))

	classification, err := o.classifier.Classify(ctx, query)
	if err != nil {
		log.Error("classification failed", zap.Error(err))
		resp.Error = err.Error()
		o.record(ctx, resp, "")
		return resp
	}

	resolution := classification.TimeResolution
	if resolution.Primary.EndTime == 0 {
		log.Error("time resolution missing")
		resp.Error = "failed to resolve time range"
		o.record(ctx, resp, classification.PrimaryIntent)
		return resp
	}

	resp.Classification = &ClassificationSummary{
		PrimaryIntent:    classification.PrimaryIntent,
		SecondaryIntents: classification.SecondaryIntents,
		EnrichedIntents:  classification.EnrichedIntents,
		Entities:         classification.Entities,
	}
	resp.TimeResolution = &TimeSummary{
		StartTime:     resolution.Primary.StartTime,
		EndTime:       resolution.Primary.EndTime,
		Index:         string(resolution.Primary.Granularity),
		TimeRange:     classification.Entities.TimeRange,
		Source:        string(resolution.Primary.Source),
		HasComparison: resolution.Comparison != nil,
	}

	// Resolve the service entity to a catalog service where possible.
	var serviceMatch *catalog.Match
	serviceName := ""
	if classification.Entities.Service != nil {
		serviceName = *classification.Entities.Service
	}
	if serviceName != "" && o.matcher != nil {
		if match, ok := o.matcher.FindBestMatch(serviceName, catalog.DefaultThreshold); ok {
			serviceMatch = &match
			resp.ServiceMatch = &match
			log.Info("service resolved",
				zap.String("query_name", serviceName),
				zap.Int("service_id", match.ServiceID),
				zap.Float64("score", match.Score))
		} else {
			log.Warn("no service match", zap.String("query_name", serviceName))
		}
	}
	resp.Metadata.Service = serviceName
	resp.Metadata.EnrichmentApplied = len(classification.EnrichmentDetails) > 0

	o.fanOut(ctx, log, classification, serviceMatch, resp)

	resp.Success = true
	o.record(ctx, resp, classification.PrimaryIntent)
	return resp
}

// fanOut queries each required backend. A failed backend is logged and
// omitted from the aggregate.
func (o *Orchestrator) fanOut(ctx context.Context, log *zap.Logger, c *intent.Classification, match *catalog.Match, resp *Response) {
	start := c.TimeResolution.Primary.StartTime
	end := c.TimeResolution.Primary.EndTime

	if c.Needs("slo_stats_api") && o.stats != nil {
		p := slostats.FetchParams{
			StartMillis: start,
			EndMillis:   end,
			Granularity: string(c.TimeResolution.Primary.Granularity),
		}
		if match != nil {
			id := match.ServiceID
			p.ServiceID = &id
			p.ServiceName = match.ServiceName
		}
		report, err := o.stats.FetchForIntents(ctx, c.EnrichedIntents, p)
		if err != nil {
			log.Warn("statistics backend unavailable", zap.Error(err))
		} else {
			resp.Data["slo_stats_api"] = report
			resp.DataSourcesUsed = append(resp.DataSourcesUsed, "slo_stats_api")
		}
	}

	if c.Needs("clickhouse") && o.patterns != nil {
		p := clickhouse.QueryParams{
			AppID:       o.appID,
			StartMillis: start,
			EndMillis:   end,
		}
		if match != nil {
			id := match.ServiceID
			p.ServiceID = &id
			p.ServiceName = match.ServiceName
		}
		results := o.patterns.QueryIntents(ctx, c.EnrichedIntents, p)
		if len(results) > 0 {
			resp.Data["clickhouse"] = map[string]any{"intent_results": results}
			resp.DataSourcesUsed = append(resp.DataSourcesUsed, "clickhouse")
		} else {
			log.Warn("pattern backend returned no results")
		}
	}

	if c.Needs("postgres") && o.defs != nil {
		report, err := o.defs.DefinitionsForApplication(ctx, o.appID)
		if err != nil {
			log.Warn("definition store unavailable", zap.Error(err))
		} else {
			resp.Data["postgres"] = report
			resp.DataSourcesUsed = append(resp.DataSourcesUsed, "postgres")
		}
	}

	if c.Needs("opensearch") {
		resp.Data["opensearch"] = opensearch.NotImplemented()
		resp.DataSourcesUsed = append(resp.DataSourcesUsed, "opensearch")
	}
}

// record persists the response to history when a store is configured.
func (o *Orchestrator) record(ctx context.Context, resp *Response, primaryIntent string) {
	if o.hist == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		o.log.Warn("failed to serialize response for history", zap.Error(err))
		return
	}
	entry := history.Entry{
		RequestID:     resp.RequestID,
		Query:         resp.Query,
		Success:       resp.Success,
		PrimaryIntent: primaryIntent,
		ResponseJSON:  string(raw),
	}
	if err := o.hist.Record(ctx, entry); err != nil {
		o.log.Warn("failed to record history entry", zap.Error(err))
	}
}
