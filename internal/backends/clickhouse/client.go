// Package clickhouse reads behavioral patterns from the
// ai_service_behavior_memory table over the ClickHouse HTTP interface.
// Every externally supplied value (application id, service id/name,
// timestamps) is bound through param_* query parameters, never interpolated
// into SQL text.
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const behaviorTable = "ai_service_behavior_memory"

// Config carries the connection settings for the ClickHouse HTTP endpoint.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is a thin HTTP client for read-only pattern queries.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New builds a client. Timeout defaults to 30 seconds when unset.
func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// query runs a FORMAT JSONEachRow statement with bound parameters and
// decodes each row into a BehaviorRecord. Rows that fail to decode are
// skipped and counted, not fatal.
func (c *Client) query(ctx context.Context, sql string, params map[string]string) ([]BehaviorRecord, int, error) {
	values := url.Values{}
	values.Set("query", strings.TrimSpace(sql))
	values.Set("database", c.cfg.Database)
	for name, value := range params {
		values.Set("param_"+name, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build ClickHouse request: %w", err)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read ClickHouse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("clickhouse returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var (
		records []BehaviorRecord
		skipped int
	)
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec BehaviorRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			c.log.Warn("skipping malformed behavior record", zap.Error(err))
			skipped++
			continue
		}
		records = append(records, rec)
	}

	c.log.Debug("clickhouse query complete",
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped))
	return records, skipped, nil
}

// DistinctServices returns service id -> raw service name for the
// application, used by the catalog fetch command.
func (c *Client) DistinctServices(ctx context.Context, appID int) (map[int]string, error) {
	sql := fmt.Sprintf(`
SELECT DISTINCT
    application_id,
    service_id,
    service
FROM %s
WHERE application_id = {app_id:Int64} AND service_id IS NOT NULL
ORDER BY service_id
FORMAT JSONEachRow`, behaviorTable)

	records, _, err := c.query(ctx, sql, map[string]string{
		"app_id": fmt.Sprintf("%d", appID),
	})
	if err != nil {
		return nil, err
	}

	out := make(map[int]string, len(records))
	for _, rec := range records {
		if rec.ServiceID != nil {
			out[*rec.ServiceID] = rec.Service
		}
	}
	return out, nil
}
