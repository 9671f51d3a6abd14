package slostats

import (
	"context"

	"go.uber.org/zap"
)

// FetchParams identifies one statistics pull.
type FetchParams struct {
	StartMillis int64
	EndMillis   int64
	// Granularity is one of HOURLY, DAILY, WEEKLY, MONTHLY.
	Granularity string
	// ServiceID and ServiceName identify a resolved catalog service for
	// service-scoped intents. ServiceName is the full cataloged name.
	ServiceID   *int
	ServiceName string
}

// CurrentHealth returns the application-wide health view across all
// services.
func (c *Client) CurrentHealth(ctx context.Context, p FetchParams) (*Report, error) {
	records, err := c.fetchTransactions(ctx, p.StartMillis, p.EndMillis, p.Granularity)
	if err != nil {
		return nil, err
	}
	return buildHealthReport(records, p.StartMillis, p.EndMillis), nil
}

// ServiceHealth returns the health view restricted to one resolved service.
// Without a service id there is nothing to scope to, and the caller gets
// ErrNoServiceID rather than a misleading application-wide answer.
func (c *Client) ServiceHealth(ctx context.Context, p FetchParams) (*Report, error) {
	if p.ServiceID == nil {
		return nil, ErrNoServiceID
	}

	records, err := c.fetchTransactions(ctx, p.StartMillis, p.EndMillis, p.Granularity)
	if err != nil {
		return nil, err
	}

	report := buildHealthReport(filterByService(records, p.ServiceName), p.StartMillis, p.EndMillis)
	report.ServiceID = p.ServiceID
	return report, nil
}

// ErrorBudgetStatus returns the EB-category view, application-wide or
// scoped to one service when resolved.
func (c *Client) ErrorBudgetStatus(ctx context.Context, p FetchParams) (*Report, error) {
	records, err := c.fetchTransactions(ctx, p.StartMillis, p.EndMillis, p.Granularity)
	if err != nil {
		return nil, err
	}

	if p.ServiceID != nil {
		records = filterByService(records, p.ServiceName)
	}
	report := buildErrorBudgetReport(records, p.StartMillis, p.EndMillis)
	report.ServiceID = p.ServiceID
	return report, nil
}

type statsHandler struct {
	Intent string
	Run    func(c *Client, ctx context.Context, p FetchParams) (*Report, error)
}

// rankedHandlers routes statistics intents in priority order: a service
// question outranks an error-budget question outranks the general health
// check.
var rankedHandlers = []statsHandler{
	{"SERVICE_HEALTH", (*Client).serviceHealthHandler},
	{"ERROR_BUDGET_STATUS", (*Client).errorBudgetHandler},
	{"CURRENT_HEALTH", (*Client).currentHealthHandler},
}

func (c *Client) serviceHealthHandler(ctx context.Context, p FetchParams) (*Report, error) {
	return c.ServiceHealth(ctx, p)
}

func (c *Client) errorBudgetHandler(ctx context.Context, p FetchParams) (*Report, error) {
	return c.ErrorBudgetStatus(ctx, p)
}

func (c *Client) currentHealthHandler(ctx context.Context, p FetchParams) (*Report, error) {
	return c.CurrentHealth(ctx, p)
}

// FetchForIntents runs the highest-priority handler among the requested
// intents. Intents this backend does not serve are ignored; if none match,
// it falls back to the application-wide health view.
func (c *Client) FetchForIntents(ctx context.Context, intents []string, p FetchParams) (*Report, error) {
	requested := make(map[string]bool, len(intents))
	for _, in := range intents {
		requested[in] = true
	}

	for _, h := range rankedHandlers {
		if requested[h.Intent] {
			c.log.Debug("routing statistics fetch", zap.String("intent", h.Intent))
			return h.Run(c, ctx, p)
		}
	}

	c.log.Debug("no statistics intent matched, using general health view")
	return c.CurrentHealth(ctx, p)
}
