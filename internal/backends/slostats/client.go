package slostats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// transactionsPath is the distinct-transactions endpoint under the base URL.
const transactionsPath = "/api/transactions/distinct/top-5/ALL"

// ErrNoServiceID marks a service-scoped query that arrived without a
// resolved service id. Callers treat it as "no result", not a failure.
var ErrNoServiceID = errors.New("service health query requires a resolved service id")

// Config carries the API endpoint and the Keycloak credentials that guard it.
type Config struct {
	BaseURL       string
	ApplicationID int
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	Timeout       time.Duration
}

// Client fetches and reshapes SLO statistics.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New builds a client. Timeout defaults to 20 seconds when unset.
func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// token obtains a bearer token through the Keycloak password grant. Each
// statistics call fetches a fresh token; they are short-lived and the call
// volume is one per user question.
func (c *Client) token(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: c.cfg.TokenURL,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return "", fmt.Errorf("keycloak token request failed: %w", err)
	}
	return tok.AccessToken, nil
}

// fetchTransactions pulls the raw per-transaction records for the window.
// Auth failure surfaces as an error; the orchestrator degrades it to "no
// data" for this backend.
func (c *Client) fetchTransactions(ctx context.Context, startMillis, endMillis int64, granularity string) ([]TransactionRecord, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("application_id", strconv.Itoa(c.cfg.ApplicationID))
	params.Set("page_id", "0")
	params.Set("page_size", "2000")
	params.Set("range", "CUSTOM")
	params.Set("index", granularity)
	params.Set("start_time", strconv.FormatInt(startMillis, 10))
	params.Set("end_time", strconv.FormatInt(endMillis, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+transactionsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transactions request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("statistics API returned %d", resp.StatusCode)
	}

	var records []TransactionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse transactions response: %w", err)
	}

	c.log.Debug("fetched transaction records",
		zap.Int("records", len(records)),
		zap.String("granularity", granularity))
	return records, nil
}
