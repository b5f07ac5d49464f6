// Package dataverse provides a client for the Dataverse structured-data
// search skill endpoint.
package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/search-eval/internal/model"
)

// Client defines the search operations used by the dispatcher.
type Client interface {
	// Query executes one search request with the given bearer token and
	// returns the parsed result list plus the raw payload. Failures are
	// reported as the typed errors in this package.
	Query(ctx context.Context, token, queryText string) (*Result, error)
}

// Result carries a successful query's parsed items and raw payload.
type Result struct {
	Items []model.RetrievedItem
	Raw   json.RawMessage
}

// Options configures the endpoint identity headers the service requires
// on every request.
type Options struct {
	BaseURL        string
	Skill          string
	QueryLanguage  string
	ServiceRootURL string
	UserID         string
	OrganizationID string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

type httpClient struct {
	opts Options
	http *http.Client
}

// NewClient creates a search client for the configured endpoint.
func NewClient(opts Options) Client {
	if opts.Skill == "" {
		opts.Skill = "UnifiedSearch"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &httpClient{opts: opts, http: hc}
}

type queryRequest struct {
	QueryText            string         `json:"queryText"`
	Skill                string         `json:"skill"`
	Options              []string       `json:"options"`
	AdditionalProperties map[string]any `json:"additionalProperties"`
}

func (c *httpClient) Query(ctx context.Context, token, queryText string) (*Result, error) {
	payload := queryRequest{
		QueryText: queryText,
		Skill:     c.opts.Skill,
		Options:   []string{"GetResultsSummary"},
		AdditionalProperties: map[string]any{
			"ExecuteUnifiedSearch": true,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "dataverse: marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "dataverse: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-ms-crm-query-language", c.opts.QueryLanguage)
	req.Header.Set("x-ms-crm-service-root-url", c.opts.ServiceRootURL)
	req.Header.Set("x-ms-crm-userid", c.opts.UserID)
	req.Header.Set("x-ms-organization-id", c.opts.OrganizationID)
	req.Header.Set("x-ms-user-agent", "PowerVA/2")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dataverse: execute query")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataverse: read response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &UnauthorizedError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &ThrottleError{StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("dataverse: unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	return parseResponse(raw)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
