package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/observability"
)

// Define static errors
var (
	ErrUpstreamResponse = errors.New("upstream error")
)

// ClientInterface defines the methods for talking to the upstream card API
type ClientInterface interface {
	// Sets returns the full set catalog.
	Sets(ctx context.Context) ([]Set, error)
	// CardsBySet returns all cards belonging to the given set, paging
	// through the upstream listing until exhausted.
	CardsBySet(ctx context.Context, setID string) ([]Card, error)
}

// client implements ClientInterface over the Pokémon TCG HTTP API
type client struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
	timeout    time.Duration
}

// NewClient creates a new upstream API client
func NewClient(log logrus.FieldLogger, cfg *Config) (ClientInterface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 250
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &client{
		log: log.WithField("component", "upstream"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   0, // per-request timeouts via context
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		timeout:  timeout,
	}, nil
}

func (c *client) Sets(ctx context.Context) ([]Set, error) {
	var all []Set

	for page := 1; ; page++ {
		env, err := fetchPage[Set](ctx, c, "/sets", url.Values{}, page)
		if err != nil {
			return nil, err
		}

		all = append(all, env.Data...)

		if len(all) >= env.TotalCount || env.Count == 0 {
			return all, nil
		}
	}
}

func (c *client) CardsBySet(ctx context.Context, setID string) ([]Card, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("set.id:%s", setID))

	var all []Card

	for page := 1; ; page++ {
		env, err := fetchPage[Card](ctx, c, "/cards", query, page)
		if err != nil {
			return nil, err
		}

		all = append(all, env.Data...)

		if len(all) >= env.TotalCount || env.Count == 0 {
			return all, nil
		}
	}
}

func fetchPage[T any](ctx context.Context, c *client, path string, query url.Values, page int) (*envelope[T], error) {
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(c.pageSize))

	body, err := c.get(ctx, path, query.Encode())
	if err != nil {
		return nil, err
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &env, nil
}

func (c *client) get(ctx context.Context, endpoint, rawQuery string) (body []byte, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}

		observability.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+endpoint+"?"+rawQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	c.log.WithField("endpoint", endpoint).Debug("Fetching from upstream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Try to parse the API's error envelope
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}

		if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("%w (status %d): %s", ErrUpstreamResponse, resp.StatusCode, errorResp.Error.Message)
		}

		return nil, fmt.Errorf("%w (status %d): %s", ErrUpstreamResponse, resp.StatusCode, string(body))
	}

	return body, nil
}
