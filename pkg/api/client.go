package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hangarshare/cli/pkg/config"
	"github.com/hangarshare/cli/pkg/logger"
)

// Querier is the remote query surface the sync layer consumes. Only
// approved records ever come back; the server enforces the filter.
type Querier interface {
	FetchPage(ctx context.Context, entity EntityType, offset, limit int) ([]Record, error)
	FetchCount(ctx context.Context, entity EntityType) (int, error)
	DistinctValues(ctx context.Context, entity EntityType, field string) ([]string, error)
}

// Client is an HTTP implementation of Querier. It is passed explicitly
// to whatever needs it; there is no package-level instance.
type Client struct {
	http *resty.Client
}

// NewClient creates a client against the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("User-Agent", "HangarShare-CLI/0.1.0")

	// Add request/response logging
	httpClient.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})

	httpClient.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode())
		return nil
	})

	return &Client{http: httpClient}
}

// NewClientFromConfig creates a client from the loaded configuration
func NewClientFromConfig() *Client {
	baseURL := config.GetString("api.base_url")
	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second
	return NewClient(baseURL, timeout)
}

// FetchPage retrieves one page of approved records, newest first
func (c *Client) FetchPage(ctx context.Context, entity EntityType, offset, limit int) ([]Record, error) {
	logger.Debug("Fetching page", "entity", entity, "offset", offset, "limit", limit)

	var response PageResponse

	resp, err := c.http.
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"status": string(StatusApproved),
			"offset": fmt.Sprintf("%d", offset),
			"limit":  fmt.Sprintf("%d", limit),
		}).
		SetResult(&response).
		Get(fmt.Sprintf("/api/v1/%s", entity))

	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch %s: %s", entity, resp.Status())
	}

	return response.Records, nil
}

// FetchCount retrieves the total number of approved records
func (c *Client) FetchCount(ctx context.Context, entity EntityType) (int, error) {
	logger.Debug("Fetching count", "entity", entity)

	var response CountResponse

	resp, err := c.http.
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"status": string(StatusApproved),
		}).
		SetResult(&response).
		Get(fmt.Sprintf("/api/v1/%s/count", entity))

	if err != nil {
		return 0, err
	}

	if !resp.IsSuccess() {
		return 0, fmt.Errorf("failed to fetch %s count: %s", entity, resp.Status())
	}

	return response.Count, nil
}

// DistinctValues retrieves the server-side distinct-values aggregate for
// a filterable field. Callers fall back to computing distinct values
// locally when this fails.
func (c *Client) DistinctValues(ctx context.Context, entity EntityType, field string) ([]string, error) {
	logger.Debug("Fetching distinct values", "entity", entity, "field", field)

	var response DistinctResponse

	resp, err := c.http.
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"field": field,
		}).
		SetResult(&response).
		Get(fmt.Sprintf("/api/v1/%s/distinct", entity))

	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch distinct %s values: %s", field, resp.Status())
	}

	return response.Values, nil
}
