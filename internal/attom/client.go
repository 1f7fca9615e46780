// Package attom is a client for the third-party property-data API.
package attom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

const serviceName = "attom"

// DefaultBaseURL is the production property API root.
const DefaultBaseURL = "https://api.gateway.attomdata.com/propertyapi/v1.0.0"

// Defaults applied by the config layer.
const (
	DefaultRequestsPerMinute = 60
	DefaultCacheTTL          = 24 * time.Hour
)

// msgNoResult is the status message returned when an address matches nothing.
const msgNoResult = "SuccessWithoutResult"

// Config configures the lookup client.
type Config struct {
	HTTPClient        *http.Client
	APIKey            string
	BaseURL           string
	Retry             service.RetryOptions
	RequestsPerMinute int
	// CacheTTL of zero disables caching.
	CacheTTL time.Duration
}

// Client implements service.PropertyLookup.
type Client struct {
	httpClient *http.Client
	quota      *quota
	cache      *lookupCache
	apiKey     string
	baseURL    string
	retry      service.RetryOptions
}

var _ service.PropertyLookup = (*Client)(nil)

// NewClient creates a property-data client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: attom API key is required", common.ErrMissingConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	c := &Client{
		httpClient: cfg.HTTPClient,
		quota:      newQuota(cfg.RequestsPerMinute),
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		retry:      cfg.Retry,
	}
	if cfg.CacheTTL > 0 {
		c.cache = newLookupCache(cfg.CacheTTL)
	}
	return c, nil
}

// Close stops background goroutines.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.close()
	}
}

type responseStatus struct {
	Msg   string `json:"msg"`
	Code  int    `json:"code"`
	Total int    `json:"total"`
}

type detailResponse struct {
	Status   responseStatus              `json:"status"`
	Property []*model.PropertyAttributes `json:"property"`
}

// Lookup fetches property attributes for address. It returns nil, nil when the
// API has no record for the address, *common.ApplicationError when the API
// answers with an error payload, and *common.TransportError for HTTP or
// network failures.
func (c *Client) Lookup(ctx context.Context, address model.AddressLines) (*model.PropertyAttributes, error) {
	if strings.TrimSpace(address.Line1) == "" {
		return nil, common.NewApplicationError(serviceName, "address line one is required")
	}

	if c.cache != nil {
		if property, ok := c.cache.get(address); ok {
			slog.Debug("Property lookup served from cache", "address1", address.Line1)
			return property, nil
		}
	}

	var property *model.PropertyAttributes
	err := common.WithRetry(ctx, func() error {
		var err error
		property, err = c.detail(ctx, address)
		return err
	}, c.retry)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && property != nil {
		c.cache.set(address, property)
	}
	return property, nil
}

func (c *Client) detail(ctx context.Context, address model.AddressLines) (*model.PropertyAttributes, error) {
	if err := c.quota.wait(ctx, address); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("address1", address.Line1)
	params.Set("address2", address.Line2)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/property/detail?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.TransportError{Service: serviceName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.TransportError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.quota.exhaust(retryAfter(resp.Header.Get("Retry-After")))
		slog.Warn("Property lookup over quota",
			"address1", address.Line1,
			"remaining", c.quota.remaining())
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &common.TransportError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 512)),
		}
	}

	var detail detailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &common.TransportError{
				Service:    serviceName,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 512)),
			}
		}
		return nil, &common.TransportError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if detail.Status.Msg == msgNoResult {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK || detail.Status.Code != 0 {
		msg := detail.Status.Msg
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, common.NewApplicationError(serviceName, msg)
	}

	if len(detail.Property) == 0 {
		return nil, nil
	}
	return detail.Property[0], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
