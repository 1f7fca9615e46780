// Package jobber is a client for the platform's GraphQL API.
package jobber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

const serviceName = "jobber"

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.getjobber.com/api/graphql"

// DefaultAPIVersion is sent in X-JOBBER-GRAPHQL-VERSION.
const DefaultAPIVersion = "2025-01-20"

// Config configures the GraphQL client.
type Config struct {
	HTTPClient *http.Client
	Endpoint   string
	APIVersion string
	Retry      service.RetryOptions
}

// Client implements service.Platform over GraphQL.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiVersion string
	retry      service.RetryOptions
}

var _ service.Platform = (*Client)(nil)

// NewClient creates a GraphQL client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		endpoint:   cfg.Endpoint,
		apiVersion: cfg.APIVersion,
		retry:      cfg.Retry,
	}
}

type graphQLRequest struct {
	Variables map[string]any `json:"variables,omitempty"`
	Query     string         `json:"query"`
}

type graphQLError struct {
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// Do executes query with variables, authorized by credential, and decodes the
// data member into out. Transport failures return *common.TransportError and
// a non-empty errors array returns *common.ApplicationError.
func (c *Client) Do(ctx context.Context, credential, query string, variables map[string]any, out any) error {
	if strings.TrimSpace(credential) == "" {
		return fmt.Errorf("%w: empty credential", common.ErrCredentialInvalid)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-JOBBER-GRAPHQL-VERSION", c.apiVersion)

	resp, err := c.authorized(ctx, credential).Do(req)
	if err != nil {
		return &common.TransportError{Service: serviceName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &common.TransportError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &common.TransportError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(respBody), 512)),
		}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return &common.TransportError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		throttled := false
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
			if e.Extensions.Code == "THROTTLED" {
				throttled = true
			}
		}
		appErr := common.NewApplicationError(serviceName, messages...)
		if throttled {
			return &common.RetryableError{Err: appErr, Retryable: true}
		}
		return appErr
	}

	if out == nil || len(gqlResp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// authorized wraps the base client with a bearer token transport.
func (c *Client) authorized(ctx context.Context, credential string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))
}

// query runs a read-only operation with retries on transient failures.
func (c *Client) query(ctx context.Context, credential, query string, variables map[string]any, out any) error {
	return common.WithRetry(ctx, func() error {
		return c.Do(ctx, credential, query, variables, out)
	}, c.retry)
}

// Account fetches the connected account's id, name and industry.
func (c *Client) Account(ctx context.Context, credential string) (*model.PlatformAccount, error) {
	var data struct {
		Account *model.PlatformAccount `json:"account"`
	}
	if err := c.query(ctx, credential, accountQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	if data.Account == nil || data.Account.ID == "" {
		return nil, fmt.Errorf("fetch account: %w", common.ErrNotFound)
	}
	return data.Account, nil
}

// Property fetches a property and its address.
func (c *Client) Property(ctx context.Context, credential, propertyID string) (*model.PropertyDetails, error) {
	var data struct {
		Property *model.PropertyDetails `json:"property"`
	}
	if err := c.query(ctx, credential, propertyQuery, map[string]any{"id": propertyID}, &data); err != nil {
		return nil, fmt.Errorf("fetch property %s: %w", propertyID, err)
	}
	if data.Property == nil {
		return nil, fmt.Errorf("fetch property %s: %w", propertyID, common.ErrNotFound)
	}
	return data.Property, nil
}

// CreateTextField creates a text custom field applying to all properties and
// returns its configuration id.
func (c *Client) CreateTextField(ctx context.Context, credential, name string) (string, error) {
	var data struct {
		Result struct {
			Configuration *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"customFieldConfiguration"`
			UserErrors []userError `json:"userErrors"`
		} `json:"customFieldConfigurationCreateText"`
	}

	variables := map[string]any{
		"input": map[string]any{
			"name":         name,
			"appliesTo":    "ALL_PROPERTIES",
			"defaultValue": "",
			"transferable": false,
			"readOnly":     false,
		},
	}
	if err := c.Do(ctx, credential, createTextFieldMutation, variables, &data); err != nil {
		return "", fmt.Errorf("create field %q: %w", name, err)
	}
	if err := userErrorsToError(data.Result.UserErrors); err != nil {
		return "", fmt.Errorf("create field %q: %w", name, err)
	}
	if data.Result.Configuration == nil || data.Result.Configuration.ID == "" {
		return "", fmt.Errorf("create field %q: %w", name, common.NewApplicationError(serviceName, "no field configuration returned"))
	}

	slog.Debug("Created custom field", "name", name, "field_id", data.Result.Configuration.ID)
	return data.Result.Configuration.ID, nil
}

// UpdatePropertyFields writes all values to a property in one mutation.
func (c *Client) UpdatePropertyFields(ctx context.Context, credential, propertyID string, values []model.FieldValue) error {
	if len(values) == 0 {
		return nil
	}

	customFields := make([]map[string]any, 0, len(values))
	for _, v := range values {
		customFields = append(customFields, map[string]any{
			"customFieldConfigurationId": v.FieldID,
			"valueText":                  v.Value,
		})
	}

	var data struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"propertyEdit"`
	}
	variables := map[string]any{
		"propertyId": propertyID,
		"input":      map[string]any{"customFields": customFields},
	}
	if err := c.Do(ctx, credential, updatePropertyFieldsMutation, variables, &data); err != nil {
		return fmt.Errorf("update property %s: %w", propertyID, err)
	}
	if err := userErrorsToError(data.Result.UserErrors); err != nil {
		return fmt.Errorf("update property %s: %w", propertyID, err)
	}
	return nil
}

// Disconnect revokes the app's access to the account.
func (c *Client) Disconnect(ctx context.Context, credential string) error {
	var data struct {
		Result struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"appDisconnect"`
	}
	if err := c.Do(ctx, credential, disconnectMutation, nil, &data); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return userErrorsToError(data.Result.UserErrors)
}

func userErrorsToError(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return common.NewApplicationError(serviceName, messages...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsCredentialInvalid reports whether err means the stored credential no
// longer works and should be cleared.
func IsCredentialInvalid(err error) bool {
	return errors.Is(err, common.ErrCredentialInvalid)
}
