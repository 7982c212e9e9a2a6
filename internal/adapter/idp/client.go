// Package idp provides an HTTP client for the identity provider's account
// admin API.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rosterhub/rosterhub/internal/domain"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
	"github.com/rosterhub/rosterhub/internal/resilience"
)

// bulkDeleteMax is the provider's documented per-call ceiling.
const bulkDeleteMax = 1000

// Client talks to the identity provider admin API. It implements
// idp.Provider (the port).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new identity provider admin client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetHTTPClient overrides the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// GetByEmail returns the identity registered under email.
func (c *Client) GetByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/accounts/lookup?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}

	var ident identity.Identity
	if err := json.Unmarshal(resp, &ident); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &ident, nil
}

// List returns up to limit identities.
func (c *Client) List(ctx context.Context, limit int) ([]identity.Identity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/accounts?limit="+strconv.Itoa(limit), nil)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var result struct {
		Accounts []identity.Identity `json:"accounts"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return result.Accounts, nil
}

// Create provisions a new identity. An empty id lets the provider assign one.
func (c *Client) Create(ctx context.Context, id, email, password string) (*identity.Identity, error) {
	body, err := json.Marshal(map[string]string{
		"id":       id,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create account: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/accounts", body)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	var ident identity.Identity
	if err := json.Unmarshal(resp, &ident); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &ident, nil
}

// Update changes identity fields (email and/or password).
func (c *Client) Update(ctx context.Context, id string, req identity.UpdateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal update account: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPatch, "/v1/accounts/"+url.PathEscape(id), body); err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	return nil
}

// Delete removes a single identity.
func (c *Client) Delete(ctx context.Context, id string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/v1/accounts/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}

// BulkDelete removes up to 1000 identities with per-index outcomes.
func (c *Client) BulkDelete(ctx context.Context, ids []string) (*identity.BulkResult, error) {
	if len(ids) == 0 {
		return &identity.BulkResult{}, nil
	}
	if len(ids) > bulkDeleteMax {
		return nil, fmt.Errorf("%d ids exceeds the %d per-call limit: %w", len(ids), bulkDeleteMax, domain.ErrInvalidArgument)
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal batch delete: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/accounts:batchDelete", body)
	if err != nil {
		return nil, fmt.Errorf("batch delete: %w", err)
	}

	var result identity.BulkResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal batch result: %w", err)
	}
	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("provider returned 404: %w", domain.ErrNotFound)
		case resp.StatusCode >= 400:
			return fmt.Errorf("provider error %d: %s: %w", resp.StatusCode, string(data), domain.ErrUpstream)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
