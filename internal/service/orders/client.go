package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/order-alert/internal/config"
	"github.com/oshokin/order-alert/internal/version"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 10

// Client fetches the pending-order count of a shop.
type Client struct {
	// endpoint is the count endpoint without query parameters.
	endpoint *url.URL
	// httpClient performs the requests.
	httpClient *http.Client
	// timeout bounds a single fetch.
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errEndpointRequired is returned when no endpoint URL is configured.
	errEndpointRequired = errors.New("endpoint URL must be provided")
	// errShopIDRequired is returned when Count is called without a shop id.
	errShopIDRequired = errors.New("shop id must be provided")
	// ErrBadStatus is returned for non-2xx responses.
	ErrBadStatus = errors.New("unexpected http status")
	// ErrMalformedCount is returned when the body has no usable count.
	ErrMalformedCount = errors.New("malformed count response")
)

// countResponse is the endpoint's JSON body.
type countResponse struct {
	// Count is a pointer so a missing field can be told apart from zero.
	Count *int `json:"count"`
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errEndpointRequired
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	c := &Client{
		endpoint:   u,
		httpClient: http.DefaultClient,
		timeout:    config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Count performs GET <endpoint>?shopid=<id> and returns the reported count.
func (c *Client) Count(ctx context.Context, shopID string) (int, error) {
	if shopID == "" {
		return 0, errShopIDRequired
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(shopID), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch count: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var body countResponse
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedCount, err)
	}

	if body.Count == nil || *body.Count < 0 {
		return 0, ErrMalformedCount
	}

	return *body.Count, nil
}

// requestURL adds the shopid query parameter, keeping any existing ones.
func (c *Client) requestURL(shopID string) string {
	u := *c.endpoint

	query := u.Query()
	query.Set("shopid", shopID)
	u.RawQuery = query.Encode()

	return u.String()
}
