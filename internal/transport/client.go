// Package transport is the resilient call layer every outbound request
// goes through: fixed timeout, bounded retry with exponential backoff on
// rate limits and transient server errors, immediate surfacing of
// authentication failures, and quota notification hooks. Upstream
// schemas are unreliable, so non-retryable 4xx responses degrade to
// "no data" instead of propagating as hard failures.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

// Notifier receives call accounting events. The quota guard implements
// this; a nil notifier disables accounting.
type Notifier interface {
	// RecordCall is invoked once per attempted outbound call.
	RecordCall(source listings.Source)
	// RateLimited is invoked when the upstream answers 429.
	RateLimited(source listings.Source)
}

// retryableStatus is the set of statuses worth a backoff-and-retry.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client wraps an HTTP client with authentication, retries, and quota
// accounting for one source.
type Client struct {
	http        *http.Client
	source      listings.Source
	auth        Authenticator
	apiKey      string
	notifier    Notifier
	maxRetries  int
	backoffBase time.Duration
	headers     map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithNotifier installs a call accounting hook.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoffBase overrides the backoff base duration (tests).
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

// WithHeader adds a static header to every request, e.g. the
// X-RapidAPI-Host header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a transport client for one source.
func New(source listings.Source, auth Authenticator, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: constants.DefaultHTTPTimeout},
		source:      source,
		auth:        auth,
		apiKey:      apiKey,
		maxRetries:  constants.MaxRetries,
		backoffBase: constants.RetryBackoffBase,
	}
	if c.auth == nil {
		c.auth = &NoAuth{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication, retry, and quota
// accounting. Responses with a non-retryable 4xx status (other than
// auth failures) are drained and reported as errors.ErrNoData. The
// caller owns the response body on success.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logging.FromContext(ctx)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if c.notifier != nil {
			c.notifier.RecordCall(c.source)
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			// Network-level failure. Retry unless the context is done.
			if ctx.Err() != nil {
				return nil, errors.ErrCanceled
			}
			lastErr = err
			if attempt >= c.maxRetries {
				return nil, errors.WrapAPI(string(c.source), 0, lastErr)
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return nil, errors.NewAuthenticationError(string(c.source), "api_key",
				http.StatusText(resp.StatusCode), errors.ErrAPIKeyInvalid)

		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			if c.notifier != nil {
				c.notifier.RateLimited(c.source)
			}
			if attempt >= c.maxRetries {
				return nil, &errors.RateLimitError{
					Source:   string(c.source),
					Endpoint: req.URL.Path,
					Attempts: attempt + 1,
				}
			}
			log.Warn().
				Str("source", string(c.source)).
				Int("attempt", attempt+1).
				Msg("rate limited, backing off")

		case retryableStatus[resp.StatusCode]:
			drain(resp)
			lastErr = errors.NewAPIError(string(c.source), resp.StatusCode, http.StatusText(resp.StatusCode))
			if attempt >= c.maxRetries {
				return nil, lastErr
			}

		default:
			// Remaining 4xx statuses mean the upstream has nothing for
			// us, not that we are broken.
			drain(resp)
			log.Debug().
				Str("source", string(c.source)).
				Int("status", resp.StatusCode).
				Str("path", req.URL.Path).
				Msg("treating response as no data")
			return nil, errors.ErrNoData
		}

		if err := c.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapAPI(string(c.source), 0, err)
	}
	return c.Do(ctx, req)
}

// GetJSON performs a GET request and decodes the JSON response into
// target. An unparseable payload degrades to errors.ErrNoData.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, target)
}

// DecodeJSON decodes a JSON response body into target, closing the body.
// Empty or malformed payloads degrade to errors.ErrNoData.
func DecodeJSON(resp *http.Response, target any) error {
	defer drain(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ErrNoData
	}
	if len(body) == 0 {
		return errors.ErrNoData
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.ErrNoData
	}
	return nil
}

// backoff sleeps 2^attempt times the base plus a random jitter bounded
// by RetryJitterMax (and never more than half the base, so shortened
// test bases keep short sleeps), or returns early when the context is
// cancelled.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.backoffBase * (1 << attempt)
	delay += rand.N(jitterBound(c.backoffBase) + 1)

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return errors.ErrCanceled
	}
}

// jitterBound caps the random backoff jitter at RetryJitterMax, scaled
// down with the base.
func jitterBound(base time.Duration) time.Duration {
	return min(base/2, constants.RetryJitterMax)
}

// drain discards and closes a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
