package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jpalmerr/homeworkbot/homework"
)

const maxResponseBodySize = 1 << 20 // 1MB

// a single host is polled, so the pool stays small
const (
	defaultMaxIdleConns    = 2
	defaultMaxConnsPerHost = 2
	defaultIdleConnTimeout = 60 * time.Second
)

// Response holds the result of one request made by [Client].
type Response struct {
	// Payload is the decoded JSON body. Nil unless the request succeeded.
	Payload any

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error is a [*homework.Error] of kind fetch or parse, or nil.
	Error error
}

// Client fetches submission statuses from the review API.
//
// Timeouts are applied per request via context rather than on the
// underlying http.Client. Response bodies are limited to 1MB.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	timeout    time.Duration
}

// NewClient creates a [Client] for the given endpoint and OAuth token.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConns,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		endpoint: endpoint,
		token:    token,
		timeout:  timeout,
	}
}

// Fetch requests all submissions changed since the from cursor (Unix seconds).
//
// Fetch always returns a Response; failures are captured in the Error field.
// A non-200 status is a fetch failure and the body is never parsed.
func (c *Client) Fetch(ctx context.Context, from int64) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	target, err := c.requestURL(from)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   &homework.Error{Kind: homework.KindFetch, Detail: "invalid endpoint", Err: err},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   &homework.Error{Kind: homework.KindFetch, Detail: "failed to create request", Err: err},
		}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   homework.FetchError(0, fmt.Errorf("request failed: %w", err)),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      homework.FetchError(resp.StatusCode, nil),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      homework.FetchError(0, fmt.Errorf("failed to read response body: %w", err)),
		}
	}

	payload, err := homework.DecodePayload(body)
	return Response{
		Payload:    payload,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		Error:      err,
	}
}

// requestURL appends the from_date query parameter to the endpoint.
func (c *Client) requestURL(from int64) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil receiver.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
