// Package requester provides the HTTP client used to fetch pages and submit payloads.
package requester

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxResponseBodyBytes = 2 << 20 // 2 MiB
	retryBackoff         = 500 * time.Millisecond
)

// Options configures an HTTPClient.
type Options struct {
	Timeout    time.Duration
	UserAgents []string
	Retries    int
	// RateLimit caps requests per second; zero disables the limiter.
	RateLimit int
}

// Response is the part of an HTTP response the probe cares about.
type Response struct {
	Status int
	Body   string
}

// HTTPClient is a wrapper around the standard http.Client that adds User-Agent
// rotation, a request rate limit and retries on transport errors.
type HTTPClient struct {
	client     *http.Client
	userAgents []string
	retries    int
	limiter    *rate.Limiter
	rand       *rand.Rand
	mu         sync.Mutex
}

// NewHTTPClient creates a new instance of our custom HTTPClient.
func NewHTTPClient(opts Options) *HTTPClient {
	c := &HTTPClient{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgents: opts.UserAgents,
		retries:    opts.Retries,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// Do sends req, setting a random configured User-Agent, honoring the rate limit and
// retrying transport failures. A response of any status is returned as is.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if len(c.userAgents) > 0 && req.Header.Get("User-Agent") == "" {
		c.mu.Lock()
		ua := c.userAgents[c.rand.Intn(len(c.userAgents))]
		c.mu.Unlock()
		req.Header.Set("User-Agent", ua)
	}

	ctx := req.Context()
	var resp *http.Response
	var err error

	for i := 0; i <= c.retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attempt := req
		if i > 0 {
			attempt = req.Clone(ctx)
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				attempt.Body = body
			}
		}

		resp, err = c.client.Do(attempt)
		if err == nil {
			return resp, nil
		}
	}
	return nil, err
}

// Get fetches urlStr with a GET request.
func (c *HTTPClient) Get(ctx context.Context, urlStr string, headers http.Header) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return Response{}, err
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return c.send(req)
}

// Send issues method against target. For POST the params are sent as a form body;
// for any other method they are merged into the query string.
func (c *HTTPClient) Send(ctx context.Context, method, target string, params url.Values) (Response, error) {
	req, err := BuildRequest(ctx, method, target, params)
	if err != nil {
		return Response{}, err
	}
	return c.send(req)
}

func (c *HTTPClient) send(req *http.Request) (Response, error) {
	resp, err := c.Do(req)
	if err != nil {
		return Response{}, err
	}
	body, err := ReadBody(resp)
	if err != nil {
		return Response{Status: resp.StatusCode}, fmt.Errorf("failed to read response body: %w", err)
	}
	return Response{Status: resp.StatusCode, Body: body}, nil
}

// BuildRequest creates a request carrying params the way a browser submits a form
// with the given method.
func BuildRequest(ctx context.Context, method, target string, params url.Values) (*http.Request, error) {
	targetURL, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	method = strings.ToUpper(method)
	if method == http.MethodPost {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL.String(), strings.NewReader(params.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	q := targetURL.Query()
	for name, values := range params {
		q[name] = values
	}
	targetURL.RawQuery = q.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, targetURL.String(), nil)
}

// ReadBody reads at most 2 MiB of the response body and closes it.
func ReadBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
