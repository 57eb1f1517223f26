// Package httpc is the transport client shared by every outbound HTTP call.
//
// Call wraps a single request/response and classifies failures as
// Unreachable, *HTTPError or Malformed. It never retries; callers own
// their retry policy.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second

	maxErrorBody = 4 << 10
)

// NewHTTPClient creates an *http.Client with the given overall timeout.
// Zero leaves the bound to the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Shared is the process-wide HTTP client. Use it instead of http.DefaultClient.
// It has no overall timeout: Call bounds each request through its context,
// and an http.Client.Timeout would cap calls that ask for longer.
var Shared = NewHTTPClient(0)

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// Timeout bounds this call. Zero uses the client default.
	Timeout time.Duration

	// ExpectJSON makes an empty or non-JSON body a Malformed failure.
	ExpectJSON bool
}

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client issues Requests.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

// New returns a Client backed by the shared http.Client.
func New() *Client {
	return &Client{HTTP: Shared, Timeout: DefaultTimeout}
}

// NewWithTimeout returns a Client whose calls default to timeout. A
// Request.Timeout overrides it in either direction.
func NewWithTimeout(timeout time.Duration) *Client {
	return &Client{HTTP: NewHTTPClient(0), Timeout: timeout}
}

// Call performs req and returns the response body, or a classified error.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("httpc: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	hc := c.HTTP
	if hc == nil {
		hc = Shared
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Method: method, URL: req.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &HTTPError{Method: method, URL: req.URL, Status: resp.StatusCode, Body: string(data)}
	}

	if req.ExpectJSON {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, fmt.Errorf("%w: empty body from %s", ErrMalformed, req.URL)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: invalid JSON from %s", ErrMalformed, req.URL)
		}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	resp, err := c.Call(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers, ExpectJSON: out != nil})
	if err != nil {
		return err
	}
	return decode(resp, url, out)
}

// PostJSON marshals in, POSTs it and decodes the JSON response into out.
// in and out may be nil.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, in, out any) error {
	var body []byte
	h := map[string]string{}
	for k, v := range headers {
		h[k] = v
	}
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpc: marshal request: %w", err)
		}
		h["Content-Type"] = "application/json"
	}
	resp, err := c.Call(ctx, Request{Method: http.MethodPost, URL: url, Headers: h, Body: body, ExpectJSON: out != nil})
	if err != nil {
		return err
	}
	return decode(resp, url, out)
}

func decode(resp *Response, url string, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformed, url, err)
	}
	return nil
}
