package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/retry"
)

// requester posts JSON to a TTS endpoint with retry on 429/5xx and
// connection failures.
type requester struct {
	cfg        *Config
	client     *httpc.Client
	provider   string
	parseError func(status int, body string) string
}

func newRequester(cfg *Config, provider string, parse func(int, string) string) *requester {
	return &requester{
		cfg:        cfg,
		client:     httpc.NewWithTimeout(cfg.Timeout),
		provider:   provider,
		parseError: parse,
	}
}

func (r *requester) post(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(r.provider, fmt.Errorf("marshal payload: %w", err))
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	var out []byte
	err = retry.Do(ctx, r.cfg.retryPolicy(), func(attempt int) error {
		resp, err := r.client.Call(ctx, httpc.Request{
			Method:  http.MethodPost,
			URL:     url,
			Headers: h,
			Body:    body,
		})
		if err != nil {
			apiErr := r.classify(err)
			var ae *APIError
			if errors.As(apiErr, &ae) && !ae.IsRetryable() {
				return retry.Permanent(apiErr)
			}
			if attempt <= r.cfg.MaxRetries {
				r.cfg.Logger.Warn("retrying request", "provider", r.provider, "attempt", attempt, "err", apiErr)
			}
			return apiErr
		}
		out = resp.Body
		return nil
	})
	if err != nil {
		return nil, WrapError(r.provider, err)
	}
	return out, nil
}

func (r *requester) get(ctx context.Context, url string, headers map[string]string) error {
	_, err := r.client.Call(ctx, httpc.Request{Method: http.MethodGet, URL: url, Headers: headers})
	if err != nil {
		return WrapError(r.provider, r.classify(err))
	}
	return nil
}

func (r *requester) classify(err error) error {
	var he *httpc.HTTPError
	if errors.As(err, &he) {
		msg := he.Body
		if r.parseError != nil {
			msg = r.parseError(he.Status, he.Body)
		}
		return &APIError{StatusCode: he.Status, Message: msg, Provider: r.provider}
	}
	return err
}

func (r *requester) close() {
	if r.client.HTTP != nil {
		r.client.HTTP.CloseIdleConnections()
	}
}
