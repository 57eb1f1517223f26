package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/retry"
)

const providerGateway = "gateway"

// Client is the HTTP gateway provider.
// Works with any OpenAI-compatible chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *httpc.Client
	logger  *slog.Logger
}

// NewClient creates a new gateway client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    httpc.NewWithTimeout(cfg.Timeout),
		logger:  cfg.Logger.With("component", "inference.client"),
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	body, err := json.Marshal(c.buildChatPayload(req, model))
	if err != nil {
		return nil, WrapError(providerGateway, fmt.Errorf("marshal payload: %w", err))
	}

	var data []byte
	err = retry.Do(ctx, c.config.retryPolicy(), func(attempt int) error {
		resp, err := c.http.Call(ctx, httpc.Request{
			Method:     http.MethodPost,
			URL:        c.baseURL + "/chat/completions",
			Headers:    c.headers(),
			Body:       body,
			ExpectJSON: true,
		})
		if err != nil {
			classified := c.classify(err)
			var ge *GatewayError
			if errors.As(classified, &ge) && ge.IsRetryable() {
				c.logger.Warn("retrying request", "attempt", attempt, "status", ge.StatusCode)
				return classified
			}
			return retry.Permanent(classified)
		}
		data = resp.Body
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			var ge *GatewayError
			if errors.As(err, &ge) {
				return nil, ge
			}
		}
		return nil, err
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &GatewayError{
			StatusCode: http.StatusOK,
			Message:    "decode response: " + err.Error(),
			Provider:   providerGateway,
			Err:        httpc.ErrMalformed,
		}
	}
	if len(result.Choices) == 0 {
		return nil, &GatewayError{
			StatusCode: http.StatusOK,
			Message:    "no choices returned",
			Provider:   providerGateway,
			Err:        ErrNoChoices,
		}
	}

	choice := result.Choices[0]
	latency := time.Since(start).Milliseconds()
	c.logger.Debug("chat completion",
		"model", result.Model,
		"finish_reason", choice.FinishReason,
		"tool_calls", len(choice.Message.ToolCalls),
		"latency_ms", latency,
	)

	return &ChatResponse{
		Message: Message{
			Role:      RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: parseToolCalls(choice.Message.ToolCalls),
		},
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
		Model:     result.Model,
		LatencyMs: latency,
	}, nil
}

// Health checks gateway connectivity.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.http.Call(ctx, httpc.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + "/models",
		Headers: c.headers(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return c.classify(err)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	if c.http.HTTP != nil {
		c.http.HTTP.CloseIdleConnections()
	}
	return nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// classify maps transport failures onto the gateway taxonomy.
func (c *Client) classify(err error) error {
	if httpc.IsUnreachable(err) {
		return WrapError(providerGateway, fmt.Errorf("%w: %w", ErrGatewayUnreachable, err))
	}
	var he *httpc.HTTPError
	if errors.As(err, &he) {
		return parseError(he)
	}
	if errors.Is(err, httpc.ErrMalformed) {
		return &GatewayError{StatusCode: http.StatusOK, Message: err.Error(), Provider: providerGateway, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return WrapError(providerGateway, fmt.Errorf("%w: %w", ErrGatewayUnreachable, err))
	}
	return WrapError(providerGateway, err)
}

// buildChatPayload constructs the API request payload.
func (c *Client) buildChatPayload(req *ChatRequest, model string) map[string]any {
	messages := make([]map[string]any, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = msg.wire()
	}

	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}

	temp := req.Temperature
	if temp == 0 {
		temp = c.config.Temperature
	}
	if temp > 0 {
		payload["temperature"] = temp
	}

	if req.User != "" {
		payload["user"] = req.User
	}

	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = t.wire()
		}
		payload["tools"] = tools
		if req.ToolChoice != "" {
			payload["tool_choice"] = req.ToolChoice
		}
	}

	return payload
}

// parseError turns a non-2xx response into a *GatewayError.
func parseError(he *httpc.HTTPError) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	message := he.Body
	code := ""
	if json.Unmarshal([]byte(he.Body), &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		if errResp.Error.Code != nil {
			code = fmt.Sprint(errResp.Error.Code)
		}
	}

	return &GatewayError{
		StatusCode: he.Status,
		Message:    message,
		Code:       code,
		Provider:   providerGateway,
		Err:        he,
	}
}

// parseToolCalls converts API tool calls to our format. Gateways that omit
// call IDs get a generated one so tool results can still be threaded back.
func parseToolCalls(calls []apiToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]ToolCall, len(calls))
	for i, call := range calls {
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := call.Function.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		result[i] = ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: args,
		}
	}
	return result
}

// API response types
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string        `json:"role"`
			Content   string        `json:"content"`
			ToolCalls []apiToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
