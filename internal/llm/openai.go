package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

// OpenAIConfig configures the OpenAI-compatible chat/completions backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // default https://api.openai.com/v1
	Model       string
	Timeout     time.Duration // per-request http timeout
	MaxAttempts int           // transport-level attempt ceiling, default 3
}

// OpenAIClient implements Invoker over any OpenAI-compatible HTTP endpoint.
type OpenAIClient struct {
	cfg    OpenAIConfig
	http   *http.Client
	logger *slog.Logger
}

func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > 3 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Invoke sends the prompt and returns the raw completion text. Transient
// failures (connection errors, 429, 5xx) are retried with exponential backoff
// up to the attempt ceiling; non-retryable statuses fail immediately.
func (c *OpenAIClient) Invoke(ctx context.Context, prompt string, opts Options) (RawOutput, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.invoke.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", opts.Temperature,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     opts.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return RawOutput{}, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var raw []byte
	operation := func() error {
		var opErr error
		raw, opErr = c.post(ctx, endpoint, payload)
		return opErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxAttempts-1)), ctx),
	); err != nil {
		err = classify(ctx, err)
		c.logger.Error("llm.invoke.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return RawOutput{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return RawOutput{}, common.NewAppError("LLM_DECODE", "decode backend response", common.ErrTransport)
	}
	if len(cc.Choices) == 0 {
		return RawOutput{}, common.NewAppError("LLM_EMPTY", "no choices in backend response", common.ErrTransport)
	}

	out := RawOutput{
		Text: strings.TrimSpace(cc.Choices[0].Message.Content),
		Tokens: TokenUsage{
			InputTokens:  cc.Usage.PromptTokens,
			OutputTokens: cc.Usage.CompletionTokens,
			TotalTokens:  cc.Usage.TotalTokens,
		},
	}
	c.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"output_len", len(out.Text),
		"total_tokens", out.Tokens.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// statusError carries the backend status code through the retry loop.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.code, e.body)
}

func (c *OpenAIClient) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// connection-level failure, retryable
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("llm.http.body_close_error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode/100 == 2:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5:
		// throttling and server-side faults are retryable
		return nil, &statusError{code: resp.StatusCode, body: snippet(raw)}
	default:
		return nil, backoff.Permanent(&statusError{code: resp.StatusCode, body: snippet(raw)})
	}
}

// classify maps a terminal transport failure onto the error taxonomy.
func classify(ctx context.Context, err error) error {
	var se *statusError
	switch {
	case errors.As(err, &se) && se.code == http.StatusTooManyRequests:
		return common.NewAppError("LLM_RATE_LIMIT", se.Error(), common.ErrRateLimited)
	case errors.As(err, &se):
		return common.NewAppError("LLM_STATUS", se.Error(), common.ErrTransport)
	case isTimeout(ctx, err):
		return common.NewAppError("LLM_TIMEOUT", "no response within deadline", common.ErrTimeout)
	default:
		return common.NewAppError("LLM_TRANSPORT", err.Error(), common.ErrTransport)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
