package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxAttempts int
}

// GeminiClient implements Invoker using Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
	max    int
	logger *slog.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "gemini api key is required", common.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > 3 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, common.WrapError(err, "creating gemini client")
	}
	return &GeminiClient{client: client, model: cfg.Model, max: cfg.MaxAttempts, logger: logger}, nil
}

func (g *GeminiClient) Invoke(ctx context.Context, prompt string, opts Options) (RawOutput, error) {
	rid := uuid.New().String()
	start := time.Now()

	g.logger.Info("llm.invoke.start",
		"req_id", rid,
		"provider", "gemini",
		"model", g.model,
		"temp", opts.Temperature,
		"prompt_len", len(prompt),
	)

	m := g.client.GenerativeModel(g.model)
	temp := opts.Temperature
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}

	var resp *genai.GenerateContentResponse
	operation := func() error {
		var opErr error
		resp, opErr = m.GenerateContent(ctx, genai.Text(prompt))
		if opErr != nil && !retryableGemini(opErr) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(g.max-1)), ctx),
	); err != nil {
		err = classifyGemini(ctx, err)
		g.logger.Error("llm.invoke.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return RawOutput{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return RawOutput{}, common.NewAppError("LLM_EMPTY", "no candidates in gemini response", common.ErrTransport)
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := RawOutput{Text: strings.TrimSpace(text.String())}
	if u := resp.UsageMetadata; u != nil {
		out.Tokens = TokenUsage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	g.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"output_len", len(out.Text),
		"total_tokens", out.Tokens.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Close closes the underlying Gemini client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func retryableGemini(err error) bool {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code == http.StatusTooManyRequests || ge.Code/100 == 5
	}
	// connection-level failures have no status; retry them
	return !errors.Is(err, context.Canceled)
}

func classifyGemini(ctx context.Context, err error) error {
	var ge *googleapi.Error
	switch {
	case errors.As(err, &ge) && ge.Code == http.StatusTooManyRequests:
		return common.NewAppError("LLM_RATE_LIMIT", ge.Message, common.ErrRateLimited)
	case errors.As(err, &ge):
		return common.NewAppError("LLM_STATUS", ge.Message, common.ErrTransport)
	case isTimeout(ctx, err):
		return common.NewAppError("LLM_TIMEOUT", "no response within deadline", common.ErrTimeout)
	default:
		return common.NewAppError("LLM_TRANSPORT", err.Error(), common.ErrTransport)
	}
}
