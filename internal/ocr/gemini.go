package ocr

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

const recognizePrompt = "Transcribe every piece of text visible in this bill or receipt document, " +
	"top to bottom, preserving line breaks. Output plain text only, no commentary."

// GeminiRecognizer implements TextRecognizer using Gemini vision.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGeminiRecognizer(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "gemini api key is required", common.ErrInvalidInput)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(err, "creating gemini client")
	}
	return &GeminiRecognizer{client: client, model: model, logger: logger}, nil
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	start := time.Now()
	m := g.client.GenerativeModel(g.model)

	resp, err := m.GenerateContent(ctx,
		&genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(recognizePrompt),
	)
	if err != nil {
		return "", common.NewAppError("OCR_RECOGNIZE", err.Error(), common.ErrInvalidInput)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", common.NewAppError("OCR_RECOGNIZE", "empty recognition response", common.ErrInvalidInput)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", common.NewAppError("OCR_RECOGNIZE", "no text recognized in document", common.ErrInvalidInput)
	}

	g.logger.Info("ocr.recognize.ok",
		"mime_type", mimeType,
		"doc_bytes", len(data),
		"text_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Close closes the underlying Gemini client.
func (g *GeminiRecognizer) Close() error {
	return g.client.Close()
}
