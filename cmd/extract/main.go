package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ledgerlens/bill-extractor/internal/common"
	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/llm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("extract")
	var (
		provider = fs.StringLong("provider", cfg.LLM.Provider, "Model backend: 'openai' or 'gemini'")
		model    = fs.StringLong("model", cfg.LLM.Model, "Model name")
		lang     = fs.StringLong("lang", "", "Bill language hint, e.g. 'en' or 'de'")
		debug    = fs.BoolLong("debug", "Attach the raw model output to the result")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("EXTRACT")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.LLM.Provider = *provider
	cfg.LLM.Model = *model

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	text, err := readInput(fs.GetArgs())
	if err != nil {
		logger.Error("read input", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	invoker, closeFn, err := buildInvoker(ctx, cfg, logger)
	if err != nil {
		logger.Error("init model backend", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	ex := extract.New(extract.Config{
		MaxRepairAttempts: &cfg.Extract.MaxRepairAttempts,
		Deadline:          cfg.Extract.Deadline,
		PriceTolerance:    cfg.Extract.PriceTolerance,
		Temperature:       cfg.LLM.Temperature,
	}, invoker, logger)

	res, err := ex.Extract(ctx, extract.BillText{Text: text, Lang: *lang}, extract.Options{Debug: *debug})
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}

// readInput takes bill text from the first positional file argument, or stdin
// when no file is given.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func buildInvoker(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Invoker, func(), error) {
	switch cfg.LLM.Provider {
	case "gemini":
		gc, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxAttempts: cfg.LLM.MaxAttempts,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return gc, func() { _ = gc.Close() }, nil
	case "openai":
		oc := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			MaxAttempts: cfg.LLM.MaxAttempts,
		}, logger)
		return oc, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}
}
