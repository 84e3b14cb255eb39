package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ledgerlens/bill-extractor/internal/async"
	"github.com/ledgerlens/bill-extractor/internal/common"
	"github.com/ledgerlens/bill-extractor/internal/export"
	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/llm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("extract-batch")
	var (
		dir      = fs.StringLong("dir", "", "directory of .txt bills to process (required)")
		out      = fs.StringLong("out", "", "output XLSX path (defaults to <dir>/../bills.xlsx)")
		workers  = fs.IntLong("workers", 4, "concurrent extraction workers")
		provider = fs.StringLong("provider", cfg.LLM.Provider, "Model backend: 'openai' or 'gemini'")
		model    = fs.StringLong("model", cfg.LLM.Model, "Model name")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("EXTRACT_BATCH")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "error: --dir is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "bills.xlsx")
	}
	cfg.LLM.Provider = *provider
	cfg.LLM.Model = *model

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
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

	q := async.NewExtractQueue(ex, logger, async.WithWorkers(*workers))

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Error("read directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	queued := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		path := filepath.Join(*dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read bill", "path", path, "error", err)
			continue
		}
		_ = q.Enqueue(ctx, async.Job{Name: e.Name(), Text: string(b)})
		queued++
	}
	if queued == 0 {
		logger.Error("no .txt bills found", "dir", *dir)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	q.Shutdown(shutdownCtx)

	data, err := export.WriteBatchXLSX(q.Outcomes(), logger)
	if err != nil {
		logger.Error("build report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("write report", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("batch complete", "bills", queued, "report", *out)
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
