package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ledgerlens/bill-extractor/internal/common"
	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/llm"
	"github.com/ledgerlens/bill-extractor/internal/ocr"
	"github.com/ledgerlens/bill-extractor/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("billd")
	var (
		addr     = fs.StringLong("addr", cfg.Server.Addr, "HTTP listen address")
		provider = fs.StringLong("provider", cfg.LLM.Provider, "Model backend: 'openai' or 'gemini'")
		model    = fs.StringLong("model", cfg.LLM.Model, "Model name")
		noOCR    = fs.BoolLong("no-ocr", "Disable the document recognition endpoint")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("BILLD")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.Server.Addr = *addr
	cfg.LLM.Provider = *provider
	cfg.LLM.Model = *model

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var invoker llm.Invoker
	switch cfg.LLM.Provider {
	case "gemini":
		gc, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxAttempts: cfg.LLM.MaxAttempts,
		}, logger)
		if err != nil {
			logger.Error("init gemini client", "error", err)
			os.Exit(1)
		}
		defer gc.Close()
		invoker = gc
	case "openai":
		invoker = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			MaxAttempts: cfg.LLM.MaxAttempts,
		}, logger)
	default:
		logger.Error("unknown provider", "provider", cfg.LLM.Provider)
		os.Exit(1)
	}

	var recognizer ocr.TextRecognizer
	if !*noOCR && cfg.LLM.Provider == "gemini" {
		rec, err := ocr.NewGeminiRecognizer(ctx, cfg.LLM.APIKey, cfg.OCR.Model, logger)
		if err != nil {
			logger.Error("init document recognizer", "error", err)
			os.Exit(1)
		}
		defer rec.Close()
		recognizer = rec
	}

	ex := extract.New(extract.Config{
		MaxRepairAttempts: &cfg.Extract.MaxRepairAttempts,
		Deadline:          cfg.Extract.Deadline,
		PriceTolerance:    cfg.Extract.PriceTolerance,
		Temperature:       cfg.LLM.Temperature,
	}, invoker, logger)

	srv := server.New(ex, recognizer, cfg.OCR, logger)

	logger.Info("billd serving", "addr", cfg.Server.Addr, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	if err := server.ListenAndServe(ctx, cfg.Server, srv.Routes(), logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
