// Package extract composes prompt building, model invocation, and the repair
// state machine into a single call: text in, validated result out.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/bill-extractor/internal/common"
	"github.com/ledgerlens/bill-extractor/internal/heuristic"
	"github.com/ledgerlens/bill-extractor/internal/llm"
	"github.com/ledgerlens/bill-extractor/internal/prompt"
	"github.com/ledgerlens/bill-extractor/internal/repair"
)

// Config holds the repair-loop knobs. Zero values fall back to defaults.
type Config struct {
	// MaxRepairAttempts is the schema-repair retry ceiling after the first
	// call. nil means the default; an explicit zero disables repairs.
	MaxRepairAttempts *int
	Deadline          time.Duration // bound on the whole orchestration
	PriceTolerance    float64
	Temperature       float32
}

// Extractor is the orchestrator. It is stateless between calls; concurrent
// extractions proceed independently.
type Extractor struct {
	cfg     Config
	invoker llm.Invoker
	logger  *slog.Logger
}

func New(cfg Config, invoker llm.Invoker, logger *slog.Logger) *Extractor {
	maxRepairs := repair.DefaultMaxRepairAttempts
	if cfg.MaxRepairAttempts != nil && *cfg.MaxRepairAttempts >= 0 {
		maxRepairs = *cfg.MaxRepairAttempts
	}
	cfg.MaxRepairAttempts = &maxRepairs
	if cfg.Deadline <= 0 {
		cfg.Deadline = 2 * time.Minute
	}
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = repair.DefaultPriceTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, invoker: invoker, logger: logger}
}

// Extract validates the input, drives the repair loop, and packages the
// terminal state. The only hard failures are empty input and a backend that
// stayed unreachable through all invocation-level retries; every validation
// failure degrades to the heuristic path instead.
func (e *Extractor) Extract(ctx context.Context, bill BillText, opts Options) (Result, error) {
	text := strings.TrimSpace(bill.Text)
	if text == "" {
		return Result{}, common.NewAppError("EXTRACT_INPUT", "bill text is empty after trimming", common.ErrInvalidInput)
	}

	rid := common.RequestIDFromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	start := time.Now()
	e.logger.Info("extract.start", "req_id", rid, "text_len", len(text), "lang", bill.Lang)

	machine := repair.NewMachine(e.invoker, e.logger)
	machine.MaxRepairAttempts = *e.cfg.MaxRepairAttempts
	machine.PriceTolerance = e.cfg.PriceTolerance
	machine.Temperature = e.cfg.Temperature

	run, err := machine.Run(ctx, prompt.Request{Text: bill.Text, Lang: bill.Lang})
	if err != nil {
		// A deadline that elapsed mid-retry still yields the best available
		// result via the exhausted path rather than leaving the call hanging.
		if errors.Is(err, common.ErrTimeout) || ctx.Err() != nil {
			e.logger.Warn("extract.deadline_elapsed", "req_id", rid, "attempts", run.Attempts)
			return e.exhausted(rid, text, run, opts, "deadline elapsed before an accepted result"), nil
		}
		e.logger.Error("extract.backend_error", "req_id", rid, "error", err)
		return Result{}, err
	}

	if run.Accepted {
		res := e.packageRun(run, opts)
		e.logger.Info("extract.ok",
			"req_id", rid,
			"attempts", res.Attempts,
			"warnings", len(res.Warnings),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, nil
	}

	return e.exhausted(rid, text, run, opts, "repair budget exhausted"), nil
}

func (e *Extractor) packageRun(run repair.RunResult, opts Options) Result {
	lineTotal, itemCount := repair.LineTotal(run.Fields)
	res := Result{
		BillFields: run.Fields,
		Attempts:   run.Attempts,
		Warnings:   run.Warnings,
		ItemCount:  itemCount,
		LineTotal:  lineTotal,
		TokenUsage: run.Tokens,
	}
	if opts.Debug {
		res.RawModelOutput = run.LastRaw.Text
	}
	return res
}

// exhausted is the terminal fallback: a deterministic heuristic pass over the
// bill text. It never fails; unfilled fields stay null.
func (e *Extractor) exhausted(rid, text string, run repair.RunResult, opts Options, reason string) Result {
	fields := heuristic.Extract(text)
	lineTotal, itemCount := repair.LineTotal(fields)

	res := Result{
		BillFields:        fields,
		Attempts:          run.Attempts,
		HeuristicFallback: true,
		Warnings:          []string{reason},
		ItemCount:         itemCount,
		LineTotal:         lineTotal,
		TokenUsage:        run.Tokens,
	}
	for _, v := range run.LastViolations {
		res.Warnings = append(res.Warnings, v.Error())
	}
	if opts.Debug {
		res.RawModelOutput = run.LastRaw.Text
	}
	e.logger.Warn("extract.heuristic_fallback", "req_id", rid, "reason", reason, "attempts", run.Attempts)
	return res
}
