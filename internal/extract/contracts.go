package extract

import (
	"github.com/ledgerlens/bill-extractor/internal/llm"
	"github.com/ledgerlens/bill-extractor/internal/schema"
)

// BillText is the immutable extraction input: normalized text from the
// transport layer or an OCR collaborator, plus an optional language tag.
type BillText struct {
	Text string
	Lang string
}

// Options are per-call caller preferences.
type Options struct {
	// Debug attaches the raw text of the last model attempt to the result.
	// Off by default so bill content does not leak into logs or responses.
	Debug bool
}

// Result is the validated extraction plus its provenance. Created once per
// orchestration and immutable after creation; it has no persistence.
type Result struct {
	schema.BillFields

	Attempts          int      `json:"attempts"`
	HeuristicFallback bool     `json:"heuristic_fallback"`
	Warnings          []string `json:"warnings,omitempty"`

	// ItemCount and LineTotal are advisory aggregates over line_items; the
	// top-level total stays the extracted one.
	ItemCount int    `json:"item_count"`
	LineTotal string `json:"line_total,omitempty"`

	TokenUsage llm.TokenUsage `json:"token_usage"`

	// RawModelOutput is present only when Options.Debug was set.
	RawModelOutput string `json:"raw_model_output,omitempty"`
}
