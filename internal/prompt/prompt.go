// Package prompt renders bill text, the output schema, and failure-mode
// instructions into a deterministic instruction string. Sampling directives
// (temperature) travel alongside the prompt in llm.Options, not inside it.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledgerlens/bill-extractor/internal/schema"
)

const (
	// maxBillChars bounds the bill text embedded in the prompt.
	maxBillChars = 6000
	// maxPriorChars bounds the offending raw output repeated on retries.
	maxPriorChars = 2000
)

// Request carries the immutable extraction input.
type Request struct {
	Text string
	Lang string
}

// Context carries retry state. A zero Context builds the base prompt;
// on repair attempts it holds the most recent attempt's violations and the
// offending raw output, repeated for the model's reference.
type Context struct {
	Attempt    int
	Violations []schema.Violation
	PriorRaw   string
}

// Build composes the instruction string. Same inputs always produce the same
// prompt: no randomness and no timestamps are embedded.
func Build(req Request, attempt Context) string {
	var b strings.Builder

	b.WriteString("You are a bill and receipt extraction engine. ")
	b.WriteString("Return ONLY a single JSON object that matches the JSON Schema below. ")
	b.WriteString("No prose, no markdown, no code fences.\n\n")

	b.WriteString("Fields: merchant, date (YYYY-MM-DD), total, currency (3-letter ISO 4217 code), ")
	b.WriteString("tax, line_items (each with name, qty, unit_price, total_price), ")
	b.WriteString("summary (one short line describing the bill).\n")
	b.WriteString("All money amounts are decimal strings with two decimals, e.g. \"45.00\".\n")
	b.WriteString("If a field is not visible in the bill, return null for it. ")
	b.WriteString("If no line items are visible, return an empty list for line_items. ")
	b.WriteString("Never invent values.\n")

	if lang := strings.TrimSpace(req.Lang); lang != "" {
		b.WriteString("The bill text language is: " + lang + ".\n")
	}

	b.WriteString("\nJSON Schema:\n")
	b.WriteString(mustJSON(schema.BuildBillJSONSchema()))
	b.WriteString("\n")

	if len(attempt.Violations) > 0 {
		b.WriteString("\nYour previous response was invalid. Fix every problem listed:\n")
		for _, v := range attempt.Violations {
			b.WriteString(correctiveClause(v))
			b.WriteString("\n")
		}
		if prior := strings.TrimSpace(attempt.PriorRaw); prior != "" {
			b.WriteString("\nYour previous response, for reference:\n")
			b.WriteString(truncate(prior, maxPriorChars))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nBill text:\n")
	b.WriteString(truncate(req.Text, maxBillChars))

	return b.String()
}

func correctiveClause(v schema.Violation) string {
	return fmt.Sprintf("- field `%s` must be %s; you returned `%s`, which is invalid. Return a corrected value.",
		v.Field, v.Expected, v.Actual)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// never cut mid-rune
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n…(truncated)"
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
