// Package repair drives the validator/repairer state machine:
// Parsing → Validating → {Accepted, Repairing, Exhausted}. Each repair attempt
// re-prompts the model with the most recent attempt's violations only, keeping
// prompts bounded in size.
package repair

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ledgerlens/bill-extractor/internal/llm"
	"github.com/ledgerlens/bill-extractor/internal/prompt"
	"github.com/ledgerlens/bill-extractor/internal/schema"
)

// DefaultMaxRepairAttempts is the repair ceiling after the first model call,
// i.e. three model calls total.
const DefaultMaxRepairAttempts = 2

// Machine owns the bounded schema-repair loop for one extraction call.
type Machine struct {
	Invoker           llm.Invoker
	MaxRepairAttempts int
	PriceTolerance    float64
	Temperature       float32
	Logger            *slog.Logger
}

func NewMachine(invoker llm.Invoker, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		Invoker:           invoker,
		MaxRepairAttempts: DefaultMaxRepairAttempts,
		PriceTolerance:    DefaultPriceTolerance,
		Logger:            logger,
	}
}

// RunResult is the terminal state of one run of the loop.
type RunResult struct {
	Fields   schema.BillFields
	Accepted bool
	Attempts int
	Warnings []string
	LastRaw  llm.RawOutput
	Tokens   llm.TokenUsage

	// LastViolations holds the final attempt's violations when not accepted.
	LastViolations []schema.Violation
}

// Run invokes the model up to MaxRepairAttempts+1 times and validates each
// response. It returns an error only for backend failures; validation failures
// are absorbed and reported through the unaccepted RunResult.
func (m *Machine) Run(ctx context.Context, req prompt.Request) (RunResult, error) {
	maxRepairs := m.MaxRepairAttempts
	if maxRepairs < 0 {
		maxRepairs = 0
	}

	res := RunResult{}
	attemptCtx := prompt.Context{}

	for attempt := 0; attempt <= maxRepairs; attempt++ {
		attemptCtx.Attempt = attempt
		p := prompt.Build(req, attemptCtx)

		raw, err := m.Invoker.Invoke(ctx, p, llm.Options{Temperature: m.Temperature})
		if err != nil {
			return res, err
		}
		res.Attempts = attempt + 1
		res.LastRaw = raw
		res.Tokens.Add(raw.Tokens)

		violations := m.evaluate(raw.Text, &res)
		if res.Accepted {
			m.Logger.Info("repair.accepted", "attempt", res.Attempts, "warnings", len(res.Warnings))
			return res, nil
		}

		m.Logger.Warn("repair.attempt_invalid",
			"attempt", res.Attempts,
			"violations", len(violations),
		)
		res.LastViolations = violations
		attemptCtx.Violations = violations
		attemptCtx.PriorRaw = raw.Text
	}

	m.Logger.Warn("repair.exhausted", "attempts", res.Attempts)
	return res, nil
}

// evaluate runs the Parsing and Validating states for one raw response,
// mutating res on acceptance and returning violations otherwise.
func (m *Machine) evaluate(rawText string, res *RunResult) []schema.Violation {
	obj, parseViolation := ParseObject(rawText)
	if parseViolation != nil {
		return []schema.Violation{*parseViolation}
	}

	fields, violations := schema.Decode(obj)
	if len(violations) > 0 {
		return violations
	}

	res.Fields = fields
	res.Warnings = checkArithmetic(fields, m.PriceTolerance)

	// Structural post-check over the normalized fields. Decode is tolerant on
	// input but its output must always satisfy the published schema.
	if b, err := json.Marshal(fields); err == nil {
		if err := schema.ValidateAgainstSchema(schema.BuildBillJSONSchema(), b); err != nil {
			m.Logger.Warn("repair.normalized_schema_mismatch", "error", err)
			res.Warnings = append(res.Warnings, "normalized fields failed schema check: "+err.Error())
		}
	}

	res.Accepted = true
	return nil
}
