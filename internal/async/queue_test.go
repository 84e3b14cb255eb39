package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/llm"
)

type fixedInvoker struct{}

func (fixedInvoker) Invoke(_ context.Context, _ string, _ llm.Options) (llm.RawOutput, error) {
	return llm.RawOutput{Text: `{
		"merchant": "Corner Shop",
		"date": "2026-03-01",
		"total": "12.50",
		"currency": "USD",
		"tax": null,
		"line_items": [],
		"summary": "Groceries at Corner Shop for 12.50 USD."
	}`}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestQueueDrainsAllJobs(t *testing.T) {
	ex := extract.New(extract.Config{}, fixedInvoker{}, discard())
	q := NewExtractQueue(ex, discard(), WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{
			Name: fmt.Sprintf("bill-%d.txt", i),
			Text: "Corner Shop\nTotal: $12.50",
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	outcomes := q.Outcomes()
	require.Len(t, outcomes, 5)
	names := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		require.NotNil(t, o.Result.Merchant)
		assert.Equal(t, "Corner Shop", *o.Result.Merchant)
		names[o.Name] = true
	}
	assert.Len(t, names, 5)
}

func TestQueueRecordsFailures(t *testing.T) {
	ex := extract.New(extract.Config{}, fixedInvoker{}, discard())
	q := NewExtractQueue(ex, discard(), WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Name: "empty.txt", Text: "   "}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	outcomes := q.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestEnqueueAfterShutdownIsNoop(t *testing.T) {
	ex := extract.New(extract.Config{}, fixedInvoker{}, discard())
	q := NewExtractQueue(ex, discard(), WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.NoError(t, q.Enqueue(context.Background(), Job{Name: "late.txt", Text: "x"}))
	assert.Empty(t, q.Outcomes())
}
