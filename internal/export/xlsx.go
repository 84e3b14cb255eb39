package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ledgerlens/bill-extractor/internal/async"
)

// WriteBatchXLSX renders a batch of extraction outcomes as an XLSX workbook and
// returns its bytes. Failed extractions are included with the error in the
// notes column so a batch report never silently drops a bill.
func WriteBatchXLSX(outcomes []async.Outcome, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Bills"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Source",
		"Merchant",
		"Date",
		"Total",
		"Currency",
		"Tax",
		"Items",
		"Line Total",
		"Attempts",
		"Fallback",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, o := range outcomes {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, o.Name)
		if o.Err != nil {
			write(11, truncate("error: "+o.Err.Error(), 140))
			row++
			continue
		}

		r := o.Result
		write(2, deref(r.Merchant))
		write(3, deref(r.Date))
		write(4, deref(r.Total))
		write(5, deref(r.Currency))
		write(6, deref(r.Tax))
		write(7, r.ItemCount)
		write(8, r.LineTotal)
		write(9, r.Attempts)
		if r.HeuristicFallback {
			write(10, "yes")
		} else {
			write(10, "no")
		}
		notes := r.Summary
		for _, w := range r.Warnings {
			notes += "; " + w
		}
		write(11, truncate(notes, 140))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // source
	_ = f.SetColWidth(sheet, "B", "B", 24) // merchant
	_ = f.SetColWidth(sheet, "C", "C", 12) // date
	_ = f.SetColWidth(sheet, "D", "H", 12) // amounts
	_ = f.SetColWidth(sheet, "K", "K", 60) // notes

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(outcomes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
