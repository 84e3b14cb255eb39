package repair

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ledgerlens/bill-extractor/internal/schema"
)

// DefaultPriceTolerance is the relative deviation allowed before a line-item
// arithmetic warning is recorded.
const DefaultPriceTolerance = 0.01

// checkArithmetic records soft warnings for line items whose total_price
// deviates from qty × unit_price, and for a grand-total mismatch between the
// line-item sum and the top-level total. Warnings never block acceptance.
func checkArithmetic(fields schema.BillFields, tolerance float64) []string {
	if tolerance <= 0 {
		tolerance = DefaultPriceTolerance
	}
	var warnings []string

	var lineSum float64
	for i, item := range fields.LineItems {
		unit, uerr := strconv.ParseFloat(item.UnitPrice, 64)
		total, terr := strconv.ParseFloat(item.TotalPrice, 64)
		if uerr != nil || terr != nil {
			continue
		}
		lineSum += total
		expected := item.Qty * unit
		if deviates(total, expected, tolerance) {
			warnings = append(warnings, fmt.Sprintf(
				"line_items[%d]: total_price %s deviates from qty × unit_price (%.2f)",
				i, item.TotalPrice, expected))
		}
	}

	if fields.Total != nil && len(fields.LineItems) > 0 {
		if total, err := strconv.ParseFloat(*fields.Total, 64); err == nil {
			if deviates(lineSum, total, tolerance) {
				warnings = append(warnings, fmt.Sprintf(
					"line item sum %.2f differs from total %s", lineSum, *fields.Total))
			}
		}
	}
	return warnings
}

func deviates(got, want, tolerance float64) bool {
	if want == 0 {
		return math.Abs(got) > tolerance
	}
	return math.Abs(got-want)/math.Abs(want) > tolerance
}

// LineTotal returns the two-decimal sum of line item totals and the item count.
func LineTotal(fields schema.BillFields) (string, int) {
	var sum float64
	for _, item := range fields.LineItems {
		if total, err := strconv.ParseFloat(item.TotalPrice, 64); err == nil {
			sum += total
		}
	}
	return fmt.Sprintf("%.2f", sum), len(fields.LineItems)
}
