package schema

// LineItem is one purchased item on the bill.
type LineItem struct {
	Name       string  `json:"name"`
	Qty        float64 `json:"qty"`         // positive
	UnitPrice  string  `json:"unit_price"`  // decimal
	TotalPrice string  `json:"total_price"` // decimal
}

// BillFields is the normalized shape we want from the LLM. Optional fields are
// nil when the bill does not carry them; LineItems is never nil.
type BillFields struct {
	Merchant  *string    `json:"merchant"`
	Date      *string    `json:"date"`     // YYYY-MM-DD
	Total     *string    `json:"total"`    // decimal
	Currency  *string    `json:"currency"` // ISO 4217
	Tax       *string    `json:"tax"`      // decimal
	LineItems []LineItem `json:"line_items"`
	Summary   string     `json:"summary"`
}

// Violation is a single field-level schema failure, structured so the repair
// loop can turn it into a corrective prompt clause.
type Violation struct {
	Field    string
	Expected string
	Actual   string
}

func (v Violation) Error() string {
	return "field '" + v.Field + "': expected " + v.Expected + ", got " + v.Actual
}
