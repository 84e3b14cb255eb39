// Package heuristic is the deterministic fallback extractor used when the
// repair budget is exhausted. It is a pure function over the bill text so it
// can be unit-tested independently of any model stub. Recovered fields are
// low-confidence by construction; anything it cannot find stays null.
package heuristic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlens/bill-extractor/internal/schema"
)

var (
	reISODate  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	reLazyDate = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{4}|\d{4}/\d{1,2}/\d{1,2})\b`)
	reAmount   = regexp.MustCompile(`([$€£₹])?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	reCurrency = regexp.MustCompile(`\b([A-Z]{3})\b`)
	reItemLine = regexp.MustCompile(`^[-*•]?\s*(.+?)\s+[$€£₹]?(\d+(?:\.\d{1,2})?)\s*$`)
	reLabeled  = regexp.MustCompile(`(?i)^\s*(merchant|vendor|store|from)\s*[:\-]\s*(.+)$`)
)

// symbolCurrency is ordered; findCurrency resolves ties by position in the
// text, never by table order.
var symbolCurrency = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
}

var knownCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "INR": {}, "CAD": {}, "AUD": {},
	"JPY": {}, "CHF": {}, "CNY": {}, "SGD": {}, "AED": {}, "NGN": {},
}

var lazyDateFormats = []string{
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
}

// Extract populates whatever fields it can from currency-amount patterns, date
// patterns, and "total"/"tax" keyword proximity. Summary is always synthesized.
func Extract(text string) schema.BillFields {
	lines := splitLines(text)
	fields := schema.BillFields{LineItems: []schema.LineItem{}}

	fields.Merchant = findMerchant(lines)
	fields.Date = findDate(text)
	fields.Total = findKeywordAmount(lines, isTotalLine)
	fields.Tax = findKeywordAmount(lines, isTaxLine)
	fields.Currency = findCurrency(text)
	fields.LineItems = findLineItems(lines)
	fields.Summary = Summarize(fields)
	return fields
}

// Summarize synthesizes a one-line summary from whatever fields were
// recovered, substituting placeholders for the rest.
func Summarize(fields schema.BillFields) string {
	merchant := "unknown merchant"
	if fields.Merchant != nil {
		merchant = *fields.Merchant
	}
	total := "an unknown amount"
	if fields.Total != nil {
		total = *fields.Total
		if fields.Currency != nil {
			total = *fields.Currency + " " + total
		}
	}
	s := fmt.Sprintf("Bill from %s totaling %s", merchant, total)
	if fields.Date != nil {
		s += " on " + *fields.Date
	}
	return s
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

func findMerchant(lines []string) *string {
	for _, l := range lines {
		if m := reLabeled.FindStringSubmatch(l); m != nil {
			name := strings.TrimSpace(m[2])
			if name != "" {
				return &name
			}
		}
	}
	// fall back to the first line that carries no amount
	for _, l := range lines {
		if !strings.ContainsAny(l, "0123456789") {
			name := l
			return &name
		}
	}
	return nil
}

func findDate(text string) *string {
	if m := reISODate.FindStringSubmatch(text); m != nil {
		return &m[1]
	}
	if m := reLazyDate.FindStringSubmatch(text); m != nil {
		for _, layout := range lazyDateFormats {
			if d, err := time.Parse(layout, m[1]); err == nil {
				s := d.Format("2006-01-02")
				return &s
			}
		}
	}
	return nil
}

func isTotalLine(l string) bool {
	low := strings.ToLower(l)
	return strings.Contains(low, "total") && !strings.Contains(low, "subtotal")
}

func isTaxLine(l string) bool {
	low := strings.ToLower(l)
	return strings.Contains(low, "tax") || strings.Contains(low, "vat") || strings.Contains(low, "gst")
}

// findKeywordAmount returns the last amount on the first line the predicate
// matches that actually carries one.
func findKeywordAmount(lines []string, match func(string) bool) *string {
	for _, l := range lines {
		if !match(l) {
			continue
		}
		if amount, ok := lastAmount(l); ok {
			return &amount
		}
	}
	return nil
}

func lastAmount(l string) (string, bool) {
	matches := reAmount.FindAllStringSubmatch(l, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		raw := strings.ReplaceAll(matches[i][2], ",", "")
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
			return fmt.Sprintf("%.2f", f), true
		}
	}
	return "", false
}

// findCurrency prefers the currency symbol appearing earliest in the text,
// then falls back to the first known three-letter code.
func findCurrency(text string) *string {
	best := -1
	var bestCode string
	for _, sc := range symbolCurrency {
		if i := strings.Index(text, sc.symbol); i >= 0 && (best < 0 || i < best) {
			best = i
			bestCode = sc.code
		}
	}
	if best >= 0 {
		return &bestCode
	}
	for _, m := range reCurrency.FindAllStringSubmatch(text, -1) {
		if _, ok := knownCurrencies[m[1]]; ok {
			c := m[1]
			return &c
		}
	}
	return nil
}

// findLineItems recognizes simple "name amount" lines, skipping the labeled
// total/tax/date rows. Quantity defaults to 1 with unit price equal to the
// line amount.
func findLineItems(lines []string) []schema.LineItem {
	items := make([]schema.LineItem, 0)
	for _, l := range lines {
		if isTotalLine(l) || isTaxLine(l) || reLabeled.MatchString(l) {
			continue
		}
		m := reItemLine.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(strings.Trim(m[1], "-*• "))
		if name == "" || strings.ContainsAny(name, ":") {
			continue
		}
		f, err := strconv.ParseFloat(m[2], 64)
		if err != nil || f <= 0 {
			continue
		}
		amount := fmt.Sprintf("%.2f", f)
		items = append(items, schema.LineItem{
			Name:       name,
			Qty:        1,
			UnitPrice:  amount,
			TotalPrice: amount,
		})
	}
	return items
}
