package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Decode reports either a typed BillFields or a non-empty list of field-level
// violations for a generic decoded value. It is pure: unknown top-level keys
// are ignored, missing optionals default to nil and line_items to empty.
func Decode(m map[string]any) (BillFields, []Violation) {
	var out BillFields
	var violations []Violation

	out.Merchant, violations = decodeOptString(m, "merchant", violations)

	if date, ok := presentNonNil(m, "date"); ok {
		s, isStr := date.(string)
		s = strings.TrimSpace(s)
		if !isStr || !reDate.MatchString(s) {
			violations = append(violations, Violation{
				Field:    "date",
				Expected: "YYYY-MM-DD string or null",
				Actual:   render(date),
			})
		} else {
			out.Date = &s
		}
	}

	out.Total, violations = decodeOptMoney(m, "total", violations)
	out.Tax, violations = decodeOptMoney(m, "tax", violations)

	if cur, ok := presentNonNil(m, "currency"); ok {
		s, isStr := cur.(string)
		s = strings.ToUpper(strings.TrimSpace(s))
		if !isStr || !reCurrency.MatchString(s) {
			violations = append(violations, Violation{
				Field:    "currency",
				Expected: "3-letter ISO 4217 code or null",
				Actual:   render(cur),
			})
		} else {
			out.Currency = &s
		}
	}

	out.LineItems, violations = decodeLineItems(m, violations)

	if sum, ok := m["summary"].(string); ok && strings.TrimSpace(sum) != "" {
		out.Summary = strings.TrimSpace(sum)
	} else {
		violations = append(violations, Violation{
			Field:    "summary",
			Expected: "non-empty string",
			Actual:   render(m["summary"]),
		})
	}

	if len(violations) > 0 {
		return BillFields{}, violations
	}
	return out, nil
}

func decodeLineItems(m map[string]any, violations []Violation) ([]LineItem, []Violation) {
	items := make([]LineItem, 0)
	raw, ok := presentNonNil(m, "line_items")
	if !ok {
		return items, violations
	}
	arr, ok := raw.([]any)
	if !ok {
		return items, append(violations, Violation{
			Field:    "line_items",
			Expected: "array of line items",
			Actual:   render(raw),
		})
	}
	for i, el := range arr {
		path := fmt.Sprintf("line_items[%d]", i)
		obj, ok := el.(map[string]any)
		if !ok {
			violations = append(violations, Violation{
				Field:    path,
				Expected: "object",
				Actual:   render(el),
			})
			continue
		}
		var item LineItem

		if name, ok := obj["name"].(string); ok && strings.TrimSpace(name) != "" {
			item.Name = strings.TrimSpace(name)
		} else {
			violations = append(violations, Violation{
				Field:    path + ".name",
				Expected: "non-empty string",
				Actual:   render(obj["name"]),
			})
		}

		qty, ok := asNumber(obj["qty"])
		if !ok || qty <= 0 {
			violations = append(violations, Violation{
				Field:    path + ".qty",
				Expected: "positive number",
				Actual:   render(obj["qty"]),
			})
		} else {
			item.Qty = qty
		}

		for _, f := range []struct {
			key string
			dst *string
		}{
			{"unit_price", &item.UnitPrice},
			{"total_price", &item.TotalPrice},
		} {
			if s, ok := asMoney(obj[f.key]); ok {
				*f.dst = s
			} else {
				violations = append(violations, Violation{
					Field:    path + "." + f.key,
					Expected: "non-negative decimal string",
					Actual:   render(obj[f.key]),
				})
			}
		}

		items = append(items, item)
	}
	return items, violations
}

func decodeOptString(m map[string]any, key string, violations []Violation) (*string, []Violation) {
	v, ok := presentNonNil(m, key)
	if !ok {
		return nil, violations
	}
	s, isStr := v.(string)
	s = strings.TrimSpace(s)
	if !isStr || s == "" {
		return nil, append(violations, Violation{
			Field:    key,
			Expected: "non-empty string or null",
			Actual:   render(v),
		})
	}
	return &s, violations
}

func decodeOptMoney(m map[string]any, key string, violations []Violation) (*string, []Violation) {
	v, ok := presentNonNil(m, key)
	if !ok {
		return nil, violations
	}
	s, ok := asMoney(v)
	if !ok {
		return nil, append(violations, Violation{
			Field:    key,
			Expected: "non-negative decimal string or null",
			Actual:   render(v),
		})
	}
	return &s, violations
}

// asMoney coerces a decoded JSON value into a normalized two-decimal string.
// Numeric values are accepted and reformatted; negative amounts are rejected.
func asMoney(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return "", false
		}
		return fmt.Sprintf("%.2f", t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return "", false
		}
		return fmt.Sprintf("%.2f", f), true
	default:
		return "", false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// presentNonNil reports a key that is present with a non-null value.
func presentNonNil(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func render(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
