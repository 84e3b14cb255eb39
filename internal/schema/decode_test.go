package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, doc string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	return m
}

func TestDecodeValidDocument(t *testing.T) {
	m := decodeJSON(t, `{
		"merchant": "Joe's Diner",
		"date": "2026-01-02",
		"total": "45.00",
		"currency": "USD",
		"tax": "3.50",
		"line_items": [
			{"name": "Burger", "qty": 1, "unit_price": "25.00", "total_price": "25.00"}
		],
		"summary": "Meal at Joe's Diner for $45.00"
	}`)

	fields, violations := Decode(m)
	require.Empty(t, violations)
	require.NotNil(t, fields.Merchant)
	assert.Equal(t, "Joe's Diner", *fields.Merchant)
	assert.Equal(t, "2026-01-02", *fields.Date)
	assert.Equal(t, "45.00", *fields.Total)
	assert.Equal(t, "USD", *fields.Currency)
	assert.Equal(t, "3.50", *fields.Tax)
	require.Len(t, fields.LineItems, 1)
	assert.Equal(t, "Burger", fields.LineItems[0].Name)
	assert.Equal(t, 1.0, fields.LineItems[0].Qty)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string // first violation field, empty means accept
		check     func(t *testing.T, fields BillFields)
	}{
		{
			name: "unknown top-level keys are ignored",
			doc:  `{"summary": "ok", "vendor_id": 42, "confidence": 0.9}`,
			check: func(t *testing.T, fields BillFields) {
				assert.Nil(t, fields.Merchant)
				assert.NotNil(t, fields.LineItems)
				assert.Empty(t, fields.LineItems)
			},
		},
		{
			name: "null optionals stay nil",
			doc:  `{"merchant": null, "date": null, "total": null, "currency": null, "tax": null, "line_items": null, "summary": "ok"}`,
			check: func(t *testing.T, fields BillFields) {
				assert.Nil(t, fields.Merchant)
				assert.Nil(t, fields.Date)
				assert.Nil(t, fields.Total)
				assert.NotNil(t, fields.LineItems)
			},
		},
		{
			name: "numeric money is coerced to a two-decimal string",
			doc:  `{"total": 45, "tax": 3.5, "summary": "ok"}`,
			check: func(t *testing.T, fields BillFields) {
				assert.Equal(t, "45.00", *fields.Total)
				assert.Equal(t, "3.50", *fields.Tax)
			},
		},
		{
			name: "lowercase currency is normalized before the check",
			doc:  `{"currency": "usd", "summary": "ok"}`,
			check: func(t *testing.T, fields BillFields) {
				assert.Equal(t, "USD", *fields.Currency)
			},
		},
		{
			name:      "malformed date is a violation",
			doc:       `{"date": "02/01/2026", "summary": "ok"}`,
			wantField: "date",
		},
		{
			name:      "negative total is a violation",
			doc:       `{"total": "-5.00", "summary": "ok"}`,
			wantField: "total",
		},
		{
			name:      "currency must be three letters",
			doc:       `{"currency": "US", "summary": "ok"}`,
			wantField: "currency",
		},
		{
			name:      "zero qty is a violation",
			doc:       `{"line_items": [{"name": "Burger", "qty": 0, "unit_price": "5.00", "total_price": "0.00"}], "summary": "ok"}`,
			wantField: "line_items[0].qty",
		},
		{
			name:      "missing summary is a violation",
			doc:       `{"merchant": "Joe's Diner"}`,
			wantField: "summary",
		},
		{
			name:      "empty summary is a violation",
			doc:       `{"summary": "  "}`,
			wantField: "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, violations := Decode(decodeJSON(t, tt.doc))
			if tt.wantField != "" {
				require.NotEmpty(t, violations)
				assert.Equal(t, tt.wantField, violations[0].Field)
				return
			}
			require.Empty(t, violations)
			if tt.check != nil {
				tt.check(t, fields)
			}
		})
	}
}

func TestDecodeCollectsAllViolations(t *testing.T) {
	m := decodeJSON(t, `{"date": "bad", "total": "nope", "currency": "x"}`)
	_, violations := Decode(m)
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"date", "total", "currency", "summary"}, fields)
}

func TestValidateAgainstSchema(t *testing.T) {
	s := BuildBillJSONSchema()

	err := ValidateAgainstSchema(s, []byte(`{"merchant": null, "summary": "ok", "line_items": []}`))
	assert.NoError(t, err)

	err = ValidateAgainstSchema(s, []byte(`{"date": "not-a-date", "summary": "ok"}`))
	assert.Error(t, err)
}
