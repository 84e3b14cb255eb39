package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/bill-extractor/internal/schema"
)

const dinerBill = "Merchant: Joe's Diner\nDate: 2026-01-02\nTotal: $45.00\nItems:\n- Burger $25.00\n- Fries $5.00\n- Drink $15.00"

func TestExtractDinerBill(t *testing.T) {
	fields := Extract(dinerBill)

	require.NotNil(t, fields.Merchant)
	assert.Equal(t, "Joe's Diner", *fields.Merchant)
	require.NotNil(t, fields.Date)
	assert.Equal(t, "2026-01-02", *fields.Date)
	require.NotNil(t, fields.Total)
	assert.Equal(t, "45.00", *fields.Total)
	require.NotNil(t, fields.Currency)
	assert.Equal(t, "USD", *fields.Currency)
	assert.Nil(t, fields.Tax)
	assert.Len(t, fields.LineItems, 3)
	assert.Equal(t, "Burger", fields.LineItems[0].Name)
	assert.NotEmpty(t, fields.Summary)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, fields schema.BillFields)
	}{
		{
			name: "tax keyword proximity",
			text: "ACME Store\nVAT 19% 3.80\nTotal EUR 23.80",
			check: func(t *testing.T, fields schema.BillFields) {
				require.NotNil(t, fields.Tax)
				assert.Equal(t, "3.80", *fields.Tax)
				require.NotNil(t, fields.Total)
				assert.Equal(t, "23.80", *fields.Total)
				require.NotNil(t, fields.Currency)
				assert.Equal(t, "EUR", *fields.Currency)
			},
		},
		{
			name: "subtotal does not shadow total",
			text: "Subtotal 40.00\nTotal 45.00",
			check: func(t *testing.T, fields schema.BillFields) {
				require.NotNil(t, fields.Total)
				assert.Equal(t, "45.00", *fields.Total)
			},
		},
		{
			name: "slash date is normalized",
			text: "Receipt 03/15/2026\nTotal $10.00",
			check: func(t *testing.T, fields schema.BillFields) {
				require.NotNil(t, fields.Date)
				assert.Equal(t, "2026-03-15", *fields.Date)
			},
		},
		{
			name: "nothing recognizable stays sparse",
			text: "lorem ipsum dolor sit amet",
			check: func(t *testing.T, fields schema.BillFields) {
				assert.Nil(t, fields.Total)
				assert.Nil(t, fields.Date)
				assert.Empty(t, fields.LineItems)
				assert.NotEmpty(t, fields.Summary, "summary is always synthesized")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Extract(tt.text))
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	assert.Equal(t, Extract(dinerBill), Extract(dinerBill))
}

func TestExtractCurrencyStableWithMultipleSymbols(t *testing.T) {
	const bill = "Duty Free Shop\nPrice $10.00 (≈ €9.20)\nTotal $10.00"

	first := Extract(bill)
	require.NotNil(t, first.Currency)
	assert.Equal(t, "USD", *first.Currency, "earliest symbol in the text wins")

	for i := 0; i < 200; i++ {
		got := Extract(bill)
		require.NotNil(t, got.Currency)
		assert.Equal(t, *first.Currency, *got.Currency)
	}
}

func TestExtractCurrencyEarliestSymbolWins(t *testing.T) {
	fields := Extract("Imported goods €9.20\nTotal $10.00")
	require.NotNil(t, fields.Currency)
	assert.Equal(t, "EUR", *fields.Currency)
}

func TestSummarize(t *testing.T) {
	merchant := "Joe's Diner"
	total := "45.00"
	currency := "USD"
	date := "2026-01-02"

	s := Summarize(schema.BillFields{Merchant: &merchant, Total: &total, Currency: &currency, Date: &date})
	assert.Equal(t, "Bill from Joe's Diner totaling USD 45.00 on 2026-01-02", s)

	s = Summarize(schema.BillFields{})
	assert.Equal(t, "Bill from unknown merchant totaling an unknown amount", s)
}
