package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerlens/bill-extractor/internal/async"
	"github.com/ledgerlens/bill-extractor/internal/extract"
	"github.com/ledgerlens/bill-extractor/internal/schema"
)

func str(s string) *string { return &s }

func TestWriteBatchXLSX(t *testing.T) {
	outcomes := []async.Outcome{
		{
			Name: "diner.txt",
			Result: extract.Result{
				BillFields: schema.BillFields{
					Merchant: str("Joe's Diner"),
					Date:     str("2026-01-02"),
					Total:    str("45.00"),
					Currency: str("USD"),
					Summary:  "Dinner at Joe's Diner for 45.00 USD.",
				},
				Attempts:  1,
				ItemCount: 3,
				LineTotal: "45.00",
			},
		},
		{
			Name: "broken.txt",
			Err:  errors.New("model backend unreachable"),
		},
	}

	data, err := WriteBatchXLSX(outcomes, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Bills"
	v, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Source", v)

	v, _ = f.GetCellValue(sheet, "B2")
	assert.Equal(t, "Joe's Diner", v)
	v, _ = f.GetCellValue(sheet, "D2")
	assert.Equal(t, "45.00", v)
	v, _ = f.GetCellValue(sheet, "J2")
	assert.Equal(t, "no", v)

	v, _ = f.GetCellValue(sheet, "A3")
	assert.Equal(t, "broken.txt", v)
	v, _ = f.GetCellValue(sheet, "K3")
	assert.Contains(t, v, "model backend unreachable")
}

func TestWriteBatchXLSXEmpty(t *testing.T) {
	data, err := WriteBatchXLSX(nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
