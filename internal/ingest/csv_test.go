package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestReadSales(t *testing.T) {
	csvData := strings.Join([]string{
		"move_date,product_code,qty_sold,store",
		"2025-01-01,SKU-1,5,Jakarta",
		"2025-01-02,SKU-1,0,Jakarta",
		"2025-01-02,SKU-2,3.5,Bandung",
	}, "\n")

	obs, err := ReadSales(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, "SKU-1", obs[0].ProductCode)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), obs[0].MoveDate)
	assert.Equal(t, 5.0, obs[0].QtySold)
	assert.Equal(t, 3.5, obs[2].QtySold)
}

func TestReadSalesLooseColumnMatching(t *testing.T) {
	csvData := "Move Date,Product-Code,QTY_SOLD\n2025-03-01,A,1\n"

	obs, err := ReadSales(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "A", obs[0].ProductCode)
}

func TestReadSalesMissingColumn(t *testing.T) {
	csvData := "move_date,qty_sold\n2025-01-01,5\n"

	_, err := ReadSales(strings.NewReader(csvData))
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "product_code")
}

func TestReadSalesRejectsNegativeQuantity(t *testing.T) {
	csvData := "move_date,product_code,qty_sold\n2025-01-01,SKU-1,-2\n"

	_, err := ReadSales(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative quantity")
}

func TestReadSalesSkipsBadRows(t *testing.T) {
	csvData := strings.Join([]string{
		"move_date,product_code,qty_sold",
		"not-a-date,SKU-1,5",
		"2025-01-01,,5",
		"2025-01-02,SKU-1,abc",
		"2025-01-03,SKU-1,7",
	}, "\n")

	obs, err := ReadSales(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 7.0, obs[0].QtySold)
}

func TestReadSalesThousandSeparators(t *testing.T) {
	csvData := "move_date,product_code,qty_sold\n2025-01-01,SKU-1,\"1,250\"\n"

	obs, err := ReadSales(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 1250.0, obs[0].QtySold)
}

func TestReadInventory(t *testing.T) {
	csvData := strings.Join([]string{
		"product_code,available_stock,location,snapshot_date",
		"SKU-1,120,Jakarta,2025-06-01",
		"SKU-2,33,,",
	}, "\n")

	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	snaps, err := ReadInventory(strings.NewReader(csvData), now)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, 120.0, snaps[0].AvailableStock)
	assert.Equal(t, "Jakarta", snaps[0].Location)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), snaps[0].SnapshotDate)

	// Missing snapshot date falls back to the load day.
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), snaps[1].SnapshotDate)
}

func TestReadInventoryMissingStockColumn(t *testing.T) {
	csvData := "product_code,location\nSKU-1,Jakarta\n"

	_, err := ReadInventory(strings.NewReader(csvData), time.Now())
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
}
