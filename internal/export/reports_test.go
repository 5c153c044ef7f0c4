package export

import (
	"testing"
	"time"

	"ledgersync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReportHistory(t *testing.T) {
	dir := t.TempDir()
	sync := &models.Sync{
		ID:       7,
		ForModel: models.KindInvoices,
		History: []models.Report{
			{
				RunID:          "run-1",
				StartedAt:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
				Count:          12,
				Skips:          []models.Skip{{Errors: map[string][]string{"number": {"can't be blank"}}}},
				AllowableSkips: map[string]int{"missing_customer_count": 3},
			},
			{
				RunID:        "run-2",
				StartedAt:    time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC),
				ExceptionMsg: "provider returned 500",
			},
		},
	}

	path, err := WriteReportHistory(dir, sync)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "sync_7_invoices_")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per run")

	assert.Equal(t, "Run ID", rows[0][0])
	assert.Equal(t, "run-1", rows[1][0])
	assert.Equal(t, "12", rows[1][2])
	assert.Equal(t, "1", rows[1][3])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "provider returned 500", rows[2][6])
}

func TestWriteReportHistoryEmpty(t *testing.T) {
	dir := t.TempDir()
	sync := &models.Sync{ID: 1, ForModel: models.KindCustomers}

	path, err := WriteReportHistory(dir, sync)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
