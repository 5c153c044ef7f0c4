// Package export writes a sync's report history to an Excel workbook for
// offline review.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgersync/internal/models"
	"ledgersync/internal/report"

	"github.com/xuri/excelize/v2"
)

// WriteReportHistory creates an .xlsx file with one row per run and returns
// its path.
func WriteReportHistory(dir string, sync *models.Sync) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reports"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}

	headers := []string{"Run ID", "Started At", "Saved", "Hard Skips", "Missing Customers", "Missing Invoices", "Exception"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, style)

	for i, rep := range sync.History {
		row := i + 2
		values := []any{
			rep.RunID,
			rep.StartedAt.Format(time.RFC3339),
			rep.Count,
			len(rep.Skips),
			rep.AllowableSkips[report.CounterMissingCustomer],
			rep.AllowableSkips[report.CounterMissingInvoice],
			rep.ExceptionMsg,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	name := fmt.Sprintf("sync_%d_%s_%s.xlsx",
		sync.ID,
		strings.ReplaceAll(sync.ForModel, "/", "_"),
		time.Now().Format("20060102_150405"),
	)
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return path, nil
}
