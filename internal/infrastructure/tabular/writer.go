package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

const defaultSheetName = "Analysis"

// Format joins cells with commas and rows with newlines. No quoting is
// applied, so cells containing a comma, quote or line break do not survive a
// round trip through Parse.
func Format(data domain.TabularData) string {
	lines := make([]string, 0, len(data))
	for _, row := range data {
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes Format(data) to w.
func WriteCSV(w io.Writer, data domain.TabularData) error {
	if _, err := io.WriteString(w, Format(data)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX renders data as a single-sheet workbook. The header row, when
// present, is bold.
func WriteXLSX(w io.Writer, data domain.TabularData) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", defaultSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(defaultSheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(data) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		if err := f.SetRowStyle(defaultSheetName, 1, 1, style); err != nil {
			return fmt.Errorf("style header row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
