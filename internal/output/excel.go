// internal/output/excel.go
package output

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// ExcelWriter writes records to one worksheet of an xlsx file, with a
// bold header row and frozen top pane.
type ExcelWriter struct {
	filename string
	sheet    string
	book     *excelize.File
}

// NewExcelWriter creates an Excel writer over the given file path.
func NewExcelWriter(config Config) (*ExcelWriter, error) {
	if config.File == "" {
		return nil, fmt.Errorf("excel output requires a file path")
	}
	sheet := config.SheetName
	if sheet == "" {
		sheet = "Records"
	}
	return &ExcelWriter{filename: config.File, sheet: sheet, book: excelize.NewFile()}, nil
}

// Write renders the header and one row per record, then saves the file.
func (w *ExcelWriter) Write(ctx context.Context, records []extract.Record) error {
	index, err := w.book.NewSheet(w.sheet)
	if err != nil {
		return err
	}
	w.book.SetActiveSheet(index)
	if w.sheet != "Sheet1" {
		w.book.DeleteSheet("Sheet1")
	}

	columns := columnsOf(records)
	headerStyle, err := w.book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.book.SetCellValue(w.sheet, cell, col); err != nil {
			return err
		}
		w.book.SetCellStyle(w.sheet, cell, cell, headerStyle)
	}

	for r, rec := range records {
		flat := flatten(rec)
		for i, col := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := w.book.SetCellValue(w.sheet, cell, cellString(flat[col])); err != nil {
				return err
			}
		}
	}

	if err := w.book.SetPanes(w.sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	return w.book.SaveAs(w.filename)
}

// Close releases the workbook resources.
func (w *ExcelWriter) Close() error {
	if w.book == nil {
		return nil
	}
	err := w.book.Close()
	w.book = nil
	return err
}
