package export

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/billscraper/pkg/models"
)

const sheetName = "Electricity"

// Columns holding text rather than numbers
var textColumns = map[int]bool{0: true, 1: true, 2: true}

// BuildWorkbook lays the flattened table out on a single sheet. Finite
// numeric cells are stored as numbers, absent values are left blank.
func BuildWorkbook(records []models.MunicipalRecord) (*excelize.File, error) {
	header, rows := Rows(records)

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			f.Close()
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}

	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)

			var value any = v
			if !textColumns[c] {
				// Infinite values stay text, excelize has no cell form for them
				if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
					value = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	last, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(sheetName, "A", "A", 32) // filename
	_ = f.SetColWidth(sheetName, "B", "C", 12) // dates
	_ = f.SetColWidth(sheetName, "D", last, 14)

	return f, nil
}

func writeXLSXFile(path string, records []models.MunicipalRecord) error {
	wb, err := BuildWorkbook(records)
	if err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	defer wb.Close()

	return replaceFile(path, func(f *os.File) error {
		if err := wb.Write(f); err != nil {
			return fmt.Errorf("xlsx write: %w", err)
		}
		return nil
	})
}
