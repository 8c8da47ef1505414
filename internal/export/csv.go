package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jgoulah/billscraper/pkg/models"
)

// WriteCSV writes the flattened header and rows to w
func WriteCSV(w io.Writer, records []models.MunicipalRecord) error {
	header, rows := Rows(records)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

func writeCSVFile(path string, records []models.MunicipalRecord) error {
	return replaceFile(path, func(f *os.File) error {
		return WriteCSV(f, records)
	})
}
