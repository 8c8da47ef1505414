package export

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/jgoulah/billscraper/pkg/models"
)

// Preview renders the flattened table to w
func Preview(w io.Writer, records []models.MunicipalRecord) {
	header, rows := Rows(records)

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.AppendBulk(rows)
	table.Render()
}
