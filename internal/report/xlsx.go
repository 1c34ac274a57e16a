// Package report formats database-backed change reports for review.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/addrdiff/internal/emit"
	"github.com/sells-group/addrdiff/internal/model"
)

// WriteXLSX exports a change list as a spreadsheet with the same column
// order as the CSV change log. This is a convenience view only; the CSV
// format remains the contractual output.
func WriteXLSX(path string, changes []model.AddressChange) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("changes")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range emit.Columns {
		header.AddCell().Value = col
	}

	for i := range changes {
		c := &changes[i]
		r := &c.Record
		row := sheet.AddRow()
		row.AddCell().Value = string(c.Type)
		row.AddCell().SetInt64(r.AddressID)
		row.AddCell().SetInt64(r.CustomerID)
		row.AddCell().Value = c.CustomerName
		row.AddCell().Value = r.AddressLine1
		row.AddCell().Value = r.City
		row.AddCell().Value = r.StateProvince
		row.AddCell().Value = r.PostalCode
		row.AddCell().Value = r.Country
		row.AddCell().Value = r.StartDate
		if r.EndDate != nil {
			row.AddCell().Value = *r.EndDate
		} else {
			row.AddCell()
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
