package snapshot

import (
	"github.com/sells-group/addrdiff/internal/model"
)

// AddressColumns is the expected header of an address snapshot export.
var AddressColumns = []string{
	"address_id", "customer_id", "address_line1", "city",
	"state_province", "postal_code", "country", "start_date", "end_date",
}

// AddressTable holds one snapshot's address records keyed by address_id.
type AddressTable = map[int64]model.AddressRecord

// LoadAddresses reads a full address snapshot into a keyed table.
func LoadAddresses(path string, progress func(rows int)) (AddressTable, error) {
	return Load(path, AddressColumns, addressRow, progress)
}

func addressRow(fields []Field) (int64, model.AddressRecord, error) {
	var rec model.AddressRecord
	var err error

	if rec.AddressID, err = fieldInt64(fields[0], "address_id"); err != nil {
		return 0, rec, err
	}
	if rec.CustomerID, err = fieldInt64(fields[1], "customer_id"); err != nil {
		return 0, rec, err
	}
	if rec.AddressLine1, err = fieldString(fields[2], "address_line1"); err != nil {
		return 0, rec, err
	}
	if rec.City, err = fieldString(fields[3], "city"); err != nil {
		return 0, rec, err
	}
	if rec.StateProvince, err = fieldString(fields[4], "state_province"); err != nil {
		return 0, rec, err
	}
	if rec.PostalCode, err = fieldString(fields[5], "postal_code"); err != nil {
		return 0, rec, err
	}
	if rec.Country, err = fieldString(fields[6], "country"); err != nil {
		return 0, rec, err
	}
	if rec.StartDate, err = fieldString(fields[7], "start_date"); err != nil {
		return 0, rec, err
	}
	if fields[8].Valid {
		v := fields[8].Value
		rec.EndDate = &v
	}
	return rec.AddressID, rec, nil
}
