package snapshot

import (
	"github.com/sells-group/addrdiff/internal/model"
)

// CustomerColumns is the expected header of a customer snapshot export.
// Only id, first_name, and last_name are consumed; the remaining columns are
// read for structural validation and discarded.
var CustomerColumns = []string{
	"id", "prefix", "first_name", "last_name", "sort_name", "suffix", "birthdate",
}

// LoadCustomers reads a customer snapshot and returns an index of
// precomputed display names ("first last", single space, Unicode untouched).
func LoadCustomers(path string, progress func(rows int)) (*model.CustomerIndex, error) {
	names, err := Load(path, CustomerColumns, customerRow, progress)
	if err != nil {
		return nil, err
	}
	return model.NewCustomerIndex(names), nil
}

func customerRow(fields []Field) (int64, string, error) {
	id, err := fieldInt64(fields[0], "id")
	if err != nil {
		return 0, "", err
	}
	first, err := fieldString(fields[2], "first_name")
	if err != nil {
		return 0, "", err
	}
	last, err := fieldString(fields[3], "last_name")
	if err != nil {
		return 0, "", err
	}
	return id, first + " " + last, nil
}
