// Package emit serializes change lists to the footer-terminated CSV format.
package emit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrdiff/internal/model"
)

// Columns is the fixed change-log header, in output order.
var Columns = []string{
	"change_type", "address_id", "customer_id", "customer_name",
	"address_line1", "city", "state_province", "postal_code",
	"country", "start_date", "end_date",
}

// Write serializes changes to path: header, one line per change, a blank
// line, then an "Expected records: N" footer. An empty change list is a
// valid output, not an error.
//
// Quoting is fixed per column, never data-dependent: customer_name,
// address_line1, city, state_province, and postal_code are always quoted
// (internal quotes doubled); the remaining columns are never quoted. An
// absent end_date renders as a fully empty field. No byte-order mark.
//
// The file is written to a sibling temp path and renamed into place, so no
// partial file is ever visible at path. On failure the temp file is removed
// best-effort and the original error is returned.
func Write(path string, changes []model.AddressChange) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "emit: create temp for %s", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 256*1024)
	if _, err = w.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return eris.Wrapf(err, "emit: write header to %s", path)
	}
	for i := range changes {
		if err = writeChange(w, &changes[i]); err != nil {
			return eris.Wrapf(err, "emit: write row to %s", path)
		}
	}
	if _, err = fmt.Fprintf(w, "\nExpected records: %d\n", len(changes)); err != nil {
		return eris.Wrapf(err, "emit: write footer to %s", path)
	}
	if err = w.Flush(); err != nil {
		return eris.Wrapf(err, "emit: flush %s", path)
	}
	if err = tmp.Close(); err != nil {
		return eris.Wrapf(err, "emit: close temp for %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "emit: rename into %s", path)
	}
	return nil
}

func writeChange(w *bufio.Writer, c *model.AddressChange) error {
	r := &c.Record
	end := ""
	if r.EndDate != nil {
		end = *r.EndDate
	}
	_, err := fmt.Fprintf(w, "%s,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s\n",
		c.Type, r.AddressID, r.CustomerID,
		quote(c.CustomerName), quote(r.AddressLine1), quote(r.City),
		quote(r.StateProvince), quote(r.PostalCode),
		r.Country, r.StartDate, end,
	)
	return err
}

// quote wraps v in double quotes, doubling any internal quote.
func quote(v string) string {
	if strings.Contains(v, `"`) {
		v = strings.ReplaceAll(v, `"`, `""`)
	}
	return `"` + v + `"`
}
