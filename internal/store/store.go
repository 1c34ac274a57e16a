// Package store persists address and customer snapshots in a relational
// database and produces the change log via SQL, as a query-backed
// alternative to the file-based pipeline.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/resolve"
)

// Store is the persistence interface behind the database-backed report.
type Store interface {
	// ImportAddresses loads one dated address snapshot. Re-importing a date
	// replaces its rows.
	ImportAddresses(ctx context.Context, date time.Time, records []model.AddressRecord) (int64, error)

	// ImportCustomers loads one dated customer snapshot's display names.
	ImportCustomers(ctx context.Context, date time.Time, customers *model.CustomerIndex) (int64, error)

	// CustomerDateAsOf returns the greatest imported customer snapshot date
	// at or before target.
	CustomerDateAsOf(ctx context.Context, target time.Time) (time.Time, error)

	// Report computes NEW/UPDATED/DELETED rows between the previous and
	// current imported snapshots, enriched from the customerDate snapshot,
	// ordered by address_id. An orphan customer_id fails the whole report.
	Report(ctx context.Context, date, previous, customerDate time.Time) ([]model.AddressChange, error)

	Migrate(ctx context.Context) error
	Close() error
}

// stamp formats a snapshot date the way it is stored, matching file names.
func stamp(t time.Time) string {
	return t.Format(resolve.DateLayout)
}

// addressRows flattens records into insert rows ordered by address_id, so
// imports touch the tables deterministically.
func addressRows(date time.Time, records []model.AddressRecord) [][]any {
	sorted := make([]model.AddressRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AddressID < sorted[j].AddressID })

	rows := make([][]any, len(sorted))
	for i, r := range sorted {
		var end any
		if r.EndDate != nil {
			end = *r.EndDate
		}
		rows[i] = []any{
			stamp(date), r.AddressID, r.CustomerID, r.AddressLine1, r.City,
			r.StateProvince, r.PostalCode, r.Country, r.StartDate, end,
		}
	}
	return rows
}

// customerRows flattens an index into insert rows ordered by customer_id.
func customerRows(date time.Time, customers *model.CustomerIndex) [][]any {
	ids := make([]int64, 0, customers.Len())
	customers.Each(func(id int64, _ string) {
		ids = append(ids, id)
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]any, len(ids))
	for i, id := range ids {
		name, _ := customers.Lookup(id)
		rows[i] = []any{stamp(date), id, name}
	}
	return rows
}
