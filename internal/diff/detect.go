// Package diff computes the classified change set between two address snapshots.
package diff

import (
	"fmt"
	"sort"

	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/snapshot"
)

// ReferentialError reports an address whose customer_id has no entry in the
// resolved customer snapshot. Orphan references abort the whole detection;
// a change log with silently missing names is worse than no output.
type ReferentialError struct {
	AddressID  int64
	CustomerID int64
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("address %d references unknown customer %d", e.AddressID, e.CustomerID)
}

// Detect compares two address snapshots and returns the enriched change
// list, sorted ascending by address_id.
//
// A key only in current is NEW; a key in both whose records differ is
// UPDATED (built from the current record); a key only in previous is DELETED
// (built from the previous record). Both input tables are read-only here and
// the output is deterministic for a given input triple.
func Detect(previous, current snapshot.AddressTable, customers *model.CustomerIndex) ([]model.AddressChange, error) {
	changes := make([]model.AddressChange, 0, 64)

	for id, cur := range current {
		prev, ok := previous[id]
		switch {
		case !ok:
			changes = append(changes, model.AddressChange{Type: model.ChangeNew, Record: cur})
		case !prev.Equal(cur):
			changes = append(changes, model.AddressChange{Type: model.ChangeUpdated, Record: cur})
		}
	}
	for id, prev := range previous {
		if _, ok := current[id]; !ok {
			changes = append(changes, model.AddressChange{Type: model.ChangeDeleted, Record: prev})
		}
	}

	// Sort before enrichment so the first orphan reported is stable across runs.
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Record.AddressID < changes[j].Record.AddressID
	})

	for i := range changes {
		name, ok := customers.Lookup(changes[i].Record.CustomerID)
		if !ok {
			return nil, &ReferentialError{
				AddressID:  changes[i].Record.AddressID,
				CustomerID: changes[i].Record.CustomerID,
			}
		}
		changes[i].CustomerName = name
	}

	return changes, nil
}
