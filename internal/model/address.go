// Package model defines the record shapes shared by the snapshot comparison pipeline.
package model

// ChangeType classifies a row in the change log.
type ChangeType string

const (
	ChangeNew     ChangeType = "NEW"
	ChangeUpdated ChangeType = "UPDATED"
	ChangeDeleted ChangeType = "DELETED"
)

// AddressRecord is one row of an address snapshot, keyed by AddressID.
// StartDate and EndDate are opaque strings; no date arithmetic is done on them.
type AddressRecord struct {
	AddressID     int64
	CustomerID    int64
	AddressLine1  string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
	StartDate     string
	EndDate       *string // nil when the source field was NULL
}

// Equal reports whether every attribute of the two records matches.
// A nil EndDate equals only another nil EndDate; nil and empty string differ.
func (r AddressRecord) Equal(o AddressRecord) bool {
	if r.AddressID != o.AddressID ||
		r.CustomerID != o.CustomerID ||
		r.AddressLine1 != o.AddressLine1 ||
		r.City != o.City ||
		r.StateProvince != o.StateProvince ||
		r.PostalCode != o.PostalCode ||
		r.Country != o.Country ||
		r.StartDate != o.StartDate {
		return false
	}
	if r.EndDate == nil || o.EndDate == nil {
		return r.EndDate == nil && o.EndDate == nil
	}
	return *r.EndDate == *o.EndDate
}

// AddressChange is one output row: a classified record plus its resolved
// customer display name.
type AddressChange struct {
	Type         ChangeType
	CustomerName string
	Record       AddressRecord
}
