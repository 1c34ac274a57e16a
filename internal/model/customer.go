package model

// CustomerIndex maps customer IDs to precomputed display names. The display
// name is built once at load time so 10M-row enrichment passes don't
// re-concatenate per lookup. The index is immutable after construction.
type CustomerIndex struct {
	names map[int64]string
}

// NewCustomerIndex wraps a customer_id to display-name map. The index takes
// ownership of the map; callers must not modify it afterwards.
func NewCustomerIndex(names map[int64]string) *CustomerIndex {
	return &CustomerIndex{names: names}
}

// Lookup returns the display name for a customer ID.
func (ci *CustomerIndex) Lookup(id int64) (string, bool) {
	name, ok := ci.names[id]
	return name, ok
}

// Len returns the number of customers in the index.
func (ci *CustomerIndex) Len() int {
	return len(ci.names)
}

// Each calls fn for every customer in unspecified order.
func (ci *CustomerIndex) Each(fn func(id int64, name string)) {
	for id, name := range ci.names {
		fn(id, name)
	}
}
