package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func baseRecord() AddressRecord {
	return AddressRecord{
		AddressID:     1,
		CustomerID:    100,
		AddressLine1:  "1 Main St",
		City:          "Springfield",
		StateProvince: "IL",
		PostalCode:    "62704",
		Country:       "US",
		StartDate:     "2020-01-01",
	}
}

func TestAddressRecordEqual_Identical(t *testing.T) {
	a := baseRecord()
	b := baseRecord()
	assert.True(t, a.Equal(b))
}

func TestAddressRecordEqual_FieldDiffers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AddressRecord)
	}{
		{"customer_id", func(r *AddressRecord) { r.CustomerID = 101 }},
		{"address_line1", func(r *AddressRecord) { r.AddressLine1 = "2 Main St" }},
		{"city", func(r *AddressRecord) { r.City = "Chicago" }},
		{"state_province", func(r *AddressRecord) { r.StateProvince = "WI" }},
		{"postal_code", func(r *AddressRecord) { r.PostalCode = "60601" }},
		{"country", func(r *AddressRecord) { r.Country = "CA" }},
		{"start_date", func(r *AddressRecord) { r.StartDate = "2021-01-01" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseRecord()
			b := baseRecord()
			tt.mutate(&b)
			assert.False(t, a.Equal(b))
		})
	}
}

func TestAddressRecordEqual_EndDate(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *string
		equal bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs empty string", nil, strptr(""), false},
		{"nil vs value", nil, strptr("2020-06-01"), false},
		{"same value", strptr("2020-06-01"), strptr("2020-06-01"), true},
		{"different values", strptr("2020-06-01"), strptr("2020-07-01"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := baseRecord()
			b := baseRecord()
			a.EndDate = tt.a
			b.EndDate = tt.b
			assert.Equal(t, tt.equal, a.Equal(b))
			assert.Equal(t, tt.equal, b.Equal(a))
		})
	}
}

func TestCustomerIndex(t *testing.T) {
	idx := NewCustomerIndex(map[int64]string{
		100: "Jane Doe",
		200: "John Smith",
	})

	name, ok := idx.Lookup(100)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", name)

	_, ok = idx.Lookup(999)
	assert.False(t, ok)

	assert.Equal(t, 2, idx.Len())

	seen := map[int64]string{}
	idx.Each(func(id int64, name string) { seen[id] = name })
	assert.Equal(t, map[int64]string{100: "Jane Doe", 200: "John Smith"}, seen)
}
