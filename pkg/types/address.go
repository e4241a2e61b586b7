package types

import "strings"

// ShippingAddress is the contact/shipping snapshot captured at checkout and
// frozen onto the order. Country is the minimum needed for tax calculation.
type ShippingAddress struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address fields were provided.
func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

// HasCountry reports whether the address can drive a tax calculation.
func (a ShippingAddress) HasCountry() bool {
	return strings.TrimSpace(a.Country) != ""
}
