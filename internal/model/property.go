package model

import "strings"

// Address is a property address as returned by the platform.
type Address struct {
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// IsZero reports whether the address carries no street to look up.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street1) == ""
}

// AddressLines is the two-line address format used by the lookup API.
type AddressLines struct {
	Line1 string
	Line2 string
}

// Lines formats the address for the lookup API. Line one is the upper-cased
// street; line two joins city, province and postal code with ", ", skipping
// blank parts.
func (a Address) Lines() AddressLines {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.City, a.Province, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return AddressLines{
		Line1: strings.ToUpper(strings.TrimSpace(a.Street1)),
		Line2: strings.ToUpper(strings.Join(parts, ", ")),
	}
}

// PropertyDetails is the platform property targeted by a webhook.
type PropertyDetails struct {
	Address *Address `json:"address,omitempty"`
	ID      string   `json:"id"`
}

// LookupResult records the outcome of a property-data lookup.
// Property nil and Error empty means the API had no data for the address.
type LookupResult struct {
	Property *PropertyAttributes `json:"property,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Failed reports whether the lookup carries an error indicator.
func (r *LookupResult) Failed() bool {
	return r != nil && r.Error != ""
}

// Found reports whether the lookup returned property attributes.
func (r *LookupResult) Found() bool {
	return r != nil && r.Error == "" && r.Property != nil
}
