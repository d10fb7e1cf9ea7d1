package models

import "github.com/golangci/golangci-billing/pkg/billing/processor"

type Address struct {
	ID        string         `json:"id"`
	Processor processor.Link `json:"processor"`

	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	Company           string `json:"company,omitempty"`
	StreetAddress     string `json:"streetAddress,omitempty"`
	ExtendedAddress   string `json:"extendedAddress,omitempty"`
	Locality          string `json:"locality,omitempty"`
	Region            string `json:"region,omitempty"`
	PostalCode        string `json:"postalCode,omitempty"`
	CountryCodeAlpha2 string `json:"countryCodeAlpha2,omitempty"`
}

func (a *Address) Clone() *Address {
	c := *a
	return &c
}
