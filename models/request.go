package models

import "strings"

// LookupRequest is the payload for POST /api/v1/lookup.
type LookupRequest struct {
	// SerialNumber is the equipment serial number from the data plate. Required.
	SerialNumber string `json:"serial_number" binding:"required,max=64"`

	// Manufacturer is the brand as read from the data plate, e.g. "Trane"
	// or "Carrier". Matching is case-insensitive and substring based.
	Manufacturer string `json:"manufacturer" binding:"required,max=128"`

	// MaxAge allows a cached record younger than MaxAge milliseconds to be
	// returned instead of driving the browser again. 0 disables the cache.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Normalize trims whitespace from the serial and manufacturer.
func (r *LookupRequest) Normalize() {
	r.SerialNumber = strings.TrimSpace(r.SerialNumber)
	r.Manufacturer = strings.TrimSpace(r.Manufacturer)
}

// ManufacturerKey is the lower-cased manufacturer used for adapter matching.
func (r LookupRequest) ManufacturerKey() string {
	return strings.ToLower(strings.TrimSpace(r.Manufacturer))
}
