// Package extract turns the visible text of manufacturer warranty pages into
// normalized warranty data. Parsers are pure functions of text and clock.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
)

// Parser names match the adapter names that produce the text.
const (
	AmericanStandard = "american_standard"
	Carrier          = "carrier"
)

// Parse dispatches to the parser registered under name. It accepts an
// adapter name or a manufacturer such as "Trane".
func Parse(name, text string, now time.Time) (*models.WarrantyData, error) {
	switch key := strings.ToLower(strings.TrimSpace(name)); {
	case key == AmericanStandard, strings.Contains(key, "american standard"), strings.Contains(key, "trane"):
		return ParseAmericanStandard(text, now), nil
	case key == Carrier, strings.Contains(key, "carrier"):
		return ParseCarrier(text, now), nil
	default:
		return nil, fmt.Errorf("no parser for %q", name)
	}
}

// HasWarrantyMarkers reports whether inline American Standard results look
// like a certificate rather than a form or an error.
func HasWarrantyMarkers(text string) bool {
	return strings.Contains(text, "Term End Date") || strings.Contains(text, "Warranty")
}

// CarrierOutcome classifies the Carrier results page before parsing.
type CarrierOutcome int

const (
	CarrierFound CarrierOutcome = iota
	CarrierNotFound
	CarrierSiteError
)

// ClassifyCarrier checks the Carrier page text for its not-found and
// try-again messages.
func ClassifyCarrier(text string) CarrierOutcome {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no warranty"):
		return CarrierNotFound
	case strings.Contains(lower, "error") && strings.Contains(lower, "please try again"):
		return CarrierSiteError
	}
	return CarrierFound
}
