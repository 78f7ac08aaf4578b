package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
)

const snippetLen = 800

var (
	carrierModelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Model\s*#?\s*:?\s*([A-Z0-9]{8,})`),
		regexp.MustCompile(`(?i)Model Number\s*:?\s*([A-Z0-9]{8,})`),
	}
	carrierSerialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Serial\s*#?\s*:?\s*([A-Z0-9]{8,})`),
		regexp.MustCompile(`(?i)Serial Number\s*:?\s*([A-Z0-9]{8,})`),
	}

	// "Coil help_outline\t10 years\t08/07/2035"
	carrierComponentPattern = regexp.MustCompile(`(?i)(Coil|Coil TIN|Compressor|Enhanced Parts Warranty|Parts|Labor|Heat Exchanger|Functional Parts)\s*(?:help_outline)?\s+(\d+)\s*years?\s+(\d{1,2}/\d{1,2}/\d{4})`)

	// Thousands of BTU between two letters, e.g. the 48 in N5A5S48AKAWA.
	btuPattern = regexp.MustCompile(`[A-Z](\d{2,3})[A-Z]`)
)

// Carrier family brands in match order.
var carrierBrands = []struct{ keyword, name string }{
	{"comfortmaker", "Comfortmaker"},
	{"carrier", "Carrier"},
	{"bryant", "Bryant"},
	{"payne", "Payne"},
	{"heil", "Heil"},
	{"tempstar", "Tempstar"},
	{"day & night", "Day & Night"},
	{"arcoaire", "Arcoaire"},
	{"keeprite", "Keeprite"},
}

// ParseCarrier parses the visible text of the Carrier warranty results page.
func ParseCarrier(text string, now time.Time) *models.WarrantyData {
	lower := strings.ToLower(text)
	data := &models.WarrantyData{
		ModelNumber:  firstMatch(carrierModelPatterns, text),
		SerialNumber: firstMatch(carrierSerialPatterns, text),
		Manufacturer: "Carrier",
		Components:   []models.Component{},
	}

	data.Brand = carrierBrand(lower, data.ModelNumber)

	for _, m := range carrierComponentPattern.FindAllStringSubmatch(text, -1) {
		years, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		data.Components = append(data.Components, models.Component{
			Name:      strings.TrimSpace(m[1]),
			TermYears: years,
			EndDate:   normalizeDate(m[3]),
		})
	}

	applyPrimary(data, now)

	if data.WarrantyStatus == "" {
		switch {
		case strings.Contains(lower, "active"), strings.Contains(lower, "valid"):
			data.WarrantyStatus = "Active"
		case strings.Contains(lower, "expired"):
			data.WarrantyStatus = "Expired"
		}
	}

	if tons, ok := Tonnage(data.ModelNumber); ok {
		data.Tonnage = &tons
		data.Capacity = strconv.FormatFloat(tons, 'f', -1, 64) + " tons"
	}

	data.RawTextSnippet = snippet(text)
	return data
}

func carrierBrand(lower, model string) string {
	for _, b := range carrierBrands {
		if strings.Contains(lower, b.keyword) {
			return b.name
		}
	}
	model = strings.ToUpper(model)
	switch {
	case strings.HasPrefix(model, "24"):
		return "Carrier"
	case strings.HasPrefix(model, "N5"):
		return "Comfortmaker"
	}
	return ""
}

// Tonnage derives nominal cooling tonnage from the first BTU group of a
// model number. Values outside 12..72 thousand BTU are rejected.
func Tonnage(model string) (float64, bool) {
	m := btuPattern.FindStringSubmatch(strings.ToUpper(model))
	if m == nil {
		return 0, false
	}
	btu, err := strconv.Atoi(m[1])
	if err != nil || btu < 12 || btu > 72 {
		return 0, false
	}
	return float64(btu) / 12, true
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) > snippetLen {
		r = r[:snippetLen]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(r), "\n", " "))
}
