package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
)

var (
	// "Model#", "Model Number:" and "Model:" label the same field; the
	// first pattern that matches wins.
	asModelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Model#\s*([A-Z0-9]+)`),
		regexp.MustCompile(`Model Number\s*:?\s*([A-Z0-9]+)`),
		regexp.MustCompile(`Model\s*:?\s*([A-Z0-9]{5,})`),
	}
	asSerialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Serial#\s*([A-Z0-9]+)`),
		regexp.MustCompile(`Serial Number\s*:?\s*([A-Z0-9]+)`),
		regexp.MustCompile(`Serial\s*:?\s*([A-Z0-9]{5,})`),
	}

	// "Compressor : Term End Date is 10/15/2030 (10 Years)". The name may
	// contain spaces but never crosses a line.
	asComponentPattern = regexp.MustCompile(`([A-Za-z][A-Za-z ]*?)[ \t]*:\s*Term End Date is\s*(\d{2}/\d{2}/\d{4})\s*\((\d+)\s*Years?\)`)
)

// ParseAmericanStandard parses the visible text of an American Standard or
// Trane warranty certificate.
func ParseAmericanStandard(text string, now time.Time) *models.WarrantyData {
	data := &models.WarrantyData{
		ModelNumber:  firstMatch(asModelPatterns, text),
		SerialNumber: firstMatch(asSerialPatterns, text),
		Components:   []models.Component{},
	}

	switch {
	case strings.Contains(text, "Residential Base"):
		data.RegistrationType = "Residential Base"
	case strings.Contains(text, "Residential Extended"):
		data.RegistrationType = "Residential Extended"
	}

	for _, m := range asComponentPattern.FindAllStringSubmatch(text, -1) {
		years, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		data.Components = append(data.Components, models.Component{
			Name:      strings.TrimSpace(m[1]),
			TermYears: years,
			EndDate:   m[2],
		})
	}

	applyPrimary(data, now)
	return data
}

// applyPrimary fills the install, start, end, age and status fields from the
// longest-term component.
func applyPrimary(data *models.WarrantyData, now time.Time) {
	primary, ok := models.PrimaryComponent(data.Components)
	if !ok {
		return
	}
	data.WarrantyEnd = primary.EndDate
	if status, ok := statusAt(primary.EndDate, now); ok {
		data.WarrantyStatus = status
	}
	install, ok := installDate(primary.EndDate, primary.TermYears)
	if !ok {
		return
	}
	data.InstallDate = install.Format(DateLayout)
	data.WarrantyStart = data.InstallDate
	age := ageYears(install, now)
	data.AgeYears = &age
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
