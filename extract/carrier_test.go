package extract

import (
	"strings"
	"testing"

	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carrierResults = "Warranty Lookup Results\n" +
	"Model Number: N5A5S48AKAWA\n" +
	"Serial Number: 1234E56789\n" +
	"Brand: Comfortmaker\n" +
	"Coverage\tTerm\tEnd Date\n" +
	"Coil help_outline\t10 years\t8/7/2035\n" +
	"Compressor help_outline\t10 years\t08/07/2035\n" +
	"Parts help_outline\t10 years\t08/07/2035\n" +
	"Labor\t1 year\t08/07/2026\n"

func TestParseCarrier_Results(t *testing.T) {
	data := ParseCarrier(carrierResults, fixedNow)

	assert.Equal(t, "N5A5S48AKAWA", data.ModelNumber)
	assert.Equal(t, "1234E56789", data.SerialNumber)
	assert.Equal(t, "Comfortmaker", data.Brand)
	assert.Equal(t, "Carrier", data.Manufacturer)

	require.Len(t, data.Components, 4)
	assert.Equal(t, "Coil", data.Components[0].Name)
	assert.Equal(t, "08/07/2035", data.Components[0].EndDate)
	assert.Equal(t, "Labor", data.Components[3].Name)
	assert.Equal(t, 1, data.Components[3].TermYears)

	assert.Equal(t, "08/07/2025", data.InstallDate)
	assert.Equal(t, data.InstallDate, data.WarrantyStart)
	assert.Equal(t, "08/07/2035", data.WarrantyEnd)
	assert.Equal(t, "Active", data.WarrantyStatus)

	require.NotNil(t, data.Tonnage)
	assert.Equal(t, 4.0, *data.Tonnage)
	assert.Equal(t, "4 tons", data.Capacity)

	require.NotNil(t, data.AgeYears)
	assert.InDelta(t, 0.6, *data.AgeYears, 0.05)
}

func TestParseCarrier_PrimaryIsLongestTermNotLatestDate(t *testing.T) {
	text := "Parts 5 years 01/01/2031\nCompressor 10 years 01/01/2030\n"

	data := ParseCarrier(text, fixedNow)

	require.Len(t, data.Components, 2)
	assert.Equal(t, "01/01/2030", data.WarrantyEnd)
	assert.Equal(t, "01/01/2020", data.InstallDate)
}

func TestParseCarrier_RepeatedComponentsKeepOrder(t *testing.T) {
	text := "Coil help_outline\t10 years\t08/07/2035\n" +
		"Compressor\t10 years\t08/07/2035\n" +
		"Coil help_outline\t5 years\t8/7/2030\n"

	data := ParseCarrier(text, fixedNow)

	assert.Equal(t, []models.Component{
		{Name: "Coil", TermYears: 10, EndDate: "08/07/2035"},
		{Name: "Compressor", TermYears: 10, EndDate: "08/07/2035"},
		{Name: "Coil", TermYears: 5, EndDate: "08/07/2030"},
	}, data.Components)
}

func TestParseCarrier_BrandFallbackFromModel(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Model: 24ACC636A003", "Carrier"},
		{"Model: N4A5S48AKAWA", ""},
		{"Model: N5H4X36AKAWA", "Comfortmaker"},
		{"Model: 24ACC636A003 installed by Bryant dealer", "Bryant"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			// "carrier" is not in the text so only the model prefix decides.
			assert.Equal(t, tt.want, ParseCarrier(tt.text, fixedNow).Brand)
		})
	}
}

func TestParseCarrier_StatusKeywordFallback(t *testing.T) {
	assert.Equal(t, "Active", ParseCarrier("Your coverage is valid", fixedNow).WarrantyStatus)
	assert.Equal(t, "Expired", ParseCarrier("Coverage expired", fixedNow).WarrantyStatus)
	assert.Empty(t, ParseCarrier("Nothing to see", fixedNow).WarrantyStatus)
}

func TestParseCarrier_Snippet(t *testing.T) {
	text := strings.Repeat("line\n", 300)

	data := ParseCarrier(text, fixedNow)

	assert.NotContains(t, data.RawTextSnippet, "\n")
	assert.LessOrEqual(t, len(data.RawTextSnippet), 800)
}

func TestTonnage(t *testing.T) {
	tests := []struct {
		model string
		want  float64
		ok    bool
	}{
		{"N5A5S48AKAWA", 4, true},
		{"24ACC636A003", 0, false},
		{"GA5SAN43000", 0, false},
		{"XX0A99B", 0, false},
		{"AB30C", 2.5, true},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := Tonnage(tt.model)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
