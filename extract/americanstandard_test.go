package extract

import (
	"testing"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

const traneCertificate = `Warranty Certificate
Model# 4TTR4036L1000A
Serial# 5434REB2F
Residential Base Limited Warranty
Compressor : Term End Date is 10/15/2030 (10 Years)
Outdoor Coil : Term End Date is 10/15/2030 (10 Years)
Parts : Term End Date is 10/15/2025 (5 Years)
Print my warranty`

func TestParseAmericanStandard_Certificate(t *testing.T) {
	data := ParseAmericanStandard(traneCertificate, fixedNow)

	assert.Equal(t, "4TTR4036L1000A", data.ModelNumber)
	assert.Equal(t, "5434REB2F", data.SerialNumber)
	assert.Equal(t, "Residential Base", data.RegistrationType)

	require.Len(t, data.Components, 3)
	assert.Equal(t, "Compressor", data.Components[0].Name)
	assert.Equal(t, 10, data.Components[0].TermYears)
	assert.Equal(t, "10/15/2030", data.Components[0].EndDate)
	assert.Equal(t, "Outdoor Coil", data.Components[1].Name)
	assert.Equal(t, "Parts", data.Components[2].Name)
	assert.Equal(t, 5, data.Components[2].TermYears)

	assert.Equal(t, "10/15/2020", data.InstallDate)
	assert.Equal(t, "10/15/2020", data.WarrantyStart)
	assert.Equal(t, "10/15/2030", data.WarrantyEnd)
	assert.Equal(t, "Active", data.WarrantyStatus)
	require.NotNil(t, data.AgeYears)
	assert.InDelta(t, 5.4, *data.AgeYears, 0.05)
}

func TestParseAmericanStandard_InstallFromLongestTerm(t *testing.T) {
	text := `Parts : Term End Date is 06/01/2024 (5 Years)
Compressor : Term End Date is 06/01/2029 (10 Years)`

	data := ParseAmericanStandard(text, fixedNow)

	require.Len(t, data.Components, 2)
	assert.Equal(t, "06/01/2019", data.InstallDate)
	assert.Equal(t, "06/01/2029", data.WarrantyEnd)
}

func TestParseAmericanStandard_RepeatedComponentsKeepOrder(t *testing.T) {
	text := `Coil : Term End Date is 10/15/2030 (10 Years)
Compressor : Term End Date is 10/15/2030 (10 Years)
Coil : Term End Date is 10/15/2025 (5 Years)`

	data := ParseAmericanStandard(text, fixedNow)

	assert.Equal(t, []models.Component{
		{Name: "Coil", TermYears: 10, EndDate: "10/15/2030"},
		{Name: "Compressor", TermYears: 10, EndDate: "10/15/2030"},
		{Name: "Coil", TermYears: 5, EndDate: "10/15/2025"},
	}, data.Components)
}

func TestParseAmericanStandard_ModelLabels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"hash", "Model# 4TTR4036L1000A", "4TTR4036L1000A"},
		{"hash with space", "Model # missing\nModel Number: 4TTR4036L1000A", "4TTR4036L1000A"},
		{"number label", "Model Number: 4TWR5030H1000A", "4TWR5030H1000A"},
		{"colon", "Model: TUD2B080A9V3VB", "TUD2B080A9V3VB"},
		{"none", "Serial# 5434REB2F", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmericanStandard(tt.text, fixedNow).ModelNumber)
		})
	}
}

func TestParseAmericanStandard_ExtendedRegistration(t *testing.T) {
	data := ParseAmericanStandard("Residential Extended Limited Warranty", fixedNow)
	assert.Equal(t, "Residential Extended", data.RegistrationType)
}

func TestParseAmericanStandard_NoComponents(t *testing.T) {
	data := ParseAmericanStandard("Please enter a serial number", fixedNow)

	assert.NotNil(t, data.Components)
	assert.Empty(t, data.Components)
	assert.Empty(t, data.InstallDate)
	assert.Empty(t, data.WarrantyStatus)
	assert.Nil(t, data.AgeYears)
}

func TestParseAmericanStandard_Expired(t *testing.T) {
	data := ParseAmericanStandard("Compressor : Term End Date is 01/02/2020 (10 Years)", fixedNow)
	assert.Equal(t, "Expired", data.WarrantyStatus)
	assert.Equal(t, "01/02/2010", data.InstallDate)
}
