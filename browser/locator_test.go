package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "#serialNumber", CSS("#serialNumber").String())
	assert.Equal(t, `button:has-text("Accept All")`, HasText("button", "Accept All").String())
}

func TestLocator_Validate(t *testing.T) {
	assert.NoError(t, CSS("[class*='modal'] button:not([disabled])").Validate())
	assert.NoError(t, CSS("label[for='isOriginal1']").Validate())
	assert.Error(t, CSS("button[").Validate())
}

func TestLocator_TextPattern(t *testing.T) {
	assert.Equal(t, `/Print my warranty/i`, HasText("button", "Print my warranty").textPattern())
	assert.Equal(t, `/Day & Night\?/i`, HasText("a", "Day & Night?").textPattern())
}
