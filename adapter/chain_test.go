package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/browser/browsertest"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_ProbeReturnsFirstVisible(t *testing.T) {
	page := &browsertest.Page{}
	page.Add(browser.CSS("button[type='submit']"))
	page.Add(browser.HasText("button", "Look"))

	c := Chain{Name: "search", Steps: Steps(
		browser.HasText("button", "Search"),
		browser.CSS("button[type='submit']"),
		browser.HasText("button", "Look"),
	)}

	_, loc, err := c.Probe(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "button[type='submit']", loc.String())
}

func TestChain_ProbeMiss(t *testing.T) {
	c := Chain{Name: "print", Steps: Steps(browser.CSS("[class*='print']"))}

	_, _, err := c.Probe(context.Background(), &browsertest.Page{})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestChain_RunOptionalMiss(t *testing.T) {
	c := Chain{Name: "cookie banner", Steps: Steps(browser.CSS("#onetrust-accept-btn-handler"))}

	ok, err := c.Run(context.Background(), &browsertest.Page{}, click)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestChain_RunRequiredMiss(t *testing.T) {
	c := Chain{
		Name:     "serial number input",
		Required: true,
		Missing:  "could not find serial number input",
		Steps:    Steps(browser.CSS("#serialNumber")),
	}

	ok, err := c.Run(context.Background(), &browsertest.Page{}, click)
	assert.False(t, ok)

	var le *models.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, models.ErrCodeElementNotFound, le.Code)
	assert.Equal(t, "could not find serial number input", le.Message)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestChain_RunFallsThroughFailedAction(t *testing.T) {
	page := &browsertest.Page{}
	radio := page.Add(browser.CSS("#isOriginal1"))
	radio.ClickErr = errors.New("element covered by label")
	label := page.Add(browser.CSS("label[for='isOriginal1']"))

	ok, err := carrierOriginalOwner.Run(context.Background(), page, click)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, radio.Clicks())
	assert.Equal(t, 1, label.Clicks())
}

func TestChain_RunStopsOnCanceledContext(t *testing.T) {
	page := &browsertest.Page{}
	page.Add(browser.CSS("#serialNumber"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := carrierSerialInput.Run(ctx, page, click)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectorsCompile(t *testing.T) {
	chains := []Chain{
		asInterstitials, asCookieBanner, asSerialInput, asSearch, asResultsAction, asWarrantyError,
		carrierCookieBanner, carrierSerialInput, carrierOriginalOwner, carrierSubmit,
	}
	for _, c := range chains {
		assert.NoError(t, c.Validate(), c.Name)
	}
}

func TestChain_ValidateRejectsBadSelector(t *testing.T) {
	bad := Chain{Name: "broken", Steps: Steps(browser.CSS("#ok"), browser.CSS("button[type="))}

	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Panics(t, func() { mustValidate(bad) })
}
