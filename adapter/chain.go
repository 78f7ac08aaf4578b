package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/models"
)

// ErrNoMatch is returned when no locator of a chain finds a visible element.
var ErrNoMatch = errors.New("no selector matched")

// Step is one candidate of a chain.
type Step struct {
	Locator browser.Locator

	// Timeout overrides the chain timeout for this probe.
	Timeout time.Duration
}

// Chain is an ordered list of locators tried until one finds a visible
// element. Optional chains tolerate a miss; required chains fail the lookup.
type Chain struct {
	Name     string
	Steps    []Step
	Timeout  time.Duration
	Required bool

	// Missing is the lookup error message when a required chain misses.
	Missing string
}

// Validate checks every locator of the chain.
func (c Chain) Validate() error {
	for _, s := range c.Steps {
		if err := s.Locator.Validate(); err != nil {
			return fmt.Errorf("chain %q: %w", c.Name, err)
		}
	}
	return nil
}

// mustValidate panics on the first chain with a selector that does not parse.
func mustValidate(chains ...Chain) {
	for _, c := range chains {
		if err := c.Validate(); err != nil {
			panic(err)
		}
	}
}

// Steps wraps locators that use the chain timeout.
func Steps(locs ...browser.Locator) []Step {
	steps := make([]Step, len(locs))
	for i, l := range locs {
		steps[i] = Step{Locator: l}
	}
	return steps
}

// Probe returns the first visible element. A miss yields ErrNoMatch; a
// done ctx yields its error.
func (c Chain) Probe(ctx context.Context, page browser.Page) (browser.Element, browser.Locator, error) {
	for _, s := range c.Steps {
		el, err := page.Find(ctx, s.Locator, c.timeout(s))
		if err == nil {
			return el, s.Locator, nil
		}
		if ctx.Err() != nil {
			return nil, browser.Locator{}, ctx.Err()
		}
		slog.Debug("probe missed", "chain", c.Name, "locator", s.Locator.String(), "error", err)
	}
	return nil, browser.Locator{}, ErrNoMatch
}

// Run applies act to the first visible element. When act fails on an
// element the next locator is tried. It reports whether act succeeded.
// A miss is an error only for required chains.
func (c Chain) Run(ctx context.Context, page browser.Page, act func(context.Context, browser.Element) error) (bool, error) {
	var lastErr error
	for _, s := range c.Steps {
		el, err := page.Find(ctx, s.Locator, c.timeout(s))
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			slog.Debug("probe missed", "chain", c.Name, "locator", s.Locator.String())
			continue
		}
		if err := act(ctx, el); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			slog.Debug("action failed", "chain", c.Name, "locator", s.Locator.String(), "error", err)
			lastErr = err
			continue
		}
		slog.Debug("chain matched", "chain", c.Name, "locator", s.Locator.String())
		return true, nil
	}

	if !c.Required {
		return false, nil
	}
	cause := ErrNoMatch
	if lastErr != nil {
		cause = fmt.Errorf("%w: %v", ErrNoMatch, lastErr)
	}
	msg := c.Missing
	if msg == "" {
		msg = "could not find " + c.Name
	}
	return false, models.NewLookupError(models.ErrCodeElementNotFound, msg, cause)
}

func (c Chain) timeout(s Step) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return c.Timeout
}

func click(ctx context.Context, el browser.Element) error {
	return el.Click(ctx)
}
