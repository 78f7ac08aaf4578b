package browser

import (
	"fmt"
	"regexp"

	"github.com/andybalholm/cascadia"
)

// Locator finds an element by CSS selector and, optionally, by a
// case-insensitive substring of its visible text.
type Locator struct {
	CSS  string
	Text string
}

// CSS returns a locator matching a selector alone.
func CSS(selector string) Locator {
	return Locator{CSS: selector}
}

// HasText returns a locator for selector elements whose text contains text.
func HasText(selector, text string) Locator {
	return Locator{CSS: selector, Text: text}
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", l.CSS, l.Text)
}

// Validate checks that the CSS part parses.
func (l Locator) Validate() error {
	if _, err := cascadia.Compile(l.CSS); err != nil {
		return fmt.Errorf("locator %s: %w", l, err)
	}
	return nil
}

// textPattern is the JavaScript regex used to filter by visible text.
func (l Locator) textPattern() string {
	return "/" + regexp.QuoteMeta(l.Text) + "/i"
}
