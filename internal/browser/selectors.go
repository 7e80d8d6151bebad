package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Scope resolves a CSS selector relative to something: the page or an element.
type Scope func(selector string) playwright.Locator

func InPage(page playwright.Page) Scope {
	return func(selector string) playwright.Locator { return page.Locator(selector) }
}

func Within(loc playwright.Locator) Scope {
	return func(selector string) playwright.Locator { return loc.Locator(selector) }
}

// FirstMatch tries selectors in order and returns the first one that is
// present right now. It never waits.
func FirstMatch(scope Scope, selectors []string) (playwright.Locator, string, bool) {
	for _, sel := range selectors {
		loc := scope(sel)
		if n, err := loc.Count(); err == nil && n > 0 {
			return loc.First(), sel, true
		}
	}
	return nil, "", false
}

// FirstVisible is FirstMatch restricted to visible elements.
func FirstVisible(scope Scope, selectors []string) (playwright.Locator, bool) {
	for _, sel := range selectors {
		loc := scope(sel).First()
		if ok, err := loc.IsVisible(); err == nil && ok {
			return loc, true
		}
	}
	return nil, false
}

// AllMatches returns every element of the first selector that matches anything.
func AllMatches(scope Scope, selectors []string) ([]playwright.Locator, string) {
	for _, sel := range selectors {
		items, err := scope(sel).All()
		if err == nil && len(items) > 0 {
			return items, sel
		}
	}
	return nil, ""
}

// WaitAny waits up to timeout for any selector to become visible. A
// timeout is reported as false, not as an error.
func WaitAny(scope Scope, selectors []string, timeout time.Duration) (playwright.Locator, bool) {
	if len(selectors) == 0 {
		return nil, false
	}
	loc := scope(strings.Join(selectors, ", ") + " >> visible=true").First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, false
	}
	return loc, true
}

// SafeClick clicks loc, scrolling it into view and finally forcing the
// click when an overlay intercepts it.
func SafeClick(loc playwright.Locator, timeout time.Duration) error {
	ms := playwright.Float(float64(timeout.Milliseconds()))

	err := loc.Click(playwright.LocatorClickOptions{Timeout: ms})
	if err == nil {
		return nil
	}

	_ = loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: ms})
	if err = loc.Click(playwright.LocatorClickOptions{Timeout: ms}); err == nil {
		return nil
	}

	if ferr := loc.Click(playwright.LocatorClickOptions{Timeout: ms, Force: playwright.Bool(true)}); ferr != nil {
		return fmt.Errorf("click: %w", errors.Join(err, ferr))
	}
	return nil
}

// IsTimeout reports whether err is a playwright wait timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout)
}

// TextOf returns the trimmed inner text of loc, or "" when it cannot be read.
func TextOf(loc playwright.Locator, timeout time.Duration) string {
	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
