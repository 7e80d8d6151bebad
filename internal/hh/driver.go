// Package hh drives hh.ru search result pages and the application dialog
// with playwright. It implements traversal.PageDriver.
package hh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-hh-autoapply/internal/browser"
	"go-hh-autoapply/internal/config"
	"go-hh-autoapply/internal/traversal"
	"go-hh-autoapply/internal/vacancy"
	"go-hh-autoapply/utils"
)

// ErrAuthTimeout is returned when nobody logged in within the auth timeout.
var ErrAuthTimeout = errors.New("authorization timed out")

const (
	cardsWait    = 10 * time.Second
	minClickWait = 2 * time.Second
	authPoll     = 2 * time.Second
)

// card is the Handle handed to the engine. The locator is lazy, so it
// resolves again after a back navigation.
type card struct {
	index int
	loc   playwright.Locator

	title    *string
	identity *string
}

type Driver struct {
	page   playwright.Page
	cfg    *config.Config
	logger *slog.Logger
	shots  *utils.ScreenShotDebugger
}

var _ traversal.PageDriver = (*Driver)(nil)

// New builds a driver for page. shots may be nil; screenshots are then skipped.
func New(page playwright.Page, cfg *config.Config, logger *slog.Logger, shots *utils.ScreenShotDebugger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{page: page, cfg: cfg, logger: logger, shots: shots}
}

// PageURL returns the search URL for a 1-based page number. hh.ru counts
// pages from zero.
func PageURL(raw string, page int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page-1))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Driver) FetchResultPage(ctx context.Context, q config.SearchQuery, page int) ([]traversal.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := PageURL(q.URL, page)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("🌐 Opening result page", "url", target)
	_, gotoErr := d.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(d.cfg.Timeouts.PageLoad),
	})
	if gotoErr != nil {
		if !browser.IsTimeout(gotoErr) {
			return nil, fmt.Errorf("open %s: %w", target, gotoErr)
		}
		// slow third-party scripts; the cards may already be there
		d.logger.Warn("⚠️ Result page load timed out, reading what rendered", "url", target)
	}

	if _, ok := browser.WaitAny(browser.InPage(d.page), CardSelectors, min(cardsWait, d.cfg.Timeouts.PageLoad)); !ok {
		if gotoErr != nil {
			return nil, fmt.Errorf("open %s: %w", target, gotoErr)
		}
		return nil, nil
	}

	if d.cfg.Browser.Humanize {
		d.humanize(ctx)
	}

	return d.cards()
}

func (d *Driver) cards() ([]traversal.Handle, error) {
	scope := browser.InPage(d.page)
	for _, sel := range CardSelectors {
		loc := scope(sel)
		n, err := loc.Count()
		if err != nil {
			return nil, fmt.Errorf("count cards: %w", err)
		}
		if n == 0 {
			continue
		}
		d.logger.Debug("Found cards", "count", n, "selector", sel)
		handles := make([]traversal.Handle, n)
		for i := 0; i < n; i++ {
			handles[i] = &card{index: i, loc: loc.Nth(i)}
		}
		return handles, nil
	}
	return nil, nil
}

func (d *Driver) ResolveTitle(h traversal.Handle) string {
	c, ok := h.(*card)
	if !ok {
		return ""
	}
	if c.title != nil {
		return *c.title
	}

	title := ""
	if loc, ok := browser.FirstVisible(browser.Within(c.loc), TitleSelectors); ok {
		title = browser.TextOf(loc, d.cfg.Timeouts.ElementWait)
	}
	c.title = &title
	return title
}

func (d *Driver) ResolveIdentity(h traversal.Handle) (string, bool) {
	c, ok := h.(*card)
	if !ok {
		return "", false
	}
	if c.identity != nil {
		return *c.identity, *c.identity != ""
	}

	wait := ms(d.cfg.Timeouts.ElementWait)
	attrID, _ := c.loc.GetAttribute("data-vacancy-id", playwright.LocatorGetAttributeOptions{Timeout: wait})
	if attrID == "" {
		if inner, _, ok := browser.FirstMatch(browser.Within(c.loc), []string{"[data-vacancy-id]"}); ok {
			attrID, _ = inner.GetAttribute("data-vacancy-id", playwright.LocatorGetAttributeOptions{Timeout: wait})
		}
	}

	href := ""
	if attrID == "" {
		if link, _, ok := browser.FirstMatch(browser.Within(c.loc), LinkSelectors); ok {
			href, _ = link.GetAttribute("href", playwright.LocatorGetAttributeOptions{Timeout: wait})
		}
	}

	id, _ := vacancy.Identity(attrID, href, d.ResolveTitle(h))
	c.identity = &id
	return id, id != ""
}

func (d *Driver) HasNextPage(ctx context.Context, current int) bool {
	if ctx.Err() != nil {
		return false
	}
	_, ok := browser.FirstVisible(browser.InPage(d.page), NextPageSelectors)
	d.logger.Debug("Pagination", "page", current, "has_next", ok)
	return ok
}

// IsAuthorized looks for menu items only a logged-in applicant sees.
func (d *Driver) IsAuthorized() bool {
	_, _, ok := browser.FirstMatch(browser.InPage(d.page), AuthSelectors)
	return ok
}

// WaitForAuth opens the home page and, when not logged in, polls until the
// user logs in manually in the opened browser or the auth timeout passes.
func (d *Driver) WaitForAuth(ctx context.Context) error {
	if _, err := d.page.Goto(d.cfg.Browser.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(d.cfg.Timeouts.PageLoad),
	}); err != nil {
		return fmt.Errorf("open %s: %w", d.cfg.Browser.BaseURL, err)
	}

	if d.IsAuthorized() {
		d.logger.Info("✅ Already authorized")
		return nil
	}

	d.logger.Info("⏳ Waiting for authorization, please log in to hh.ru in the opened browser",
		"timeout", d.cfg.Browser.AuthTimeout)

	deadline := time.NewTimer(d.cfg.Browser.AuthTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(authPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrAuthTimeout
		case <-ticker.C:
			if d.IsAuthorized() {
				d.logger.Info("✅ Authorization successful")
				return nil
			}
		}
	}
}

func (d *Driver) humanize(ctx context.Context) {
	if err := browser.MouseJiggle(ctx, d.page); err != nil {
		d.logger.Debug("Mouse jiggle failed", "error", err)
	}
	if err := browser.HumanScroll(ctx, d.page); err != nil {
		d.logger.Debug("Scroll failed", "error", err)
	}
}

func (d *Driver) clickTimeout() time.Duration {
	return max(d.cfg.Timeouts.ElementWait, minClickWait)
}

// sameLocation compares host and path only; hh.ru rewrites query strings
// while the dialog is open.
func sameLocation(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ua.Host == ub.Host && strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/")
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
