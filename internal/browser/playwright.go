package browser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"go-hh-autoapply/internal/config"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-infobars",
	"--start-maximized",
}

// Manager owns the playwright driver, one browser context and its single page.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
}

// NewPlaywright starts chromium. With a user data dir the profile is reused,
// which keeps the hh.ru login between runs; otherwise cookies are loaded
// from CookiesPath when present.
func NewPlaywright(cfg config.BrowserConfig, pageLoadMs float64, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	m := &Manager{pw: pw, logger: logger}

	viewport := &playwright.Size{Width: 1366, Height: 768}

	if cfg.UserDataDir != "" {
		bctx, err := pw.Chromium.LaunchPersistentContext(cfg.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  playwright.Bool(cfg.Headless),
			Args:      launchArgs,
			UserAgent: playwright.String(userAgent),
			Locale:    playwright.String("ru-RU"),
			Viewport:  viewport,
		})
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("launch persistent context: %w", err)
		}
		m.context = bctx
		logger.Info("🗂️ Using persistent browser profile", "dir", cfg.UserDataDir)
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
			Args:     launchArgs,
		})
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		m.browser = browser

		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent: playwright.String(userAgent),
			Locale:    playwright.String("ru-RU"),
			Viewport:  viewport,
		})
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("create browser context: %w", err)
		}
		m.context = bctx
	}

	if cfg.CookiesPath != "" {
		cookies, err := LoadCookies(cfg.CookiesPath)
		switch {
		case err == nil:
			if err := m.context.AddCookies(cookies); err != nil {
				logger.Warn("⚠️ Could not add cookies", "error", err)
			} else {
				logger.Info("🍪 Loaded cookies", "count", len(cookies))
			}
		case errors.Is(err, errNoCookieFile):
			logger.Debug("No cookie file yet", "path", cfg.CookiesPath)
		default:
			logger.Warn("⚠️ Could not load cookies", "path", cfg.CookiesPath, "error", err)
		}
	}

	//hide navigator.webdriver for every page in this context
	if err := m.context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		logger.Warn("⚠️ Could not install stealth script", "error", err)
	}

	// a persistent context opens with one blank page already
	if pages := m.context.Pages(); len(pages) > 0 {
		m.page = pages[0]
	} else {
		page, err := m.context.NewPage()
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("create page: %w", err)
		}
		m.page = page
	}
	if pageLoadMs > 0 {
		m.page.SetDefaultNavigationTimeout(pageLoadMs)
	}

	logger.Info("✅ Browser initialized", "headless", cfg.Headless)
	return m, nil
}

func (m *Manager) Page() playwright.Page {
	return m.page
}

func (m *Manager) Context() playwright.BrowserContext {
	return m.context
}

// Close releases the context, the browser and the driver process. It keeps
// going after a failure and returns the first error.
func (m *Manager) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if m.context != nil {
		keep(m.context.Close())
	}
	if m.browser != nil {
		keep(m.browser.Close())
	}
	if m.pw != nil {
		keep(m.pw.Stop())
	}
	m.logger.Info("👋 Browser closed")
	return first
}
