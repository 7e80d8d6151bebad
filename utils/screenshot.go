package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ScreenShotDebugger stores full-page screenshots of failed attempts.
// A nil *ScreenShotDebugger is valid and does nothing.
type ScreenShotDebugger struct {
	outputDir string
	logger    *slog.Logger
}

func NewScreenShotDebugger(dir string, logger *slog.Logger) (*ScreenShotDebugger, error) {
	if dir == "" {
		dir = filepath.Join(".", "logs", "screenshots")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenShotDebugger{outputDir: dir, logger: logger}, nil
}

// CaptureAndLog saves a screenshot named after name and returns its path.
func (s *ScreenShotDebugger) CaptureAndLog(page playwright.Page, name, message string) (string, error) {
	if s == nil {
		return "", nil
	}
	path := filepath.Join(s.outputDir, FileName(name, time.Now()))
	s.logger.Info("📸 "+message, "url", page.URL())

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.logger.Warn("⚠️ Failed to capture screenshot", "error", err)
		return "", err
	}

	s.logger.Info("   Screenshot saved", "path", path)
	return path, nil
}

// FileName builds a filesystem-safe screenshot name such as
// apply-error-100500_2024-01-02_15-04-05.png.
func FileName(name string, at time.Time) string {
	name = unsafeName.ReplaceAllString(name, "-")
	if name == "" {
		name = "screenshot"
	}
	return fmt.Sprintf("%s_%s.png", name, at.Format("2006-01-02_15-04-05"))
}
