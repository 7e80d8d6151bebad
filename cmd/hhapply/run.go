package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-hh-autoapply/internal/browser"
	"go-hh-autoapply/internal/hh"
	"go-hh-autoapply/internal/ledger"
	"go-hh-autoapply/internal/reporter"
	"go-hh-autoapply/internal/traversal"
	"go-hh-autoapply/utils"
)

// errorReporter is the part of the Telegram reporter runBot needs for
// fatal errors.
type errorReporter interface {
	SendError(err error) error
}

func runBot(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := initLogger(cmd.ErrOrStderr(), cfg.Debug).With("run", runID[:8])
	logger.Info("🤖 hh.ru auto-applier starting", "version", version, "queries", len(cfg.SearchQueries))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		engineOpts = []traversal.Option{traversal.WithRunID(runID)}
		alerts     errorReporter
	)
	if cfg.Telegram.Enabled() {
		rep, err := reporter.NewTelegramReporter(cfg.Telegram)
		if err != nil {
			logger.Warn("⚠️ Telegram disabled", "error", err)
		} else {
			engineOpts = append(engineOpts, traversal.WithReporter(rep))
			alerts = rep
			logger.Info("📨 Telegram reports enabled")
		}
	}

	led := ledger.Open(cfg.ProcessedFile, cfg.SkippedFile, cfg.SaveInterval, logger)

	mgr, err := browser.NewPlaywright(cfg.Browser, float64(cfg.Timeouts.PageLoad.Milliseconds()), logger)
	if err != nil {
		return reportFatal(alerts, logger, fmt.Errorf("failed to init browser: %w", err))
	}
	// ledger first, browser second
	defer func() {
		if err := led.Flush(true); err != nil {
			logger.Error("❌ Final ledger save failed", "error", err)
		} else {
			p, s := led.Stats()
			logger.Info("💾 Ledger saved", "processed", p, "skipped", s)
		}
		if err := mgr.Close(); err != nil {
			logger.Warn("⚠️ Browser did not close cleanly", "error", err)
		}
	}()

	var shots *utils.ScreenShotDebugger
	if cfg.Debug {
		shots, err = utils.NewScreenShotDebugger(cfg.Browser.Screenshots, logger)
		if err != nil {
			logger.Warn("⚠️ Screenshots disabled", "error", err)
		}
	}

	driver := hh.New(mgr.Page(), cfg, logger, shots)
	if err := driver.WaitForAuth(ctx); err != nil {
		return reportFatal(alerts, logger, fmt.Errorf("authorization: %w", err))
	}
	if cfg.Browser.CookiesPath != "" {
		if n, err := browser.SaveCookies(mgr.Context(), cfg.Browser.CookiesPath); err != nil {
			logger.Warn("⚠️ Could not save cookies", "error", err)
		} else {
			logger.Debug("Cookies saved", "count", n, "path", cfg.Browser.CookiesPath)
		}
	}

	engine := traversal.New(driver, led, cfg, logger, engineOpts...)
	total, err := engine.Run(ctx)

	logger.Info("📊 Run statistics",
		"applied", total.Applied,
		"already_applied", total.AlreadyApplied,
		"skipped", total.Skipped,
		"errors", total.Errored,
		"pages", total.Pages,
		"applied_all_time", led.AppliedCount(),
	)

	return reportFatal(alerts, logger, err)
}

// reportFatal forwards err to the chat and returns it. An interrupt is a
// normal shutdown: it is neither reported nor returned.
func reportFatal(alerts errorReporter, logger *slog.Logger, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("⛔ Interrupted, shutting down")
		return nil
	}
	if alerts != nil {
		if serr := alerts.SendError(err); serr != nil {
			logger.Warn("⚠️ Failed to send error to Telegram", "error", serr)
		}
	}
	return err
}
