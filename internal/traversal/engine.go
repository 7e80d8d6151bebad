// Package traversal walks the configured search queries page by page and
// makes exactly one recorded decision per vacancy identity.
package traversal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-hh-autoapply/internal/config"
	"go-hh-autoapply/internal/filter"
)

type Engine struct {
	driver   PageDriver
	ledger   Ledger
	cfg      *config.Config
	logger   *slog.Logger
	reporter Reporter
	runID    string
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Engine)

func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithSleep replaces the pacing sleep, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

func New(driver PageDriver, ledger Ledger, cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		driver: driver,
		ledger: ledger,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run repeats cycles until ctx is cancelled or max_cycles is reached.
// It returns the run totals and ctx.Err() when interrupted.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	var total Stats

	for cycle := 1; ; cycle++ {
		e.logger.Info("🔄 Starting cycle", "cycle", cycle, "queries", len(e.cfg.SearchQueries))
		started := time.Now()

		stats := e.RunCycle(ctx)
		total.Add(stats)
		e.checkpoint()

		processed, skipped := e.ledger.Stats()
		summary := CycleSummary{
			RunID:        e.runID,
			Cycle:        cycle,
			Stats:        stats,
			Processed:    processed,
			Skipped:      skipped,
			TotalApplied: e.ledger.AppliedCount(),
			Duration:     time.Since(started),
		}
		e.logger.Info("✅ Cycle finished",
			"cycle", cycle,
			"stats", stats.String(),
			"processed_total", processed,
			"skipped_total", skipped,
			"duration", summary.Duration.Round(time.Second),
		)

		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		if e.reporter != nil {
			if err := e.reporter.CycleFinished(ctx, summary); err != nil {
				e.logger.Warn("⚠️ Failed to report cycle", "cycle", cycle, "error", err)
			}
		}

		if e.cfg.MaxCycles > 0 && cycle >= e.cfg.MaxCycles {
			e.logger.Info("🏁 Reached max cycles", "max_cycles", e.cfg.MaxCycles)
			return total, nil
		}

		e.logger.Info("⏳ Waiting before next cycle", "pause", e.cfg.Delays.BetweenCycles)
		if err := e.sleep(ctx, e.cfg.Delays.BetweenCycles); err != nil {
			return total, err
		}
	}
}

// RunCycle runs every query once, starting each from page 1.
func (e *Engine) RunCycle(ctx context.Context) Stats {
	var stats Stats
	for i, q := range e.cfg.SearchQueries {
		if ctx.Err() != nil {
			break
		}
		e.logger.Info("🔍 Processing query",
			"index", i+1,
			"of", len(e.cfg.SearchQueries),
			"query", q.DisplayName(),
		)
		stats.Add(e.RunQuery(ctx, q))
	}
	return stats
}

// RunQuery walks the result pages of one query. A page that cannot be
// fetched ends this query only.
func (e *Engine) RunQuery(ctx context.Context, q config.SearchQuery) Stats {
	var stats Stats
	log := e.logger.With("query", q.DisplayName())

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return stats
		}

		handles, err := e.driver.FetchResultPage(ctx, q, page)
		if err != nil {
			if ctx.Err() != nil {
				return stats
			}
			log.Error("❌ Failed to load result page", "page", page, "error", err)
			stats.FetchFailures++
			return stats
		}
		if len(handles) == 0 {
			log.Info("📭 No vacancies on page, query done", "page", page)
			return stats
		}

		log.Info("📄 Processing page", "page", page, "cards", len(handles))
		pageStats := e.processPage(ctx, q, handles)
		pageStats.Pages = 1
		stats.Add(pageStats)
		e.checkpoint()

		log.Info("📊 Page done", "page", page, "stats", pageStats.String())

		if page >= e.cfg.MaxPages {
			log.Info("🛑 Reached max pages", "max_pages", e.cfg.MaxPages)
			return stats
		}
		if ctx.Err() != nil || !e.driver.HasNextPage(ctx, page) {
			return stats
		}
		if err := e.sleep(ctx, e.cfg.Delays.BetweenPages); err != nil {
			return stats
		}
	}
}

func (e *Engine) processPage(ctx context.Context, q config.SearchQuery, handles []Handle) Stats {
	var stats Stats
	for _, h := range handles {
		if ctx.Err() != nil {
			break
		}
		if attempted := e.classifySafe(ctx, q, h, &stats); attempted {
			if err := e.sleep(ctx, e.cfg.Delays.BetweenApplies); err != nil {
				break
			}
		}
	}
	return stats
}

// classifySafe keeps a panic while reading one card from ending the page.
// Nothing is recorded for that card, so the next run sees it again.
func (e *Engine) classifySafe(ctx context.Context, q config.SearchQuery, h Handle, stats *Stats) (attempted bool) {
	defer func() {
		if r := recover(); r != nil {
			stats.Errored++
			e.logger.Error("❌ Failed to read vacancy card", "panic", r)
			attempted = false
		}
	}()
	return e.classify(ctx, q, h, stats)
}

// classify makes the single decision for one card and records it. It
// reports whether the driver was asked to apply.
func (e *Engine) classify(ctx context.Context, q config.SearchQuery, h Handle, stats *Stats) bool {
	title := strings.TrimSpace(e.driver.ResolveTitle(h))
	if title == "" {
		stats.Discarded++
		return false
	}
	id, ok := e.driver.ResolveIdentity(h)
	if !ok || id == "" {
		stats.Discarded++
		return false
	}
	if e.ledger.IsKnown(id) {
		stats.Seen++
		return false
	}

	log := e.logger.With("id", id, "title", title)

	if !filter.IsSuitable(title, q.Keywords) {
		log.Debug("⏭️ Title does not match keywords")
		e.ledger.MarkSkipped(id, title, ReasonNotSuitable)
		stats.Skipped++
		return false
	}

	stats.Attempted++
	log.Info("📨 Applying")

	att, err := e.attempt(ctx, h, ApplyRequest{
		Title:       title,
		ResumeRules: e.cfg.ResumeRules,
		CoverLetter: e.cfg.CoverLetter,
	})
	if err != nil {
		if ctx.Err() != nil {
			// interrupted mid-flow, leave it for the next run
			log.Warn("⚠️ Attempt interrupted", "error", err)
			return true
		}
		att = Failed(err.Error())
	}

	switch {
	case att.Processed():
		e.ledger.MarkProcessed(id, title, string(att.Outcome), att.CoverLetter)
		if att.Outcome == OutcomeApplied {
			stats.Applied++
			log.Info("✅ Applied", "cover_letter", att.CoverLetter)
		} else {
			stats.AlreadyApplied++
			log.Info("☑️ Already applied")
		}
	case att.Outcome == OutcomeError:
		e.ledger.MarkSkipped(id, title, att.Reason())
		stats.Errored++
		log.Error("❌ Attempt failed", "error", att.Detail)
	default:
		e.ledger.MarkSkipped(id, title, att.Reason())
		stats.Skipped++
		log.Info("⏭️ Skipped", "reason", att.Reason())
	}
	return true
}

// attempt isolates one card: a panic in the driver becomes an error outcome.
func (e *Engine) attempt(ctx context.Context, h Handle, req ApplyRequest) (att Attempt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.driver.AttemptAction(ctx, h, req)
}

func (e *Engine) checkpoint() {
	if err := e.ledger.Flush(true); err != nil {
		e.logger.Warn("⚠️ Ledger checkpoint failed, will retry", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
