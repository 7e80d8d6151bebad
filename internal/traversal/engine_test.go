package traversal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-hh-autoapply/internal/config"
	"go-hh-autoapply/internal/ledger"
)

type card struct {
	id      string
	title   string
	attempt Attempt
	err     error
	panics  bool

	// unreadable panics while the title is resolved
	unreadable bool
}

// fakeDriver serves fixed pages per query URL and records every call.
type fakeDriver struct {
	pages      map[string][][]card
	fetchErr   map[string]error
	alwaysNext bool

	fetched   []int
	attempts  []string
	onAttempt func(c card)
}

func (d *fakeDriver) FetchResultPage(_ context.Context, q config.SearchQuery, page int) ([]Handle, error) {
	d.fetched = append(d.fetched, page)
	if err := d.fetchErr[q.URL]; err != nil {
		return nil, err
	}
	pages := d.pages[q.URL]
	if page > len(pages) {
		if d.alwaysNext && len(pages) > 0 {
			return toHandles(pages[len(pages)-1]), nil
		}
		return nil, nil
	}
	return toHandles(pages[page-1]), nil
}

func toHandles(cards []card) []Handle {
	out := make([]Handle, len(cards))
	for i, c := range cards {
		out[i] = c
	}
	return out
}

func (d *fakeDriver) ResolveIdentity(h Handle) (string, bool) {
	c := h.(card)
	return c.id, c.id != ""
}

func (d *fakeDriver) ResolveTitle(h Handle) string {
	c := h.(card)
	if c.unreadable {
		panic("stale element reference")
	}
	return c.title
}

func (d *fakeDriver) AttemptAction(_ context.Context, h Handle, _ ApplyRequest) (Attempt, error) {
	c := h.(card)
	d.attempts = append(d.attempts, c.id)
	if d.onAttempt != nil {
		d.onAttempt(c)
	}
	if c.panics {
		panic("stale element")
	}
	if c.err != nil {
		return Attempt{}, c.err
	}
	if c.attempt.Outcome == "" {
		return Attempt{Outcome: OutcomeApplied, CoverLetter: true}, nil
	}
	return c.attempt, nil
}

func (d *fakeDriver) HasNextPage(_ context.Context, current int) bool {
	return d.alwaysNext
}

type fakeReporter struct {
	summaries []CycleSummary
}

func (r *fakeReporter) CycleFinished(_ context.Context, s CycleSummary) error {
	r.summaries = append(r.summaries, s)
	return nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	dir := t.TempDir()
	return ledger.Open(
		filepath.Join(dir, "processed.json"),
		filepath.Join(dir, "skipped.json"),
		10, testLogger(),
	)
}

func testConfig(queries ...config.SearchQuery) *config.Config {
	return &config.Config{
		SearchQueries: queries,
		CoverLetter:   "Hello",
		MaxPages:      5,
		MaxCycles:     1,
	}
}

const linuxURL = "https://hh.ru/search/vacancy?text=linux"

var linuxQuery = config.SearchQuery{Name: "Linux", URL: linuxURL, Keywords: []string{"linux"}}

func TestRunQuery_Scenario(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "A", title: "Linux Admin"},
			{id: "B", title: "Sales Manager"},
		}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	stats := e.RunQuery(context.Background(), linuxQuery)

	assert.Equal(t, []string{"A"}, drv.attempts)

	a, part, ok := l.Get("A")
	require.True(t, ok)
	assert.Equal(t, ledger.Processed, part)
	assert.Equal(t, "applied", a.Status)

	b, part, ok := l.Get("B")
	require.True(t, ok)
	assert.Equal(t, ledger.Skipped, part)
	assert.Equal(t, ReasonNotSuitable, b.Status)

	processed, skipped := l.Stats()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, skipped)

	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Skipped)
}

func TestRunQuery_KnownIdentitiesAreNotTouched(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "A", title: "Linux Admin"},
			{id: "B", title: "Sales Manager"},
			{id: "C", title: "Linux Engineer", attempt: Attempt{Outcome: OutcomeMandatoryTest}},
		}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	e.RunQuery(context.Background(), linuxQuery)
	before := [][]ledger.Entry{l.Entries(ledger.Processed), l.Entries(ledger.Skipped)}
	attemptsBefore := len(drv.attempts)

	second := e.RunQuery(context.Background(), linuxQuery)

	assert.Equal(t, attemptsBefore, len(drv.attempts), "no new attempts for known identities")
	assert.Equal(t, 3, second.Seen)
	assert.Zero(t, second.Attempted)
	assert.Equal(t, before, [][]ledger.Entry{l.Entries(ledger.Processed), l.Entries(ledger.Skipped)})
}

func TestRunQuery_RepeatedCardOnSamePageAttemptedOnce(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "A", title: "Linux Admin"},
			{id: "A", title: "Linux Admin"},
		}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	stats := e.RunQuery(context.Background(), linuxQuery)
	assert.Equal(t, []string{"A"}, drv.attempts)
	assert.Equal(t, 1, stats.Seen)
}

func TestRunQuery_StopsAtMaxPages(t *testing.T) {
	drv := &fakeDriver{
		alwaysNext: true,
		pages: map[string][][]card{
			linuxURL: {{{id: "A", title: "Linux Admin"}}},
		},
	}
	cfg := testConfig(linuxQuery)
	cfg.MaxPages = 3
	e := New(drv, newLedger(t), cfg, testLogger(), WithSleep(noSleep))

	stats := e.RunQuery(context.Background(), linuxQuery)
	assert.Equal(t, []int{1, 2, 3}, drv.fetched)
	assert.Equal(t, 3, stats.Pages)
}

func TestRunQuery_StopsOnEmptyPageOrNoNext(t *testing.T) {
	t.Run("empty page", func(t *testing.T) {
		drv := &fakeDriver{
			alwaysNext: true,
			pages: map[string][][]card{
				linuxURL: {{{id: "A", title: "Linux Admin"}}, {}},
			},
		}
		e := New(drv, newLedger(t), testConfig(linuxQuery), testLogger(), WithSleep(noSleep))
		stats := e.RunQuery(context.Background(), linuxQuery)
		assert.Equal(t, []int{1, 2}, drv.fetched)
		assert.Equal(t, 1, stats.Pages)
	})

	t.Run("no next page", func(t *testing.T) {
		drv := &fakeDriver{pages: map[string][][]card{
			linuxURL: {{{id: "A", title: "Linux Admin"}}, {{id: "B", title: "Linux Dev"}}},
		}}
		e := New(drv, newLedger(t), testConfig(linuxQuery), testLogger(), WithSleep(noSleep))
		e.RunQuery(context.Background(), linuxQuery)
		assert.Equal(t, []int{1}, drv.fetched)
	})
}

func TestRunQuery_KeywordGateSkipsWithoutAttempt(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "S", title: "Sales Manager"}}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	e.RunQuery(context.Background(), linuxQuery)

	assert.Empty(t, drv.attempts)
	entry, part, ok := l.Get("S")
	require.True(t, ok)
	assert.Equal(t, ledger.Skipped, part)
	assert.Equal(t, ReasonNotSuitable, entry.Status)
}

func TestRunQuery_NoKeywordsAttemptsEverything(t *testing.T) {
	q := config.SearchQuery{URL: linuxURL}
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "S", title: "Sales Manager"}, {id: "L", title: "Linux Admin"}}},
	}}
	e := New(drv, newLedger(t), testConfig(q), testLogger(), WithSleep(noSleep))

	e.RunQuery(context.Background(), q)
	assert.Equal(t, []string{"S", "L"}, drv.attempts)
}

func TestRunQuery_BlankKeywordsAttemptEverything(t *testing.T) {
	q := config.SearchQuery{URL: linuxURL, Keywords: []string{"", "  "}}
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "A", title: "Linux Admin"}}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(q), testLogger(), WithSleep(noSleep))

	e.RunQuery(context.Background(), q)

	assert.Equal(t, []string{"A"}, drv.attempts)
	assert.True(t, l.IsProcessed("A"))
}

func TestRunQuery_UnreadableCardDoesNotAbortPage(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "1", title: "Linux 1"},
			{id: "2", title: "Linux 2", unreadable: true},
			{id: "3", title: "Linux 3"},
		}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	var stats Stats
	require.NotPanics(t, func() {
		stats = e.RunQuery(context.Background(), linuxQuery)
	})

	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, []string{"1", "3"}, drv.attempts)
	assert.True(t, l.IsProcessed("1"))
	assert.True(t, l.IsProcessed("3"))
	assert.False(t, l.IsKnown("2"))
}

func TestRunQuery_PartialFailureIsolation(t *testing.T) {
	tests := []struct {
		name   string
		broken card
		reason string
	}{
		{
			name:   "error",
			broken: card{id: "2", title: "Linux 2", err: errors.New("click intercepted")},
			reason: "error: click intercepted",
		},
		{
			name:   "panic",
			broken: card{id: "2", title: "Linux 2", panics: true},
			reason: "error: panic: stale element",
		},
		{
			name:   "error outcome",
			broken: card{id: "2", title: "Linux 2", attempt: Failed("timeout")},
			reason: "error: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{pages: map[string][][]card{
				linuxURL: {{
					{id: "1", title: "Linux 1"},
					tt.broken,
					{id: "3", title: "Linux 3"},
					{id: "4", title: "Linux 4"},
					{id: "5", title: "Linux 5"},
				}},
			}}
			l := newLedger(t)
			e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

			stats := e.RunQuery(context.Background(), linuxQuery)

			assert.Equal(t, 1, stats.Errored)
			assert.Equal(t, 4, stats.Applied)
			for _, id := range []string{"1", "3", "4", "5"} {
				assert.True(t, l.IsProcessed(id), id)
			}
			entry, part, ok := l.Get("2")
			require.True(t, ok)
			assert.Equal(t, ledger.Skipped, part)
			assert.Equal(t, tt.reason, entry.Status)
		})
	}
}

func TestRunQuery_OutcomesLandInTheRightPartition(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "applied", title: "Linux 1"},
			{id: "already", title: "Linux 2", attempt: Attempt{Outcome: OutcomeAlreadyApplied}},
			{id: "test", title: "Linux 3", attempt: Attempt{Outcome: OutcomeMandatoryTest}},
			{id: "redirect", title: "Linux 4", attempt: Attempt{Outcome: OutcomeMandatoryTestRedirect}},
			{id: "letter", title: "Linux 5", attempt: Attempt{Outcome: OutcomeCoverLetterFailed}},
			{id: "submit", title: "Linux 6", attempt: Attempt{Outcome: OutcomeSubmitFailed}},
		}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	stats := e.RunQuery(context.Background(), linuxQuery)

	assert.True(t, l.IsProcessed("applied"))
	assert.True(t, l.IsProcessed("already"))
	for _, id := range []string{"test", "redirect", "letter", "submit"} {
		entry, part, ok := l.Get(id)
		require.True(t, ok)
		assert.Equal(t, ledger.Skipped, part)
		assert.NotEmpty(t, entry.Status)
	}
	redirect, _, _ := l.Get("redirect")
	assert.Equal(t, "mandatory_test_redirect", redirect.Status)

	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.AlreadyApplied)
	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, 1, l.AppliedCount())
}

func TestRunQuery_UntitledCardsDiscarded(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "X", title: "  "}, {title: "Linux Admin"}}},
	}}
	l := newLedger(t)
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))

	stats := e.RunQuery(context.Background(), linuxQuery)
	assert.Equal(t, 2, stats.Discarded)
	assert.Empty(t, drv.attempts)
	processed, skipped := l.Stats()
	assert.Zero(t, processed+skipped)
}

func TestRunCycle_FetchFailureEndsOnlyThatQuery(t *testing.T) {
	broken := config.SearchQuery{Name: "Broken", URL: "https://hh.ru/search/vacancy?text=broken"}
	drv := &fakeDriver{
		fetchErr: map[string]error{broken.URL: errors.New("timeout")},
		pages: map[string][][]card{
			linuxURL: {{{id: "A", title: "Linux Admin"}}},
		},
	}
	e := New(drv, newLedger(t), testConfig(broken, linuxQuery), testLogger(), WithSleep(noSleep))

	stats := e.RunCycle(context.Background())
	assert.Equal(t, 1, stats.FetchFailures)
	assert.Equal(t, 1, stats.Applied)
}

func TestRun_CyclesAndReporting(t *testing.T) {
	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "A", title: "Linux Admin"}}},
	}}
	cfg := testConfig(linuxQuery)
	cfg.MaxCycles = 2
	cfg.Delays.BetweenCycles = time.Minute

	var slept []time.Duration
	rep := &fakeReporter{}
	e := New(drv, newLedger(t), cfg, testLogger(),
		WithReporter(rep),
		WithRunID("run-1"),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	total, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, drv.fetched, "each cycle restarts at page 1")
	assert.Equal(t, 1, total.Applied)
	assert.Equal(t, 1, total.Seen)
	require.Len(t, rep.summaries, 2)
	assert.Equal(t, "run-1", rep.summaries[0].RunID)
	assert.Equal(t, 2, rep.summaries[1].Cycle)
	assert.Equal(t, 1, rep.summaries[1].TotalApplied)
	assert.Contains(t, slept, time.Minute)
}

func TestRun_InterruptMidAttemptLeavesCardUnrecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{
			{id: "A", title: "Linux Admin", err: context.Canceled},
			{id: "B", title: "Linux Dev"},
		}},
	}}
	drv.onAttempt = func(c card) {
		if c.id == "A" {
			cancel()
		}
	}
	cfg := testConfig(linuxQuery)
	cfg.MaxCycles = 0
	l := newLedger(t)
	e := New(drv, l, cfg, testLogger(), WithSleep(noSleep))

	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"A"}, drv.attempts)
	assert.False(t, l.IsKnown("A"))
}

func TestRun_ForcedCheckpointPersists(t *testing.T) {
	dir := t.TempDir()
	p, s := filepath.Join(dir, "p.json"), filepath.Join(dir, "s.json")
	l := ledger.Open(p, s, 1000, testLogger())

	drv := &fakeDriver{pages: map[string][][]card{
		linuxURL: {{{id: "A", title: "Linux Admin"}, {id: "B", title: "Sales"}}},
	}}
	e := New(drv, l, testConfig(linuxQuery), testLogger(), WithSleep(noSleep))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	reloaded := ledger.Open(p, s, 1000, testLogger())
	assert.Equal(t, l.Entries(ledger.Processed), reloaded.Entries(ledger.Processed))
	assert.Equal(t, l.Entries(ledger.Skipped), reloaded.Entries(ledger.Skipped))
}

func TestAttempt_Reason(t *testing.T) {
	assert.Equal(t, "submit_failed", Attempt{Outcome: OutcomeSubmitFailed}.Reason())
	assert.Equal(t, "error: boom", Failed("boom").Reason())
	assert.Equal(t, "error", Failed("").Reason())
}
