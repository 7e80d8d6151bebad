// Package ledger records the terminal outcome of every vacancy the bot has
// classified, split into a processed and a skipped partition. Both partitions
// are held in memory and persisted as JSON documents.
//
// A Ledger is owned by a single run and is not safe for concurrent use.
package ledger

import (
	"log/slog"
	"sort"
	"time"
)

// Partition names one of the two ledger documents.
type Partition string

const (
	Processed Partition = "processed"
	Skipped   Partition = "skipped"
)

// DefaultSaveInterval is the number of mutations between unforced flushes.
const DefaultSaveInterval = 10

// StatusApplied is the processed status of a submitted application.
const StatusApplied = "applied"

// Entry is the persisted outcome for one vacancy identity. Status holds the
// status for processed entries and the reason for skipped ones.
type Entry struct {
	Identity    string
	Title       string
	Status      string
	CoverLetter bool
	RecordedAt  time.Time
}

type Ledger struct {
	processedPath string
	skippedPath   string
	interval      int
	mutations     int

	processed map[string]Entry
	skipped   map[string]Entry

	logger *slog.Logger
	now    func() time.Time
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for recorded timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open loads both partitions from disk. Missing or unreadable files give an
// empty partition; Open never fails.
func Open(processedPath, skippedPath string, saveInterval int, logger *slog.Logger, opts ...Option) *Ledger {
	if saveInterval <= 0 {
		saveInterval = DefaultSaveInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		processedPath: processedPath,
		skippedPath:   skippedPath,
		interval:      saveInterval,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.processed = loadPartition(processedPath, Processed, logger)
	l.skipped = loadPartition(skippedPath, Skipped, logger)

	// A manual edit may leave an identity in both files; processed wins.
	for id := range l.processed {
		if _, dup := l.skipped[id]; dup {
			logger.Warn("⚠️ identity present in both ledger files, keeping processed entry", "identity", id)
			delete(l.skipped, id)
		}
	}

	logger.Info("📋 Ledger loaded",
		"processed", len(l.processed),
		"skipped", len(l.skipped),
		"save_interval", l.interval,
	)
	return l
}

func (l *Ledger) IsProcessed(id string) bool {
	_, ok := l.processed[id]
	return ok
}

func (l *Ledger) IsSkipped(id string) bool {
	_, ok := l.skipped[id]
	return ok
}

// IsKnown reports whether id is in either partition. It is the only gate
// the traversal uses against acting on a vacancy twice.
func (l *Ledger) IsKnown(id string) bool {
	return l.IsProcessed(id) || l.IsSkipped(id)
}

// MarkProcessed records id as processed with the given status and removes
// any skipped entry for it.
func (l *Ledger) MarkProcessed(id, title, status string, coverLetter bool) {
	delete(l.skipped, id)
	l.processed[id] = Entry{
		Identity:    id,
		Title:       title,
		Status:      status,
		CoverLetter: coverLetter,
		RecordedAt:  l.stamp(),
	}
	l.mutated()
}

// MarkSkipped records id as skipped for reason and removes any processed
// entry for it.
func (l *Ledger) MarkSkipped(id, title, reason string) {
	delete(l.processed, id)
	l.skipped[id] = Entry{
		Identity:   id,
		Title:      title,
		Status:     reason,
		RecordedAt: l.stamp(),
	}
	l.mutated()
}

// Forget drops id from both partitions so the next traversal acts on it
// again. It reports whether anything was removed.
func (l *Ledger) Forget(id string) bool {
	_, p := l.processed[id]
	_, s := l.skipped[id]
	if !p && !s {
		return false
	}
	delete(l.processed, id)
	delete(l.skipped, id)
	l.mutated()
	return true
}

// Get returns the entry for id and the partition it lives in.
func (l *Ledger) Get(id string) (Entry, Partition, bool) {
	if e, ok := l.processed[id]; ok {
		return e, Processed, true
	}
	if e, ok := l.skipped[id]; ok {
		return e, Skipped, true
	}
	return Entry{}, "", false
}

// Stats returns the number of entries in each partition.
func (l *Ledger) Stats() (processed, skipped int) {
	return len(l.processed), len(l.skipped)
}

// AppliedCount returns how many processed entries were actual submissions.
func (l *Ledger) AppliedCount() int {
	n := 0
	for _, e := range l.processed {
		if e.Status == StatusApplied {
			n++
		}
	}
	return n
}

// Entries returns a partition ordered by record time, oldest first.
func (l *Ledger) Entries(p Partition) []Entry {
	src := l.processed
	if p == Skipped {
		src = l.skipped
	}
	out := make([]Entry, 0, len(src))
	for _, e := range src {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

// Flush writes both partitions. Without force it only writes when the
// mutation counter has reached a multiple of the save interval. Both files
// are attempted even if the first write fails.
func (l *Ledger) Flush(force bool) error {
	if !force && (l.mutations == 0 || l.mutations%l.interval != 0) {
		return nil
	}

	errP := savePartition(l.processedPath, Processed, l.processed)
	errS := savePartition(l.skippedPath, Skipped, l.skipped)
	if errP != nil {
		return errP
	}
	if errS != nil {
		return errS
	}

	l.logger.Debug("💾 Ledger saved", "processed", len(l.processed), "skipped", len(l.skipped))
	return nil
}

func (l *Ledger) mutated() {
	l.mutations++
	if err := l.Flush(false); err != nil {
		l.logger.Warn("⚠️ Failed to save ledger, keeping in-memory state", "error", err)
	}
}

// stamp truncates to milliseconds so timestamps survive the JSON round trip.
func (l *Ledger) stamp() time.Time {
	return l.now().Truncate(time.Millisecond)
}
