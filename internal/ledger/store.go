package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// record is the on-disk shape of one entry. Processed entries carry status
// and cover_letter, skipped entries carry reason.
type record struct {
	Title       string  `json:"title"`
	Status      string  `json:"status,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	CoverLetter *bool   `json:"cover_letter,omitempty"`
	Timestamp   float64 `json:"timestamp"`
}

func toRecord(p Partition, e Entry) record {
	r := record{
		Title:     e.Title,
		Timestamp: float64(e.RecordedAt.UnixMilli()) / 1000,
	}
	if p == Processed {
		cl := e.CoverLetter
		r.Status = e.Status
		r.CoverLetter = &cl
	} else {
		r.Reason = e.Status
	}
	return r
}

func fromRecord(p Partition, id string, r record) Entry {
	e := Entry{
		Identity:   id,
		Title:      r.Title,
		RecordedAt: time.UnixMilli(int64(math.Round(r.Timestamp * 1000))),
	}
	if p == Processed {
		e.Status = r.Status
		if r.CoverLetter != nil {
			e.CoverLetter = *r.CoverLetter
		}
	} else {
		e.Status = r.Reason
	}
	return e
}

// loadPartition reads a partition document. Any failure yields an empty map:
// the file is hand-editable and a bad edit must not stop the bot.
func loadPartition(path string, p Partition, logger *slog.Logger) map[string]Entry {
	entries := make(map[string]Entry)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("⚠️ Failed to read ledger file", "partition", p, "path", path, "error", err)
		}
		return entries
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("⚠️ Failed to parse ledger file, starting empty", "partition", p, "path", path, "error", err)
		return entries
	}

	dropped := 0
	for id, msg := range raw {
		var r record
		if id == "" || json.Unmarshal(msg, &r) != nil {
			dropped++
			continue
		}
		entries[id] = fromRecord(p, id, r)
	}
	if dropped > 0 {
		logger.Warn("⚠️ Ignored malformed ledger entries", "partition", p, "count", dropped)
	}
	return entries
}

// savePartition writes the document next to its destination and renames it
// into place, so a crash mid-write leaves the previous version intact.
func savePartition(path string, p Partition, entries map[string]Entry) error {
	doc := make(map[string]record, len(entries))
	for id, e := range entries {
		doc[id] = toRecord(p, e)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshal %s ledger: %w", p, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s ledger: %w", p, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s ledger: %w", p, err)
	}
	return nil
}
