package reporter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-hh-autoapply/internal/traversal"
)

func TestFormatSummary(t *testing.T) {
	s := traversal.CycleSummary{
		RunID: "5f0c2a9e-1111-2222-3333-444455556666",
		Cycle: 3,
		Stats: traversal.Stats{
			Pages:   4,
			Seen:    30,
			Applied: 5,
			Skipped: 7,
			Errored: 1,
		},
		Processed:    120,
		Skipped:      80,
		TotalApplied: 97,
		Duration:     95*time.Second + 400*time.Millisecond,
	}

	text := FormatSummary(s)

	assert.Contains(t, text, "<b>Cycle 3 finished</b> <code>5f0c2a9e</code>")
	assert.Contains(t, text, "✅ Applied: 5\n")
	assert.Contains(t, text, "⏭️ Skipped: 7\n")
	assert.Contains(t, text, "❌ Errors: 1\n")
	assert.Contains(t, text, "📁 Ledger: 120 processed (97 applied), 80 skipped")
	assert.Contains(t, text, "1m35s")
	assert.NotContains(t, text, "Already applied")
	assert.NotContains(t, text, "failed to load")
}

func TestFormatSummary_OptionalLines(t *testing.T) {
	text := FormatSummary(traversal.CycleSummary{
		Cycle: 1,
		Stats: traversal.Stats{AlreadyApplied: 2, FetchFailures: 1},
	})
	assert.Contains(t, text, "☑️ Already applied: 2")
	assert.Contains(t, text, "🌐 Pages failed to load: 1")
	assert.NotContains(t, text, "<code>")
}

func TestFormatError_EscapesHTML(t *testing.T) {
	text := FormatError(errors.New("authorization: <timeout> & retry"))
	assert.Contains(t, text, "<b>hh.ru bot stopped</b>")
	assert.Contains(t, text, "authorization: &lt;timeout&gt; &amp; retry")
}
