package traversal

import (
	"fmt"
	"time"
)

// Stats is a running tally. The same shape is used per page, per query,
// per cycle and for the whole run.
type Stats struct {
	Pages          int
	Seen           int
	Discarded      int
	Attempted      int
	Applied        int
	AlreadyApplied int
	Skipped        int
	Errored        int
	FetchFailures  int
}

func (s *Stats) Add(o Stats) {
	s.Pages += o.Pages
	s.Seen += o.Seen
	s.Discarded += o.Discarded
	s.Attempted += o.Attempted
	s.Applied += o.Applied
	s.AlreadyApplied += o.AlreadyApplied
	s.Skipped += o.Skipped
	s.Errored += o.Errored
	s.FetchFailures += o.FetchFailures
}

func (s Stats) String() string {
	return fmt.Sprintf("pages=%d seen=%d attempted=%d applied=%d already=%d skipped=%d errors=%d",
		s.Pages, s.Seen, s.Attempted, s.Applied, s.AlreadyApplied, s.Skipped, s.Errored)
}

// CycleSummary is handed to the Reporter after each cycle.
type CycleSummary struct {
	RunID        string
	Cycle        int
	Stats        Stats
	Processed    int
	Skipped      int
	TotalApplied int
	Duration     time.Duration
}
