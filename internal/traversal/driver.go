package traversal

import (
	"context"

	"go-hh-autoapply/internal/config"
)

// Handle is an opaque reference to one vacancy card on the current result
// page. Only the driver that produced it knows what is inside.
type Handle any

// ApplyRequest carries what the driver needs to fill the application dialog.
type ApplyRequest struct {
	Title       string
	ResumeRules []config.ResumeRule
	CoverLetter string
}

// PageDriver is the browser side of the traversal. Implementations own a
// single page and are called from one goroutine only.
type PageDriver interface {
	//FetchResultPage opens page (1-based) of the query results and returns its cards
	FetchResultPage(ctx context.Context, q config.SearchQuery, page int) ([]Handle, error)

	//ResolveIdentity returns the dedup key of a card
	ResolveIdentity(h Handle) (string, bool)

	//ResolveTitle returns the card title, empty when it cannot be read
	ResolveTitle(h Handle) string

	//AttemptAction runs the whole application flow for one card
	AttemptAction(ctx context.Context, h Handle, req ApplyRequest) (Attempt, error)

	//HasNextPage reports whether the results continue after current
	HasNextPage(ctx context.Context, current int) bool
}

// Ledger is the subset of the outcome ledger the engine writes to.
type Ledger interface {
	IsKnown(id string) bool
	MarkProcessed(id, title, status string, coverLetter bool)
	MarkSkipped(id, title, reason string)
	Flush(force bool) error
	Stats() (processed, skipped int)
	AppliedCount() int
}

// Reporter receives a summary after every finished cycle.
type Reporter interface {
	CycleFinished(ctx context.Context, s CycleSummary) error
}
