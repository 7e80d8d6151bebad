package models

import (
	"time"
)

type Partition string

const (
	PartitionProcessed Partition = "processed"
	PartitionSkipped   Partition = "skipped"
)

// VacancyOutcome is one ledger entry as stored in PostgreSQL.
type VacancyOutcome struct {
	Identity    string    `json:"identity"`
	Partition   Partition `json:"partition"`
	Title       string    `json:"title"`
	Status      string    `json:"status"` // status or skip reason
	CoverLetter bool      `json:"cover_letter"`
	RecordedAt  time.Time `json:"recorded_at"`
	RunID       string    `json:"run_id"`
	ExportedAt  time.Time `json:"exported_at"`
}
