package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-hh-autoapply/internal/database"
	"go-hh-autoapply/internal/ledger"
	"go-hh-autoapply/internal/models"
)

const recentEntries = 5

func newLedgerCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain the processed/skipped ledger",
	}
	cmd.AddCommand(newLedgerStatsCmd(root), newLedgerForgetCmd(root), newLedgerExportCmd(root))
	return cmd
}

type ledgerEnv struct {
	ledger *ledger.Ledger
	logger *slog.Logger
	dbURL  string
}

func openLedger(root *rootOptions, w io.Writer) (*ledgerEnv, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	logger := initLogger(w, cfg.Debug)
	return &ledgerEnv{
		ledger: ledger.Open(cfg.ProcessedFile, cfg.SkippedFile, cfg.SaveInterval, logger),
		logger: logger,
		dbURL:  cfg.Database.URL,
	}, nil
}

func newLedgerStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger counts, skip reasons and the latest entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openLedger(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), env.ledger)
			return nil
		},
	}
}

func printStats(w io.Writer, l *ledger.Ledger) {
	processed, skipped := l.Stats()
	fmt.Fprintf(w, "📁 Processed: %d (applied: %d)\n", processed, l.AppliedCount())
	fmt.Fprintf(w, "📁 Skipped:   %d\n", skipped)

	reasons := make(map[string]int)
	for _, e := range l.Entries(ledger.Skipped) {
		reasons[e.Status]++
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if reasons[keys[i]] == reasons[keys[j]] {
			return keys[i] < keys[j]
		}
		return reasons[keys[i]] > reasons[keys[j]]
	})
	for _, k := range keys {
		fmt.Fprintf(w, "   %-28s %d\n", k, reasons[k])
	}

	latest := l.Entries(ledger.Processed)
	if len(latest) > recentEntries {
		latest = latest[len(latest)-recentEntries:]
	}
	if len(latest) > 0 {
		fmt.Fprintln(w, "🕒 Latest processed:")
	}
	for i := len(latest) - 1; i >= 0; i-- {
		e := latest[i]
		fmt.Fprintf(w, "   %s  %-16s %-16s %s\n", e.RecordedAt.Format(time.DateTime), e.Identity, e.Status, e.Title)
	}
}

func newLedgerForgetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <identity>...",
		Short: "Remove identities from the ledger so the next run retries them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openLedger(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			l := env.ledger
			removed := 0
			for _, id := range args {
				if l.Forget(id) {
					removed++
					fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Forgot %s\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "   %s is not in the ledger\n", id)
				}
			}
			if removed == 0 {
				return nil
			}
			return l.Flush(true)
		},
	}
}

func newLedgerExportCmd(root *rootOptions) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upsert the ledger into PostgreSQL (vacancy_outcomes table)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openLedger(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("db-url") {
				dbURL = env.dbURL
			}
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable, database.url or --db-url is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			repo, err := database.ConnectDB(ctx, dbURL)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}

			outcomes := ledgerOutcomes(env.ledger, uuid.NewString())
			n, err := repo.UpsertOutcomes(ctx, outcomes)
			if err != nil {
				return err
			}
			env.logger.Info("✅ Ledger exported", "entries", len(outcomes), "written", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries (%d rows changed)\n", len(outcomes), n)

			counts, err := repo.CountByStatus(ctx)
			if err != nil {
				return err
			}
			printTableCounts(cmd.OutOrStdout(), counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	return cmd
}

// printTableCounts lists the vacancy_outcomes rows per partition:status key.
func printTableCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "🗄️ vacancy_outcomes: %d rows\n", total)
	for _, k := range keys {
		fmt.Fprintf(w, "   %-40s %d\n", k, counts[k])
	}
}

func ledgerOutcomes(l *ledger.Ledger, runID string) []models.VacancyOutcome {
	var out []models.VacancyOutcome
	add := func(p ledger.Partition, mp models.Partition) {
		for _, e := range l.Entries(p) {
			out = append(out, models.VacancyOutcome{
				Identity:    e.Identity,
				Partition:   mp,
				Title:       e.Title,
				Status:      e.Status,
				CoverLetter: e.CoverLetter,
				RecordedAt:  e.RecordedAt,
				RunID:       runID,
			})
		}
	}
	add(ledger.Processed, models.PartitionProcessed)
	add(ledger.Skipped, models.PartitionSkipped)
	return out
}
