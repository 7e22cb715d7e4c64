package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/shunichi-ikebuchi/kakutei/pkg/db"
	"github.com/shunichi-ikebuchi/kakutei/pkg/freee"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/workbook"
	"github.com/spf13/cobra"
)

var (
	importYear int
	dryRun     bool
	reimport   []int64
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import freee deals into the ledger",
	Long: `Import deals of a fiscal year from freee Accounting API into the
ledger of the year's workbook.

This command:
1. Fetches deals issued in the year from freee
2. Filters out already imported deals
3. Converts deal lines to ledger entries, mapping account items to categories
4. Appends them to the workbook
5. Records import history in SQLite

Lines whose account item has no category mapping are imported as pending
and must be reviewed before they count.

--reimport takes deal IDs that were edited in freee after import: their
ledger entries and import records are removed and the deals are imported
again.

Example:
  kakutei import --year 2024
  kakutei import --year 2024 --dry-run
  kakutei import --year 2024 --reimport 1234,5678`,
	Run: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importYear, "year", 0, "Fiscal year (required)")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no file writes)")
	importCmd.Flags().Int64SliceVar(&reimport, "reimport", nil, "freee deal IDs to import again")

	importCmd.MarkFlagRequired("year")
}

func runImport(cmd *cobra.Command, args []string) {
	slog.Info("Starting import", "fiscal_year", importYear, "dry_run", dryRun)

	if err := cfg.Validate("freee.apiUrl", "freee.accessToken", "freee.companyId"); err != nil {
		exitOnError(err, "invalid configuration")
	}

	ws := openWorkspace()

	rules, err := ws.book.ForYear(importYear)
	exitOnError(err, "failed to select tax rules")

	conn, history := ws.openHistory()
	defer conn.Close()

	client := freee.NewClient(freee.ClientConfig{
		APIURL:      cfg.Freee.APIURL,
		AccessToken: cfg.Freee.AccessToken,
		CompanyID:   cfg.Freee.CompanyID,
		Timeout:     30 * time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("Fetching deals from freee", "fiscal_year", importYear)
	allDeals, err := client.FetchYear(ctx, importYear)
	exitOnError(err, "failed to fetch deals")
	slog.Info("Fetched deals", "count", len(allDeals))

	if len(reimport) > 0 && !dryRun {
		removed, err := reimportDeals(ws.workbooks, history, importYear, reimport)
		exitOnError(err, "failed to reset deals for reimport")
		slog.Info("Reset deals for reimport", "deals", len(reimport), "entries_removed", removed)
	}

	importedIDs, err := history.ImportedIDs()
	exitOnError(err, "failed to get imported deal IDs")
	if dryRun {
		importedIDs = withoutIDs(importedIDs, reimport)
	}

	newDeals := filterDeals(allDeals, importedIDs)
	slog.Info("New deals to import",
		"new_deals", len(newDeals),
		"skipped_deals", len(allDeals)-len(newDeals),
	)

	if len(newDeals) == 0 {
		fmt.Println("No new deals to import")
		return
	}

	workbookPath, err := ws.paths.WorkbookPath(importYear)
	exitOnError(err, "failed to get workbook path")

	var entries []ledger.LedgerEntry
	records := make([]db.ImportRecord, 0, len(newDeals))
	for _, deal := range newDeals {
		dealEntries := freee.ToLedgerEntries([]freee.Deal{deal}, rules)
		entries = append(entries, dealEntries...)
		records = append(records, db.ImportRecord{
			FreeeID:      deal.ID,
			FiscalYear:   importYear,
			IssueDate:    deal.IssueDate,
			Amount:       deal.Amount,
			Entries:      len(dealEntries),
			WorkbookFile: workbookPath,
		})
	}

	pending := 0
	for _, e := range entries {
		if e.Status == ledger.StatusPending {
			pending++
		}
	}

	if dryRun {
		fmt.Printf("[DRY RUN] Would append %d entries to %s\n", len(entries), workbookPath)
		for _, e := range entries {
			category := string(e.Category)
			if category == "" {
				category = "(unmapped)"
			}
			fmt.Printf("  %s  %-10s %12d  %-20s %s\n", e.Date, e.Status, e.Amount, category, e.Description)
		}
		return
	}

	added, err := ws.workbooks.AppendLedgerEntries(importYear, entries)
	exitOnError(err, "failed to append ledger entries")

	exitOnError(history.RecordImports(records), "failed to record import history")

	fmt.Printf("Imported %d deals (%d ledger entries, %d pending review) into %s\n",
		len(newDeals), added, pending, workbookPath)

	slog.Info("Import completed",
		"new_deals", len(newDeals),
		"entries_added", added,
		"pending", pending,
	)
}

// reimportDeals removes the ledger entries and import records of the deals so
// the next fetch imports them again. Returns the number of entries removed.
func reimportDeals(workbooks workbook.Repository, history *db.History, year int, dealIDs []int64) (int, error) {
	removed, err := workbooks.RemoveLedgerEntries(year, func(e ledger.LedgerEntry) bool {
		for _, id := range dealIDs {
			if freee.IsEntryOf(e.ID, id) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return 0, err
	}

	for _, id := range dealIDs {
		deleted, err := history.DeleteImport(id)
		if err != nil {
			return removed, err
		}
		if !deleted {
			slog.Warn("Deal was not imported before", "deal_id", id)
		}
	}
	return removed, nil
}

func withoutIDs(ids, drop []int64) []int64 {
	dropped := make(map[int64]bool, len(drop))
	for _, id := range drop {
		dropped[id] = true
	}

	var result []int64
	for _, id := range ids {
		if !dropped[id] {
			result = append(result, id)
		}
	}
	return result
}

func filterDeals(deals []freee.Deal, importedIDs []int64) []freee.Deal {
	importedIDMap := make(map[int64]bool)
	for _, id := range importedIDs {
		importedIDMap[id] = true
	}

	var result []freee.Deal
	for _, deal := range deals {
		if !importedIDMap[deal.ID] {
			result = append(result, deal)
		}
	}
	return result
}
