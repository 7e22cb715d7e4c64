package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shunichi-ikebuchi/kakutei/pkg/report"
	"github.com/shunichi-ikebuchi/kakutei/pkg/workbook"
	"github.com/spf13/cobra"
)

var (
	computeYear int
	noRecord    bool
	jsonOutput  bool
)

// computeCmd represents the compute command.
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the tax return of a fiscal year",
	Long: `Compute the income tax return of a fiscal year from its workbook.

This command:
1. Loads the workbook of the year
2. Collects crypto trades of every earlier workbook for the cost basis
3. Computes income, deductions and tax with the year's rule tables
4. Prints the return
5. Records the result in the history database

Example:
  kakutei compute --year 2024
  kakutei compute --year 2024 --json --no-record`,
	Run: runCompute,
}

func init() {
	computeCmd.Flags().IntVar(&computeYear, "year", 0, "Fiscal year (required)")
	computeCmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the result in history")
	computeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	computeCmd.MarkFlagRequired("year")
}

func runCompute(cmd *cobra.Command, args []string) {
	slog.Info("Computing tax return", "fiscal_year", computeYear)

	ws := openWorkspace()

	wb, err := ws.workbooks.Load(computeYear)
	if errors.Is(err, workbook.ErrNotFound) {
		path, _ := ws.paths.WorkbookPath(computeYear)
		exitOnError(err, fmt.Sprintf("no workbook for %d, create %s first", computeYear, path))
	}
	exitOnError(err, "failed to load workbook")

	trades, err := ws.workbooks.TradesThrough(computeYear)
	exitOnError(err, "failed to collect crypto trades")
	slog.Debug("Loaded workbook",
		"ledger_entries", len(wb.Ledger),
		"income_entries", len(wb.Income),
		"crypto_trades", len(trades),
	)

	result, err := ws.assembler.Compute(wb.Input(trades))
	exitOnError(err, "failed to compute tax return")

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		exitOnError(enc.Encode(result), "failed to encode result")
	} else {
		fmt.Print(report.FormatReturn(result))
	}

	if noRecord {
		return
	}

	conn, history := ws.openHistory()
	defer conn.Close()

	record, err := history.RecordReturn(result)
	exitOnError(err, "failed to record return")

	slog.Info("Tax return computed",
		"id", record.ID,
		"rule_version", result.RuleVersion,
		"total_tax", result.Tax.TotalTax,
		"final_amount", result.Tax.FinalAmount,
	)
}
