package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display history statistics",
	Long: `Display statistics about imported deals and computed returns.

Shows:
- Total number of imported deals
- Total number of computed returns and fiscal years covered
- Last import and computation timestamps
- Fiscal years that have a workbook

Example:
  kakutei stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	ws := openWorkspace()

	conn, history := ws.openHistory()
	defer conn.Close()

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	years, err := ws.workbooks.Years()
	exitOnError(err, "failed to list workbooks")

	fmt.Println("\n=== History Statistics ===")
	fmt.Printf("Workbooks:             %v\n", years)
	fmt.Printf("Imported deals:        %d\n", stats.TotalImports)
	fmt.Printf("Computed returns:      %d (%d fiscal years)\n", stats.TotalReturns, stats.FiscalYears)

	if stats.LastImport.Valid {
		fmt.Printf("Last import:           %s\n", stats.LastImport.String)
	} else {
		fmt.Printf("Last import:           (never)\n")
	}
	if stats.LastComputed.Valid {
		fmt.Printf("Last computation:      %s\n", stats.LastComputed.String)
	} else {
		fmt.Printf("Last computation:      (never)\n")
	}

	fmt.Println()

	slog.Debug("Statistics displayed")
}
