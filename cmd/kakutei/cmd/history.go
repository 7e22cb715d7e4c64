package cmd

import (
	"fmt"

	"github.com/shunichi-ikebuchi/kakutei/pkg/report"
	"github.com/spf13/cobra"
)

var historyYear int

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List computed tax returns",
	Long: `List tax returns recorded by previous compute runs, newest first.

Example:
  kakutei history
  kakutei history --year 2024`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyYear, "year", 0, "Only show this fiscal year")
}

func runHistory(cmd *cobra.Command, args []string) {
	ws := openWorkspace()

	conn, history := ws.openHistory()
	defer conn.Close()

	records, err := history.ReturnsByYear(historyYear)
	exitOnError(err, "failed to list returns")

	if len(records) == 0 {
		fmt.Println("No computed returns")
		return
	}

	fmt.Printf("%-36s  %-4s  %-3s  %-12s  %16s  %16s  %s\n",
		"ID", "YEAR", "VER", "FILING", "TOTAL TAX", "FINAL", "COMPUTED AT")
	for _, r := range records {
		fmt.Printf("%-36s  %-4d  %-3s  %-12s  %16s  %16s  %s\n",
			r.ID,
			r.FiscalYear,
			r.RuleVersion,
			r.FilingType,
			report.Yen(r.TotalTax),
			report.Yen(r.FinalAmount),
			r.ComputedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
}
