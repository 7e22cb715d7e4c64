package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/kakutei/pkg/report"
	"github.com/spf13/cobra"
)

var cryptoYear int

// cryptoCmd represents the crypto command.
var cryptoCmd = &cobra.Command{
	Use:   "crypto",
	Short: "Show realized crypto gains",
	Long: `Show realized crypto gains computed with the moving-average method.

Trades of every workbook up to the year are replayed so that holdings
carried from earlier years keep their cost basis. Only gains realized in
the year are reported.

Example:
  kakutei crypto --year 2024`,
	Run: runCrypto,
}

func init() {
	cryptoCmd.Flags().IntVar(&cryptoYear, "year", 0, "Fiscal year (required)")

	cryptoCmd.MarkFlagRequired("year")
}

func runCrypto(cmd *cobra.Command, args []string) {
	ws := openWorkspace()

	trades, err := ws.workbooks.TradesThrough(cryptoYear)
	exitOnError(err, "failed to collect crypto trades")
	slog.Debug("Collected crypto trades", "count", len(trades), "through", cryptoYear)

	result, err := ws.assembler.ComputeCryptoGainsForYear(trades, cryptoYear)
	exitOnError(err, "failed to compute crypto gains")

	fmt.Printf("%d年の暗号資産\n", cryptoYear)
	fmt.Print(report.FormatCrypto(result))
}
