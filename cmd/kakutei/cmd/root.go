// Package cmd provides CLI commands for kakutei.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shunichi-ikebuchi/kakutei/pkg/config"
	"github.com/shunichi-ikebuchi/kakutei/pkg/db"
	"github.com/shunichi-ikebuchi/kakutei/pkg/pathutil"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
	"github.com/shunichi-ikebuchi/kakutei/pkg/workbook"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kakutei",
	Short: "Compute Japanese personal income tax returns",
	Long: `kakutei computes the income tax return of a sole proprietor from
yearly workbooks of ledger entries, declared income, crypto trades and
deduction inputs.

It supports:
- Importing deals from freee into the yearly ledger
- Computing the return with the statutory tables of the fiscal year
- Moving-average crypto gains across years
- Keeping a history of computed returns in SQLite
- Serving the computation over HTTP

Example:
  kakutei import --year 2024
  kakutei compute --year 2024
  kakutei serve`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(getConfigFile())
		exitOnError(err, "failed to load configuration")

		logLevel := parseLogLevel(cfg.LogLevel)
		if debug || cfg.Debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(cryptoCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

// parseLogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// workspace bundles what most commands need.
type workspace struct {
	paths     *pathutil.PathResolver
	workbooks *workbook.FileSystemRepository
	assembler *taxreturn.Assembler
	book      *taxrule.Book
}

func openWorkspace() *workspace {
	if err := cfg.Validate("workbook.root"); err != nil {
		exitOnError(err, "invalid configuration")
	}

	paths := pathutil.New(pathutil.Config{
		Root:         cfg.Workbook.Root,
		DatabasePath: cfg.Workbook.DBPath,
	})

	book, err := taxrule.LoadBook(cfg.Workbook.RulesDir)
	exitOnError(err, "failed to load tax rules")
	slog.Debug("Loaded tax rules", "versions", len(book.Versions()), "dir", cfg.Workbook.RulesDir)

	return &workspace{
		paths:     paths,
		workbooks: workbook.NewFileSystemRepository(paths),
		assembler: taxreturn.New(book),
		book:      book,
	}
}

// openHistory opens the history database. The caller closes it.
func (ws *workspace) openHistory() (*db.Connection, *db.History) {
	dbPath := ws.paths.DatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	return conn, db.NewHistory(conn)
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
