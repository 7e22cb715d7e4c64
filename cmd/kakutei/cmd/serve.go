package cmd

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shunichi-ikebuchi/kakutei/pkg/api"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveNoRecord bool
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tax computation over HTTP",
	Long: `Serve the tax computation as a JSON API.

Endpoints:
  POST /api/1/tax_returns/compute   compute a return from posted inputs
  GET  /api/1/tax_returns           list recorded returns (?fiscal_year=)
  GET  /api/1/tax_returns/{id}      get a recorded return
  POST /api/1/crypto_gains          compute crypto gains from posted trades
  GET  /health

Example:
  kakutei serve --addr :8080`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default is HTTP_ADDR or :8080)")
	serveCmd.Flags().BoolVar(&serveNoRecord, "no-record", false, "Do not record computed returns")
}

func runServe(cmd *cobra.Command, args []string) {
	ws := openWorkspace()

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	var store api.ReturnStore
	if !serveNoRecord {
		conn, history := ws.openHistory()
		defer func() {
			if err := conn.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
		store = history
		slog.Info("database initialized", "db_path", conn.Path())
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(ws.assembler, store),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting kakutei API server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		exitOnError(err, "server error")
	}

	slog.Info("server stopped")
}
