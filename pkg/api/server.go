// Package api exposes the tax computation over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/db"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// ReturnStore persists computed returns. *db.History implements it.
type ReturnStore interface {
	RecordReturn(result *taxreturn.Result) (*db.ReturnRecord, error)
	GetReturn(id string) (*db.ReturnRecord, error)
	ReturnsByYear(year int) ([]db.ReturnRecord, error)
}

// NewRouter builds the HTTP handler. store may be nil, in which case
// computed returns are not recorded and history endpoints are absent.
func NewRouter(assembler *taxreturn.Assembler, store ReturnStore) http.Handler {
	returns := NewTaxReturnsHandler(assembler, store)
	crypto := NewCryptoGainsHandler(assembler)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/1", func(r chi.Router) {
		r.Route("/tax_returns", func(r chi.Router) {
			r.Post("/compute", returns.Compute)
			if store != nil {
				r.Get("/", returns.List)
				r.Get("/{id}", returns.Get)
			}
		})
		r.Post("/crypto_gains", crypto.Compute)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, error, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            error,
		ErrorDescription: description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeComputeError maps calculation errors to HTTP statuses. Bad input is
// 422, broken rule tables are 500.
func writeComputeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *ledger.InvalidEntryError
	var negative *cryptogain.NegativeHoldingsError
	var config *taxrule.ConfigurationError

	switch {
	case errors.As(err, &invalid):
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid_entry", err.Error())
	case errors.As(err, &negative):
		writeJSONError(w, http.StatusUnprocessableEntity, "negative_holdings", err.Error())
	case errors.As(err, &config):
		slog.Error("tax rule configuration error", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "configuration_error", err.Error())
	default:
		slog.Error("computation failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to compute")
	}
}
