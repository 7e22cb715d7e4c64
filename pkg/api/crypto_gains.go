package api

import (
	"encoding/json"
	"net/http"

	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
)

// CryptoGainsHandler handles the crypto gain endpoint.
type CryptoGainsHandler struct {
	assembler *taxreturn.Assembler
}

// NewCryptoGainsHandler creates a new CryptoGainsHandler.
func NewCryptoGainsHandler(assembler *taxreturn.Assembler) *CryptoGainsHandler {
	return &CryptoGainsHandler{assembler: assembler}
}

// CryptoGainsRequest is the body of POST /api/1/crypto_gains.
// With FiscalYear set, only gains realized in that year are counted.
type CryptoGainsRequest struct {
	FiscalYear int                       `json:"fiscal_year,omitempty"`
	Trades     []ledger.CryptoTradeEntry `json:"trades"`
}

// CryptoGainsResponse represents the response for POST /api/1/crypto_gains
type CryptoGainsResponse struct {
	CryptoGains *cryptogain.Result `json:"crypto_gains"`
}

// Compute handles POST /api/1/crypto_gains.
func (h *CryptoGainsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req CryptoGainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	var (
		result *cryptogain.Result
		err    error
	)
	if req.FiscalYear != 0 {
		result, err = h.assembler.ComputeCryptoGainsForYear(req.Trades, req.FiscalYear)
	} else {
		result, err = h.assembler.ComputeCryptoGains(req.Trades)
	}
	if err != nil {
		writeComputeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CryptoGainsResponse{CryptoGains: result})
}
