package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shunichi-ikebuchi/kakutei/pkg/db"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
)

// TaxReturnsHandler handles tax return endpoints.
type TaxReturnsHandler struct {
	assembler *taxreturn.Assembler
	store     ReturnStore
}

// NewTaxReturnsHandler creates a new TaxReturnsHandler.
func NewTaxReturnsHandler(assembler *taxreturn.Assembler, store ReturnStore) *TaxReturnsHandler {
	return &TaxReturnsHandler{assembler: assembler, store: store}
}

// TaxReturnResponse is a computed or stored return.
// ID and ComputedAt are empty when the return was not recorded.
type TaxReturnResponse struct {
	ID         string            `json:"id,omitempty"`
	ComputedAt *time.Time        `json:"computed_at,omitempty"`
	TaxReturn  *taxreturn.Result `json:"tax_return"`
}

// TaxReturnsListResponse represents the response for GET /api/1/tax_returns
type TaxReturnsListResponse struct {
	TaxReturns []TaxReturnResponse `json:"tax_returns"`
}

// Compute handles POST /api/1/tax_returns/compute.
func (h *TaxReturnsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var in taxreturn.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if in.FiscalYear == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing fiscal_year")
		return
	}

	result, err := h.assembler.Compute(in)
	if err != nil {
		writeComputeError(w, r, err)
		return
	}

	response := TaxReturnResponse{TaxReturn: result}
	if h.store != nil {
		record, err := h.store.RecordReturn(result)
		if err != nil {
			slog.Error("failed to record return", "error", err, "fiscal_year", in.FiscalYear)
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to record return")
			return
		}
		response.ID = record.ID
		response.ComputedAt = &record.ComputedAt
	}

	writeJSON(w, http.StatusOK, response)
}

// List handles GET /api/1/tax_returns.
func (h *TaxReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	year := 0
	if s := r.URL.Query().Get("fiscal_year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid fiscal_year")
			return
		}
		year = y
	}

	records, err := h.store.ReturnsByYear(year)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to list returns")
		return
	}

	response := TaxReturnsListResponse{TaxReturns: []TaxReturnResponse{}}
	for _, record := range records {
		item, err := toResponse(record)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to decode return")
			return
		}
		response.TaxReturns = append(response.TaxReturns, item)
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/1/tax_returns/{id}.
func (h *TaxReturnsHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetReturn(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to get return")
		return
	}
	if record == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Tax return not found")
		return
	}

	item, err := toResponse(*record)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to decode return")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func toResponse(record db.ReturnRecord) (TaxReturnResponse, error) {
	result, err := record.Result()
	if err != nil {
		return TaxReturnResponse{}, err
	}
	computedAt := record.ComputedAt
	return TaxReturnResponse{ID: record.ID, ComputedAt: &computedAt, TaxReturn: result}, nil
}
