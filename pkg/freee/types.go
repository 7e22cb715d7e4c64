// Package freee provides a freee Accounting API client for importing deals
// into the ledger.
package freee

import "time"

// Deal types as returned by freee.
const (
	DealIncome  = "income"
	DealExpense = "expense"
)

// Deal represents a transaction in freee accounting API.
type Deal struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	IssueDate   string    `json:"issue_date"` // YYYY-MM-DD
	Type        string    `json:"type"`       // income or expense
	Details     []Detail  `json:"details"`
	Amount      int64     `json:"amount"`
	RefNumber   *string   `json:"ref_number,omitempty"`
	PartnerCode *string   `json:"partner_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Detail represents a line item in a deal.
type Detail struct {
	ID              int64   `json:"id"`
	AccountItemID   int64   `json:"account_item_id"`
	AccountItemName string  `json:"account_item_name"`
	TaxCode         int     `json:"tax_code"`
	Amount          int64   `json:"amount"`
	Vat             int64   `json:"vat"`
	Description     *string `json:"description,omitempty"`
}

// DealsResponse represents the response from /api/1/deals endpoint.
type DealsResponse struct {
	Deals []Deal `json:"deals"`
}

// ErrorResponse represents an error response from freee API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
