// Package ledger defines the typed input records of the tax computation
// pipeline and validates them before any calculation runs.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// DateLayout is the format of every date field.
const DateLayout = "2006-01-02"

// EntryStatus is the review state of a ledger entry.
type EntryStatus string

const (
	StatusPending  EntryStatus = "pending"
	StatusApproved EntryStatus = "approved"
	StatusModified EntryStatus = "modified"
	StatusHeld     EntryStatus = "held"
	StatusExcluded EntryStatus = "excluded"
)

// Counts reports whether entries with this status participate in totals.
func (s EntryStatus) Counts() bool {
	return s == StatusApproved || s == StatusModified
}

func (s EntryStatus) valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusModified, StatusHeld, StatusExcluded:
		return true
	}
	return false
}

// LedgerEntry is a single dated money movement in yen.
// Negative amounts are revenue, positive amounts are expenses.
type LedgerEntry struct {
	ID          string           `json:"id" yaml:"id"`
	Date        string           `json:"date" yaml:"date"` // YYYY-MM-DD
	Amount      int64            `json:"amount" yaml:"amount"`
	Category    taxrule.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Status      EntryStatus      `json:"status" yaml:"status"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsRevenue reports whether the entry records revenue.
func (e LedgerEntry) IsRevenue() bool {
	return e.Amount < 0
}

// IncomeType is the statutory income category of an IncomeEntry.
type IncomeType string

const (
	IncomeBusiness      IncomeType = "business"
	IncomeSalary        IncomeType = "salary"
	IncomePension       IncomeType = "pension"
	IncomeMiscellaneous IncomeType = "miscellaneous"
)

// PensionKind distinguishes public and private pension payments.
type PensionKind string

const (
	PensionPublic    PensionKind = "public"
	PensionCorporate PensionKind = "corporate"
	PensionOther     PensionKind = "other"
)

// IncomeEntry is one declared non-ledger income event.
type IncomeEntry struct {
	ID          string      `json:"id" yaml:"id"`
	FiscalYear  int         `json:"fiscal_year" yaml:"fiscal_year"`
	Type        IncomeType  `json:"type" yaml:"type"`
	Payer       string      `json:"payer,omitempty" yaml:"payer,omitempty"`
	GrossAmount int64       `json:"gross_amount" yaml:"gross_amount"`
	WithheldTax int64       `json:"withheld_tax" yaml:"withheld_tax"`
	PensionKind PensionKind `json:"pension_kind,omitempty" yaml:"pension_kind,omitempty"`
	SalaryMonth int         `json:"salary_month,omitempty" yaml:"salary_month,omitempty"` // 1-12, 0 for annual
}

// TradeKind is the kind of a crypto transaction.
type TradeKind string

const (
	TradeBuy      TradeKind = "buy"
	TradeSell     TradeKind = "sell"
	TradeExchange TradeKind = "exchange"
	TradeReceive  TradeKind = "receive"
)

// Acquires reports whether the trade adds to the holding.
func (k TradeKind) Acquires() bool {
	return k == TradeBuy || k == TradeReceive
}

// CryptoTradeEntry is one crypto transaction. Amounts are in yen.
// ToCurrency and ToQuantity optionally record the asset received in an
// exchange.
type CryptoTradeEntry struct {
	ID          string          `json:"id" yaml:"id"`
	Date        string          `json:"date" yaml:"date"` // YYYY-MM-DD
	Kind        TradeKind       `json:"kind" yaml:"kind"`
	Currency    string          `json:"currency" yaml:"currency"`
	Quantity    decimal.Decimal `json:"quantity" yaml:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	Fee         decimal.Decimal `json:"fee" yaml:"fee"`
	ToCurrency  string          `json:"to_currency,omitempty" yaml:"to_currency,omitempty"`
	ToQuantity  decimal.Decimal `json:"to_quantity" yaml:"to_quantity,omitempty"`
}

// FilingType is the bookkeeping regime of the return.
type FilingType string

const (
	FilingWhite       FilingType = "white"
	FilingBlueSimple  FilingType = "blue_simple"
	FilingBlueRegular FilingType = "blue_regular"
	FilingBlueETax    FilingType = "blue_etax"
)

func (f FilingType) valid() bool {
	switch f {
	case FilingWhite, FilingBlueSimple, FilingBlueRegular, FilingBlueETax:
		return true
	}
	return false
}

// BusinessProfile is the per-fiscal-year filing configuration.
// HomeOfficeRatios maps an apportion key (see taxrule.CategoryRule) to the
// business-use share in [0, 1].
type BusinessProfile struct {
	FiscalYear       int                        `json:"fiscal_year" yaml:"fiscal_year"`
	FilingType       FilingType                 `json:"filing_type" yaml:"filing_type"`
	DateOfBirth      string                     `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	HomeOfficeRatios map[string]decimal.Decimal `json:"home_office_ratios,omitempty" yaml:"home_office_ratios,omitempty"`
}

// DeductionInputs are the user-declared personal deduction amounts in yen.
type DeductionInputs struct {
	SocialInsurance  int64 `json:"social_insurance" yaml:"social_insurance"`
	LifeInsurance    int64 `json:"life_insurance" yaml:"life_insurance"`
	MedicalInsurance int64 `json:"medical_insurance" yaml:"medical_insurance"`
	PensionInsurance int64 `json:"pension_insurance" yaml:"pension_insurance"`
	Spousal          int64 `json:"spousal" yaml:"spousal"`
	Dependent        int64 `json:"dependent" yaml:"dependent"`
	Medical          int64 `json:"medical" yaml:"medical"`
	Donation         int64 `json:"donation" yaml:"donation"`
}
