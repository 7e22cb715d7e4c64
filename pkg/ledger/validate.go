package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvalidEntryError is returned when an input record violates a structural
// invariant. Kind names the record type and Index its position in the input.
type InvalidEntryError struct {
	Kind   string
	Index  int
	ID     string
	Field  string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invalid %s %q (index %d): %s %s", e.Kind, e.ID, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s (index %d): %s %s", e.Kind, e.Index, e.Field, e.Reason)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ValidateLedger checks every ledger entry.
func ValidateLedger(entries []LedgerEntry) error {
	for i, e := range entries {
		invalid := func(field, reason string) error {
			return &InvalidEntryError{Kind: "ledger entry", Index: i, ID: e.ID, Field: field, Reason: reason}
		}

		if _, err := ParseDate(e.Date); err != nil {
			return invalid("date", fmt.Sprintf("must be YYYY-MM-DD, got %q", e.Date))
		}
		if !e.Status.valid() {
			return invalid("status", fmt.Sprintf("is unknown: %q", e.Status))
		}
		if e.Category != "" && !e.Category.Valid() {
			return invalid("category", fmt.Sprintf("is unknown: %q", e.Category))
		}
	}
	return nil
}

// ValidateIncome checks every income entry.
func ValidateIncome(entries []IncomeEntry) error {
	for i, e := range entries {
		invalid := func(field, reason string) error {
			return &InvalidEntryError{Kind: "income entry", Index: i, ID: e.ID, Field: field, Reason: reason}
		}

		switch e.Type {
		case IncomeBusiness, IncomeSalary, IncomePension, IncomeMiscellaneous:
		default:
			return invalid("type", fmt.Sprintf("is unknown: %q", e.Type))
		}
		if e.GrossAmount < 0 {
			return invalid("gross_amount", "must not be negative")
		}
		if e.WithheldTax < 0 {
			return invalid("withheld_tax", "must not be negative")
		}
		if e.SalaryMonth < 0 || e.SalaryMonth > 12 {
			return invalid("salary_month", "must be between 1 and 12")
		}
		switch e.PensionKind {
		case "", PensionPublic, PensionCorporate, PensionOther:
		default:
			return invalid("pension_kind", fmt.Sprintf("is unknown: %q", e.PensionKind))
		}
	}
	return nil
}

// ValidateTrades checks every crypto trade.
func ValidateTrades(trades []CryptoTradeEntry) error {
	for i, t := range trades {
		invalid := func(field, reason string) error {
			return &InvalidEntryError{Kind: "crypto trade", Index: i, ID: t.ID, Field: field, Reason: reason}
		}

		if _, err := ParseDate(t.Date); err != nil {
			return invalid("date", fmt.Sprintf("must be YYYY-MM-DD, got %q", t.Date))
		}
		switch t.Kind {
		case TradeBuy, TradeSell, TradeExchange, TradeReceive:
		default:
			return invalid("kind", fmt.Sprintf("is unknown: %q", t.Kind))
		}
		if t.Currency == "" {
			return invalid("currency", "is required")
		}
		if !t.Quantity.IsPositive() {
			return invalid("quantity", "must be positive")
		}
		if !t.TotalAmount.IsPositive() {
			return invalid("total_amount", "must be positive")
		}
		if t.Fee.IsNegative() {
			return invalid("fee", "must not be negative")
		}
		if t.UnitPrice.IsNegative() {
			return invalid("unit_price", "must not be negative")
		}
		if t.ToCurrency != "" {
			if t.Kind != TradeExchange {
				return invalid("to_currency", "is only allowed on exchange")
			}
			if t.ToCurrency == t.Currency {
				return invalid("to_currency", "must differ from currency")
			}
			if !t.ToQuantity.IsPositive() {
				return invalid("to_quantity", "must be positive")
			}
		}
	}
	return nil
}

// ValidateProfile checks the business profile.
func ValidateProfile(p BusinessProfile) error {
	invalid := func(field, reason string) error {
		return &InvalidEntryError{Kind: "business profile", Field: field, Reason: reason}
	}

	if !p.FilingType.valid() {
		return invalid("filing_type", fmt.Sprintf("is unknown: %q", p.FilingType))
	}
	if p.DateOfBirth != "" {
		if _, err := ParseDate(p.DateOfBirth); err != nil {
			return invalid("date_of_birth", fmt.Sprintf("must be YYYY-MM-DD, got %q", p.DateOfBirth))
		}
	}
	one := decimal.NewFromInt(1)
	for key, ratio := range p.HomeOfficeRatios {
		if ratio.IsNegative() || ratio.GreaterThan(one) {
			return invalid("home_office_ratios", fmt.Sprintf("%s must be between 0 and 1", key))
		}
	}
	return nil
}

// ValidateDeductions checks that no deduction input is negative.
func ValidateDeductions(d DeductionInputs) error {
	fields := []struct {
		name  string
		value int64
	}{
		{"social_insurance", d.SocialInsurance},
		{"life_insurance", d.LifeInsurance},
		{"medical_insurance", d.MedicalInsurance},
		{"pension_insurance", d.PensionInsurance},
		{"spousal", d.Spousal},
		{"dependent", d.Dependent},
		{"medical", d.Medical},
		{"donation", d.Donation},
	}
	for _, f := range fields {
		if f.value < 0 {
			return &InvalidEntryError{Kind: "deduction inputs", Field: f.name, Reason: "must not be negative"}
		}
	}
	return nil
}
