// Package taxreturn sequences the calculation steps for one fiscal year into
// a complete return.
package taxreturn

import (
	"fmt"

	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/deduction"
	"github.com/shunichi-ikebuchi/kakutei/pkg/income"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxcalc"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// Input is everything a return is computed from.
// Trades may include earlier years; they build the cost basis only.
type Input struct {
	FiscalYear int                       `json:"fiscal_year"`
	Ledger     []ledger.LedgerEntry      `json:"ledger"`
	Income     []ledger.IncomeEntry      `json:"income"`
	Trades     []ledger.CryptoTradeEntry `json:"crypto_trades"`
	Profile    ledger.BusinessProfile    `json:"profile"`
	Deductions ledger.DeductionInputs    `json:"deductions"`
}

// Result is the computed return. FinalAmount in Tax is negative for a refund.
type Result struct {
	FiscalYear    int                  `json:"fiscal_year"`
	RuleVersion   string               `json:"rule_version"`
	FilingType    ledger.FilingType    `json:"filing_type"`
	Business      income.Business      `json:"business"`
	Salary        income.Salary        `json:"salary"`
	Pension       income.Pension       `json:"pension"`
	Miscellaneous income.Miscellaneous `json:"miscellaneous"`
	Crypto        *cryptogain.Result   `json:"crypto,omitempty"`
	TotalIncome   int64                `json:"total_income"`
	Deductions    deduction.Set        `json:"deductions"`
	Tax           taxcalc.Result       `json:"tax"`
}

// Assembler computes returns against a rule book.
type Assembler struct {
	book *taxrule.Book
}

// New creates an Assembler.
func New(book *taxrule.Book) *Assembler {
	return &Assembler{book: book}
}

// Compute runs the whole pipeline for in.FiscalYear.
func (a *Assembler) Compute(in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	rules, err := a.book.ForYear(in.FiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to select tax rules: %w", err)
	}

	result := &Result{
		FiscalYear:  in.FiscalYear,
		RuleVersion: rules.Version,
		FilingType:  in.Profile.FilingType,
	}

	if len(in.Trades) > 0 {
		crypto, err := cryptogain.NewCalculator(rules).ComputeForYear(in.Trades, in.FiscalYear)
		if err != nil {
			return nil, fmt.Errorf("failed to compute crypto gains: %w", err)
		}
		result.Crypto = crypto
	}

	normalizer := income.NewNormalizer(rules, in.FiscalYear)
	aggregator := deduction.NewAggregator(rules)

	business, err := normalizer.BusinessProfit(in.Ledger, in.Income, in.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to compute business income: %w", err)
	}
	// The special deduction is capped by profit before it is subtracted.
	special, err := aggregator.SpecialDeduction(in.Profile.FilingType, business.Profit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute special deduction: %w", err)
	}
	result.Business = income.ApplySpecialDeduction(business, special)

	if result.Salary, err = normalizer.Salary(in.Income); err != nil {
		return nil, fmt.Errorf("failed to compute salary income: %w", err)
	}
	if result.Pension, err = normalizer.Pension(in.Income, in.Profile.DateOfBirth); err != nil {
		return nil, fmt.Errorf("failed to compute pension income: %w", err)
	}
	result.Miscellaneous = normalizer.Miscellaneous(in.Income, result.Crypto)
	result.TotalIncome = income.Total(result.Business, result.Salary, result.Pension, result.Miscellaneous)

	if result.Deductions, err = aggregator.Aggregate(in.Deductions, result.Business.SpecialDeduction, result.TotalIncome); err != nil {
		return nil, fmt.Errorf("failed to aggregate deductions: %w", err)
	}

	withheld := WithheldTax(in.Income, in.FiscalYear)
	if result.Tax, err = taxcalc.NewCalculator(rules).Compute(result.TotalIncome, result.Deductions.Total, withheld); err != nil {
		return nil, fmt.Errorf("failed to compute tax: %w", err)
	}

	return result, nil
}

// ComputeCryptoGains runs the crypto calculator over the whole history,
// using the rules of the year of the latest trade. A history that ends
// before the first rule version uses that version.
func (a *Assembler) ComputeCryptoGains(trades []ledger.CryptoTradeEntry) (*cryptogain.Result, error) {
	if err := ledger.ValidateTrades(trades); err != nil {
		return nil, err
	}

	rules, err := a.latestRules(trades)
	if err != nil {
		return nil, err
	}
	return cryptogain.NewCalculator(rules).Compute(trades)
}

// ComputeCryptoGainsForYear counts only the gains realized in year.
func (a *Assembler) ComputeCryptoGainsForYear(trades []ledger.CryptoTradeEntry, year int) (*cryptogain.Result, error) {
	rules, err := a.book.ForYear(year)
	if err != nil {
		return nil, fmt.Errorf("failed to select tax rules: %w", err)
	}
	return cryptogain.NewCalculator(rules).ComputeForYear(trades, year)
}

func (a *Assembler) latestRules(trades []ledger.CryptoTradeEntry) (*taxrule.RuleSet, error) {
	versions := a.book.Versions()
	if len(trades) == 0 {
		if len(versions) == 0 {
			return nil, &taxrule.ConfigurationError{Table: "book", Reason: "no rule versions loaded"}
		}
		return versions[len(versions)-1], nil
	}

	latest := trades[0].Date
	for _, t := range trades[1:] {
		if t.Date > latest {
			latest = t.Date
		}
	}
	date, err := ledger.ParseDate(latest)
	if err != nil {
		return nil, err
	}

	// Histories older than the book use the earliest version's threshold.
	if len(versions) > 0 && date.Year() < versions[0].FromYear {
		return versions[0], nil
	}

	rules, err := a.book.ForYear(date.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to select tax rules: %w", err)
	}
	return rules, nil
}

// WithheldTax sums the tax withheld at source on the year's income entries.
func WithheldTax(entries []ledger.IncomeEntry, year int) int64 {
	var total int64
	for _, e := range entries {
		if e.FiscalYear != 0 && e.FiscalYear != year {
			continue
		}
		total += e.WithheldTax
	}
	return total
}

func validate(in Input) error {
	if in.Profile.FiscalYear != 0 && in.Profile.FiscalYear != in.FiscalYear {
		return &ledger.InvalidEntryError{
			Kind:   "business profile",
			Field:  "fiscal_year",
			Reason: fmt.Sprintf("is %d, expected %d", in.Profile.FiscalYear, in.FiscalYear),
		}
	}

	checks := []func() error{
		func() error { return ledger.ValidateLedger(in.Ledger) },
		func() error { return ledger.ValidateIncome(in.Income) },
		func() error { return ledger.ValidateTrades(in.Trades) },
		func() error { return ledger.ValidateProfile(in.Profile) },
		func() error { return ledger.ValidateDeductions(in.Deductions) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
