// Package workbook stores each fiscal year's inputs as a YAML file.
package workbook

import (
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
)

// Workbook is everything recorded for one fiscal year.
type Workbook struct {
	FiscalYear int                       `yaml:"fiscal_year"`
	Profile    ledger.BusinessProfile    `yaml:"profile"`
	Deductions ledger.DeductionInputs    `yaml:"deductions"`
	Ledger     []ledger.LedgerEntry      `yaml:"ledger,omitempty"`
	Income     []ledger.IncomeEntry      `yaml:"income,omitempty"`
	Trades     []ledger.CryptoTradeEntry `yaml:"crypto_trades,omitempty"`
}

// New returns an empty white-filing workbook for the year.
func New(year int) *Workbook {
	return &Workbook{
		FiscalYear: year,
		Profile: ledger.BusinessProfile{
			FiscalYear: year,
			FilingType: ledger.FilingWhite,
		},
	}
}

// Input builds the computation input. history is the crypto trades of
// every workbook up to and including this year.
func (w *Workbook) Input(history []ledger.CryptoTradeEntry) taxreturn.Input {
	return taxreturn.Input{
		FiscalYear: w.FiscalYear,
		Ledger:     w.Ledger,
		Income:     w.Income,
		Trades:     history,
		Profile:    w.Profile,
		Deductions: w.Deductions,
	}
}
