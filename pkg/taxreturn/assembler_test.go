package taxreturn

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

func newTestAssembler(t *testing.T) *Assembler {
	t.Helper()

	book, err := taxrule.DefaultBook()
	if err != nil {
		t.Fatalf("DefaultBook() error = %v", err)
	}
	return New(book)
}

func businessOnlyInput() Input {
	return Input{
		FiscalYear: 2024,
		Ledger: []ledger.LedgerEntry{
			{ID: "r1", Date: "2024-03-31", Amount: -2_000_000, Status: ledger.StatusApproved},
			{ID: "r2", Date: "2024-09-30", Amount: -3_000_000, Status: ledger.StatusApproved},
			{ID: "e1", Date: "2024-05-10", Amount: 1_500_000, Category: taxrule.CategoryOutsourcing, Status: ledger.StatusApproved},
			{ID: "e2", Date: "2024-06-10", Amount: 500_000, Category: taxrule.CategorySupplies, Status: ledger.StatusModified},
			{ID: "e3", Date: "2024-07-10", Amount: 300_000, Category: taxrule.CategorySupplies, Status: ledger.StatusPending},
		},
		Profile: ledger.BusinessProfile{FiscalYear: 2024, FilingType: ledger.FilingBlueETax},
	}
}

func btc(id, date string, kind ledger.TradeKind, qty, total string) ledger.CryptoTradeEntry {
	return ledger.CryptoTradeEntry{
		ID:          id,
		Date:        date,
		Kind:        kind,
		Currency:    "BTC",
		Quantity:    decimal.RequireFromString(qty),
		TotalAmount: decimal.RequireFromString(total),
	}
}

func TestComputeBusinessOnly(t *testing.T) {
	a := newTestAssembler(t)

	r, err := a.Compute(businessOnlyInput())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if r.RuleVersion != "R2" {
		t.Errorf("RuleVersion = %q, expected R2", r.RuleVersion)
	}

	tests := []struct {
		name     string
		got      int64
		expected int64
	}{
		{"business revenue", r.Business.Revenue, 5_000_000},
		{"business expenses", r.Business.Expenses, 2_000_000},
		{"special deduction", r.Business.SpecialDeduction, 650_000},
		{"business income", r.Business.Income, 2_350_000},
		{"total income", r.TotalIncome, 2_350_000},
		{"basic deduction", r.Deductions.Basic, 480_000},
		{"total deductions", r.Deductions.Total, 480_000},
		{"taxable income", r.Tax.TaxableIncome, 1_870_000},
		{"income tax", r.Tax.IncomeTax, 93_500},
		{"surtax", r.Tax.Surtax, 1_963},
		{"total tax", r.Tax.TotalTax, 95_463},
		{"final amount", r.Tax.FinalAmount, 95_463},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %d, expected %d", tt.name, tt.got, tt.expected)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	a := newTestAssembler(t)
	in := businessOnlyInput()
	in.Trades = []ledger.CryptoTradeEntry{
		btc("t1", "2023-01-10", ledger.TradeBuy, "1", "5000000"),
		btc("t2", "2024-02-10", ledger.TradeSell, "0.3", "2400000"),
	}

	first, err := a.Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	second, err := a.Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Compute() is not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestComputeSalaryRefund(t *testing.T) {
	a := newTestAssembler(t)

	in := Input{
		FiscalYear: 2024,
		Income: []ledger.IncomeEntry{
			{ID: "s1", FiscalYear: 2024, Type: ledger.IncomeSalary, Payer: "株式会社サンプル", GrossAmount: 3_000_000, WithheldTax: 100_000},
			{ID: "s0", FiscalYear: 2023, Type: ledger.IncomeSalary, GrossAmount: 9_000_000, WithheldTax: 900_000},
		},
		Profile:    ledger.BusinessProfile{FilingType: ledger.FilingWhite},
		Deductions: ledger.DeductionInputs{SocialInsurance: 450_000},
	}

	r, err := a.Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// 3,000,000 - 980,000 = 2,020,000; minus 450,000 + 480,000 = 1,090,000.
	tests := []struct {
		name     string
		got      int64
		expected int64
	}{
		{"salary income", r.Salary.Income, 2_020_000},
		{"taxable income", r.Tax.TaxableIncome, 1_090_000},
		{"income tax", r.Tax.IncomeTax, 54_500},
		{"surtax", r.Tax.Surtax, 1_144},
		{"withholding tax", r.Tax.WithholdingTax, 100_000},
		{"final amount", r.Tax.FinalAmount, -44_356},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %d, expected %d", tt.name, tt.got, tt.expected)
		}
	}
	if !r.Tax.IsRefund() || r.Tax.RefundAmount() != 44_356 {
		t.Errorf("RefundAmount() = %d, expected refund of 44356", r.Tax.RefundAmount())
	}
}

func TestComputeCryptoFlowsIntoMiscellaneous(t *testing.T) {
	a := newTestAssembler(t)

	in := Input{
		FiscalYear: 2024,
		Trades: []ledger.CryptoTradeEntry{
			btc("t1", "2024-01-10", ledger.TradeBuy, "1.0", "5000000"),
			btc("t2", "2024-02-10", ledger.TradeBuy, "1.0", "7000000"),
			btc("t3", "2024-03-10", ledger.TradeSell, "1.0", "8000000"),
			btc("t4", "2025-01-10", ledger.TradeSell, "1.0", "9000000"),
		},
		Profile: ledger.BusinessProfile{FilingType: ledger.FilingWhite},
	}

	r, err := a.Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if r.Crypto == nil || !r.Crypto.FilingRequired {
		t.Fatalf("Crypto = %+v, expected filing required", r.Crypto)
	}
	if r.Miscellaneous.CryptoGain != 2_000_000 {
		t.Errorf("CryptoGain = %d, expected 2000000", r.Miscellaneous.CryptoGain)
	}
	if r.Tax.TaxableIncome != 1_520_000 {
		t.Errorf("TaxableIncome = %d, expected 1520000", r.Tax.TaxableIncome)
	}
}

func TestSpecialDeductionNeverExceedsProfit(t *testing.T) {
	a := newTestAssembler(t)

	tests := []struct {
		name     string
		expenses int64
		expected int64
	}{
		{"profit above nominal", 1_000_000, 650_000},
		{"profit below nominal", 4_700_000, 300_000},
		{"loss", 6_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				FiscalYear: 2024,
				Ledger: []ledger.LedgerEntry{
					{Date: "2024-01-31", Amount: -5_000_000, Status: ledger.StatusApproved},
					{Date: "2024-02-28", Amount: tt.expenses, Category: taxrule.CategoryOutsourcing, Status: ledger.StatusApproved},
				},
				Profile: ledger.BusinessProfile{FilingType: ledger.FilingBlueETax},
			}

			r, err := a.Compute(in)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if r.Business.SpecialDeduction != tt.expected {
				t.Errorf("SpecialDeduction = %d, expected %d", r.Business.SpecialDeduction, tt.expected)
			}
			if r.Business.Income < 0 {
				t.Errorf("Business.Income = %d, expected non-negative", r.Business.Income)
			}
		})
	}
}

func TestComputeErrors(t *testing.T) {
	a := newTestAssembler(t)

	t.Run("invalid ledger entry", func(t *testing.T) {
		in := businessOnlyInput()
		in.Ledger[0].Date = "2024/03/31"

		_, err := a.Compute(in)
		var invalid *ledger.InvalidEntryError
		if !errors.As(err, &invalid) {
			t.Fatalf("Compute() error = %v, expected InvalidEntryError", err)
		}
	})

	t.Run("profile for another year", func(t *testing.T) {
		in := businessOnlyInput()
		in.Profile.FiscalYear = 2023

		_, err := a.Compute(in)
		var invalid *ledger.InvalidEntryError
		if !errors.As(err, &invalid) {
			t.Fatalf("Compute() error = %v, expected InvalidEntryError", err)
		}
	})

	t.Run("pension without date of birth", func(t *testing.T) {
		in := businessOnlyInput()
		in.Income = []ledger.IncomeEntry{{ID: "p1", FiscalYear: 2024, Type: ledger.IncomePension, GrossAmount: 3_000_000, PensionKind: ledger.PensionPublic}}

		_, err := a.Compute(in)
		var invalid *ledger.InvalidEntryError
		if !errors.As(err, &invalid) {
			t.Fatalf("Compute() error = %v, expected InvalidEntryError", err)
		}
		if invalid.Field != "date_of_birth" {
			t.Errorf("Field = %q, expected date_of_birth", invalid.Field)
		}
	})

	t.Run("oversold holdings", func(t *testing.T) {
		in := businessOnlyInput()
		in.Trades = []ledger.CryptoTradeEntry{
			btc("t1", "2024-01-10", ledger.TradeBuy, "0.5", "3000000"),
			btc("t2", "2024-02-10", ledger.TradeSell, "0.6", "4000000"),
		}

		_, err := a.Compute(in)
		var negative *cryptogain.NegativeHoldingsError
		if !errors.As(err, &negative) {
			t.Fatalf("Compute() error = %v, expected NegativeHoldingsError", err)
		}
		if negative.TradeID != "t2" {
			t.Errorf("TradeID = %q, expected t2", negative.TradeID)
		}
	})

	t.Run("year without rules", func(t *testing.T) {
		in := businessOnlyInput()
		in.FiscalYear = 2019
		in.Profile.FiscalYear = 2019

		_, err := a.Compute(in)
		var config *taxrule.ConfigurationError
		if !errors.As(err, &config) {
			t.Fatalf("Compute() error = %v, expected ConfigurationError", err)
		}
	})
}

func TestComputeCryptoGains(t *testing.T) {
	a := newTestAssembler(t)

	trades := []ledger.CryptoTradeEntry{
		btc("t3", "2024-03-10", ledger.TradeSell, "1.0", "8000000"),
		btc("t1", "2024-01-10", ledger.TradeBuy, "1.0", "5000000"),
		btc("t2", "2024-02-10", ledger.TradeBuy, "1.0", "7000000"),
	}

	r, err := a.ComputeCryptoGains(trades)
	if err != nil {
		t.Fatalf("ComputeCryptoGains() error = %v", err)
	}
	if !r.TotalRealizedGain.Equal(decimal.NewFromInt(2_000_000)) {
		t.Errorf("TotalRealizedGain = %s, expected 2000000", r.TotalRealizedGain)
	}
	if len(r.Currencies) != 1 || !r.Currencies[0].RemainingQuantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Currencies = %+v, expected 1 BTC remaining", r.Currencies)
	}
}

func TestComputeCryptoGainsBeforeFirstRuleVersion(t *testing.T) {
	a := newTestAssembler(t)

	trades := []ledger.CryptoTradeEntry{
		btc("t1", "2019-01-10", ledger.TradeBuy, "1", "500000"),
		btc("t2", "2019-05-10", ledger.TradeSell, "1", "900000"),
	}

	r, err := a.ComputeCryptoGains(trades)
	if err != nil {
		t.Fatalf("ComputeCryptoGains() error = %v", err)
	}
	if !r.TotalRealizedGain.Equal(decimal.NewFromInt(400_000)) {
		t.Errorf("TotalRealizedGain = %s, expected 400000", r.TotalRealizedGain)
	}
	if !r.FilingRequired {
		t.Error("FilingRequired = false, expected true")
	}
}

func TestWithheldTax(t *testing.T) {
	entries := []ledger.IncomeEntry{
		{FiscalYear: 2024, WithheldTax: 100_000},
		{FiscalYear: 0, WithheldTax: 20_420},
		{FiscalYear: 2023, WithheldTax: 999_999},
	}

	if got := WithheldTax(entries, 2024); got != 120_420 {
		t.Errorf("WithheldTax() = %d, expected 120420", got)
	}
}
