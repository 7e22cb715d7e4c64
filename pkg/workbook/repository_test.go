package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/pathutil"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

func newTestRepository(t *testing.T) (*FileSystemRepository, *pathutil.PathResolver) {
	t.Helper()
	resolver := pathutil.New(pathutil.Config{Root: t.TempDir()})
	return NewFileSystemRepository(resolver), resolver
}

func TestSaveAndLoad(t *testing.T) {
	repo, _ := newTestRepository(t)

	w := New(2024)
	w.Profile.FilingType = ledger.FilingBlueETax
	w.Profile.DateOfBirth = "1980-04-01"
	w.Profile.HomeOfficeRatios = map[string]decimal.Decimal{"rent": decimal.RequireFromString("0.3")}
	w.Deductions.SocialInsurance = 450_000
	w.Ledger = []ledger.LedgerEntry{
		{ID: "l1", Date: "2024-01-31", Amount: -300_000, Status: ledger.StatusApproved},
		{ID: "l2", Date: "2024-02-10", Amount: 120_000, Category: taxrule.CategoryRent, Status: ledger.StatusApproved},
	}
	w.Trades = []ledger.CryptoTradeEntry{
		{ID: "c1", Date: "2024-03-01", Kind: ledger.TradeBuy, Currency: "BTC",
			Quantity: decimal.RequireFromString("0.125"), TotalAmount: decimal.NewFromInt(1_250_000)},
	}

	if err := repo.Save(w); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := repo.Load(2024)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Profile.FilingType != ledger.FilingBlueETax {
		t.Errorf("FilingType = %q, expected blue_etax", loaded.Profile.FilingType)
	}
	if !loaded.Profile.HomeOfficeRatios["rent"].Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("rent ratio = %s, expected 0.3", loaded.Profile.HomeOfficeRatios["rent"])
	}
	if loaded.Deductions.SocialInsurance != 450_000 {
		t.Errorf("SocialInsurance = %d, expected 450000", loaded.Deductions.SocialInsurance)
	}
	if len(loaded.Ledger) != 2 || loaded.Ledger[1].Category != taxrule.CategoryRent {
		t.Errorf("Ledger = %+v, expected 2 entries with rent second", loaded.Ledger)
	}
	if len(loaded.Trades) != 1 || !loaded.Trades[0].Quantity.Equal(decimal.RequireFromString("0.125")) {
		t.Errorf("Trades = %+v, expected 0.125 BTC", loaded.Trades)
	}
}

func TestLoadHandWrittenWorkbook(t *testing.T) {
	repo, resolver := newTestRepository(t)

	content := `fiscal_year: 2024
profile:
  filing_type: blue_simple
  home_office_ratios:
    communication: 0.5
deductions:
  life_insurance: 50000
crypto_trades:
  - id: c1
    date: "2024-05-01"
    kind: buy
    currency: ETH
    quantity: 1.5
    total_amount: 600000
    fee: 300
`
	path, _ := resolver.WorkbookPath(2024)
	if err := resolver.EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}

	w, err := repo.Load(2024)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !w.Trades[0].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Quantity = %s, expected 1.5", w.Trades[0].Quantity)
	}
	if !w.Trades[0].Fee.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Fee = %s, expected 300", w.Trades[0].Fee)
	}
	if !w.Profile.HomeOfficeRatios["communication"].Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("communication ratio = %s, expected 0.5", w.Profile.HomeOfficeRatios["communication"])
	}
}

func TestLoadErrors(t *testing.T) {
	repo, resolver := newTestRepository(t)

	if _, err := repo.Load(2024); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, expected ErrNotFound", err)
	}

	path, _ := resolver.WorkbookPath(2023)
	if err := resolver.EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("fiscal_year: 2022\n"), 0644); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	if _, err := repo.Load(2023); err == nil {
		t.Error("Load() with mismatched fiscal year expected error, got nil")
	}
}

func TestAppendLedgerEntries(t *testing.T) {
	repo, _ := newTestRepository(t)

	first := []ledger.LedgerEntry{
		{ID: "freee-1", Date: "2024-01-10", Amount: -100_000, Status: ledger.StatusPending},
		{ID: "freee-2", Date: "2024-01-11", Amount: 5_000, Status: ledger.StatusPending},
	}
	added, err := repo.AppendLedgerEntries(2024, first)
	if err != nil {
		t.Fatalf("AppendLedgerEntries() error = %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, expected 2", added)
	}

	second := []ledger.LedgerEntry{
		{ID: "freee-2", Date: "2024-01-11", Amount: 5_000, Status: ledger.StatusPending},
		{ID: "freee-3", Date: "2024-01-12", Amount: 8_000, Status: ledger.StatusPending},
	}
	added, err = repo.AppendLedgerEntries(2024, second)
	if err != nil {
		t.Fatalf("AppendLedgerEntries() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, expected 1", added)
	}

	w, err := repo.Load(2024)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(w.Ledger) != 3 {
		t.Errorf("Ledger = %d entries, expected 3", len(w.Ledger))
	}
	if w.Profile.FilingType != ledger.FilingWhite {
		t.Errorf("FilingType = %q, expected white for a new workbook", w.Profile.FilingType)
	}
}

func TestRemoveLedgerEntries(t *testing.T) {
	repo, _ := newTestRepository(t)

	removed, err := repo.RemoveLedgerEntries(2024, func(ledger.LedgerEntry) bool { return true })
	if err != nil {
		t.Fatalf("RemoveLedgerEntries() on a missing workbook error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, expected 0", removed)
	}

	entries := []ledger.LedgerEntry{
		{ID: "freee-7-1", Date: "2024-01-10", Amount: 1_000, Status: ledger.StatusApproved},
		{ID: "freee-7-2", Date: "2024-01-10", Amount: 2_000, Status: ledger.StatusApproved},
		{ID: "manual-1", Date: "2024-01-11", Amount: 3_000, Status: ledger.StatusApproved},
	}
	if _, err := repo.AppendLedgerEntries(2024, entries); err != nil {
		t.Fatalf("AppendLedgerEntries() error = %v", err)
	}

	removed, err = repo.RemoveLedgerEntries(2024, func(e ledger.LedgerEntry) bool { return e.ID != "manual-1" })
	if err != nil {
		t.Fatalf("RemoveLedgerEntries() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, expected 2", removed)
	}

	w, err := repo.Load(2024)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(w.Ledger) != 1 || w.Ledger[0].ID != "manual-1" {
		t.Errorf("Ledger = %+v, expected only manual-1", w.Ledger)
	}
}

func TestTradesThrough(t *testing.T) {
	repo, resolver := newTestRepository(t)

	for _, year := range []int{2023, 2024, 2025} {
		w := New(year)
		w.Trades = []ledger.CryptoTradeEntry{{
			ID:          "t" + filepath.Base(resolver.YearDir(year)),
			Date:        filepath.Base(resolver.YearDir(year)) + "-06-01",
			Kind:        ledger.TradeBuy,
			Currency:    "BTC",
			Quantity:    decimal.NewFromInt(1),
			TotalAmount: decimal.NewFromInt(1_000_000),
		}}
		if err := repo.Save(w); err != nil {
			t.Fatalf("Save(%d) error = %v", year, err)
		}
	}

	trades, err := repo.TradesThrough(2024)
	if err != nil {
		t.Fatalf("TradesThrough() error = %v", err)
	}
	if len(trades) != 2 || trades[0].ID != "t2023" || trades[1].ID != "t2024" {
		t.Errorf("TradesThrough(2024) = %+v, expected t2023 and t2024", trades)
	}
}

func TestWorkbookInput(t *testing.T) {
	w := New(2024)
	w.Income = []ledger.IncomeEntry{{FiscalYear: 2024, Type: ledger.IncomeSalary, GrossAmount: 1}}
	history := []ledger.CryptoTradeEntry{{ID: "old"}}

	in := w.Input(history)
	if in.FiscalYear != 2024 || len(in.Income) != 1 || len(in.Trades) != 1 {
		t.Errorf("Input() = %+v, expected fiscal year, income and trade history", in)
	}
}
