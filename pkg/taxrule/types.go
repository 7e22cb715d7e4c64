// Package taxrule holds the versioned statutory tables consumed by the tax
// computation pipeline: income-tax brackets, income deduction tables, caps,
// special deductions and the expense Category Rule Table.
package taxrule

import (
	"github.com/shopspring/decimal"
)

// Category is an expense category of the closed bookkeeping set.
type Category string

// Expense categories (青色申告決算書 / 収支内訳書 account items).
const (
	CategoryPurchases     Category = "purchases"
	CategoryTaxes         Category = "taxes"
	CategoryShipping      Category = "shipping"
	CategoryUtilities     Category = "utilities"
	CategoryTravel        Category = "travel"
	CategoryCommunication Category = "communication"
	CategoryAdvertising   Category = "advertising"
	CategoryEntertainment Category = "entertainment"
	CategoryInsurance     Category = "insurance"
	CategoryRepairs       Category = "repairs"
	CategorySupplies      Category = "supplies"
	CategoryDepreciation  Category = "depreciation"
	CategoryWelfare       Category = "welfare"
	CategoryWages         Category = "wages"
	CategoryOutsourcing   Category = "outsourcing"
	CategoryInterest      Category = "interest"
	CategoryRent          Category = "rent"
	CategoryBadDebts      Category = "bad_debts"
	CategoryMiscellaneous Category = "miscellaneous"
	CategoryPersonal      Category = "personal"
)

// KnownCategories lists every category of the closed set in display order.
var KnownCategories = []Category{
	CategoryPurchases,
	CategoryTaxes,
	CategoryShipping,
	CategoryUtilities,
	CategoryTravel,
	CategoryCommunication,
	CategoryAdvertising,
	CategoryEntertainment,
	CategoryInsurance,
	CategoryRepairs,
	CategorySupplies,
	CategoryDepreciation,
	CategoryWelfare,
	CategoryWages,
	CategoryOutsourcing,
	CategoryInterest,
	CategoryRent,
	CategoryBadDebts,
	CategoryMiscellaneous,
	CategoryPersonal,
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range KnownCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Bracket is one tier of a bracket table.
// Max is nil for the unbounded final tier.
type Bracket struct {
	Max    *int64          `yaml:"max"`
	Rate   decimal.Decimal `yaml:"rate"`
	Amount int64           `yaml:"amount"`
}

// Unbounded reports whether the tier has no upper limit.
func (b Bracket) Unbounded() bool {
	return b.Max == nil
}

// Apply returns rate*v + amount, unrounded.
func (b Bracket) Apply(v int64) decimal.Decimal {
	return b.Rate.Mul(decimal.NewFromInt(v)).Add(decimal.NewFromInt(b.Amount))
}

// BracketTable is a list of tiers ordered ascending by Max.
type BracketTable []Bracket

// PensionTables holds the two pension-income deduction tables.
type PensionTables struct {
	Under65      BracketTable `yaml:"under_65"`
	Aged65OrOver BracketTable `yaml:"aged_65_or_over"`
}

// InsuranceCaps holds the life insurance deduction ceilings.
type InsuranceCaps struct {
	Life     int64 `yaml:"life"`
	Medical  int64 `yaml:"medical"`
	Pension  int64 `yaml:"pension"`
	Combined int64 `yaml:"combined"`
}

// CategoryRule describes how an expense category is treated.
// Apportion names the home-office ratio applied to the category total.
type CategoryRule struct {
	Category   Category `yaml:"category"`
	Label      string   `yaml:"label"`
	Deductible bool     `yaml:"deductible"`
	Apportion  string   `yaml:"apportion"`
	Cap        *int64   `yaml:"cap"`
	FreeeNames []string `yaml:"freee"`
}

// RuleSet is one version of the statutory tables.
// ToYear of 0 means the version is still in force.
type RuleSet struct {
	Version               string           `yaml:"version"`
	FromYear              int              `yaml:"from_year"`
	ToYear                int              `yaml:"to_year"`
	IncomeTax             BracketTable     `yaml:"income_tax"`
	SurtaxRate            decimal.Decimal  `yaml:"surtax_rate"`
	SalaryDeduction       BracketTable     `yaml:"salary_deduction"`
	PensionDeduction      PensionTables    `yaml:"pension_deduction"`
	BasicDeduction        BracketTable     `yaml:"basic_deduction"`
	InsuranceCaps         InsuranceCaps    `yaml:"insurance_caps"`
	MedicalCap            int64            `yaml:"medical_cap"`
	SpecialDeduction      map[string]int64 `yaml:"special_deduction"`
	CryptoFilingThreshold int64            `yaml:"crypto_filing_threshold"`
	Categories            []CategoryRule   `yaml:"categories"`

	categoryMap map[Category]CategoryRule
	freeeMap    map[string]Category
}

// Covers reports whether the rule set applies to the fiscal year.
func (r *RuleSet) Covers(year int) bool {
	if year < r.FromYear {
		return false
	}
	return r.ToYear == 0 || year <= r.ToYear
}
