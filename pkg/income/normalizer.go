// Package income converts gross revenue per income type into net income by
// applying the type-specific statutory deductions.
package income

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// PensionAgeThreshold is the age from which the 65-and-over pension table applies.
const PensionAgeThreshold = 65

// ExpenseLine is the booked and deductible amount of one expense category.
type ExpenseLine struct {
	Category   taxrule.Category `json:"category"`
	Label      string           `json:"label"`
	Booked     int64            `json:"booked"`
	Deductible int64            `json:"deductible"`
}

// Business is 事業所得.
// Profit is revenue minus expenses before the special deduction.
type Business struct {
	Revenue          int64         `json:"revenue"`
	Expenses         int64         `json:"expenses"`
	Profit           int64         `json:"profit"`
	SpecialDeduction int64         `json:"special_deduction"`
	Income           int64         `json:"income"`
	Lines            []ExpenseLine `json:"lines,omitempty"`
	Uncategorized    int64         `json:"uncategorized"`
}

// Salary is 給与所得.
type Salary struct {
	Revenue   int64 `json:"revenue"`
	Deduction int64 `json:"deduction"`
	Income    int64 `json:"income"`
}

// Pension is 公的年金等に係る雑所得.
type Pension struct {
	Revenue      int64 `json:"revenue"`
	Deduction    int64 `json:"deduction"`
	Income       int64 `json:"income"`
	Age          int   `json:"age"`
	Aged65OrOver bool  `json:"aged_65_or_over"`
}

// Miscellaneous is 雑所得 other than pensions, including crypto gains.
type Miscellaneous struct {
	Revenue      int64 `json:"revenue"`
	CryptoGain   int64 `json:"crypto_gain"`
	CryptoIncome int64 `json:"crypto_income"`
	Income       int64 `json:"income"`
}

// Normalizer applies one rule version to a fiscal year's records.
type Normalizer struct {
	rules *taxrule.RuleSet
	year  int
}

// NewNormalizer creates a Normalizer for the fiscal year.
func NewNormalizer(rules *taxrule.RuleSet, year int) *Normalizer {
	return &Normalizer{rules: rules, year: year}
}

// BusinessProfit totals business revenue and deductible expenses.
// The special deduction is not applied; see ApplySpecialDeduction.
func (n *Normalizer) BusinessProfit(entries []ledger.LedgerEntry, incomes []ledger.IncomeEntry, profile ledger.BusinessProfile) (Business, error) {
	var b Business
	booked := make(map[taxrule.Category]int64)

	prefix := strconv.Itoa(n.year) + "-"
	for _, e := range entries {
		if !e.Status.Counts() || !strings.HasPrefix(e.Date, prefix) {
			continue
		}
		switch {
		case e.IsRevenue():
			b.Revenue += -e.Amount
		case e.Category == "":
			b.Uncategorized += e.Amount
		default:
			booked[e.Category] += e.Amount
		}
	}

	for _, e := range n.incomesOf(incomes, ledger.IncomeBusiness) {
		b.Revenue += e.GrossAmount
	}

	for _, category := range taxrule.KnownCategories {
		total, ok := booked[category]
		if !ok {
			continue
		}

		rule, err := n.rules.Category(category)
		if err != nil {
			return Business{}, err
		}

		line := ExpenseLine{Category: category, Label: rule.Label, Booked: total}
		if rule.Deductible {
			line.Deductible = apportion(total, rule, profile.HomeOfficeRatios)
		}
		b.Lines = append(b.Lines, line)
		b.Expenses += line.Deductible
	}

	b.Profit = b.Revenue - b.Expenses
	b.Income = max(0, b.Profit)
	return b, nil
}

// apportion applies the home-office ratio and the category cap.
func apportion(total int64, rule taxrule.CategoryRule, ratios map[string]decimal.Decimal) int64 {
	amount := total
	if rule.Apportion != "" {
		if ratio, ok := ratios[rule.Apportion]; ok {
			amount = decimal.NewFromInt(total).Mul(ratio).Floor().IntPart()
		}
	}
	if rule.Cap != nil && amount > *rule.Cap {
		amount = *rule.Cap
	}
	return amount
}

// ApplySpecialDeduction subtracts the special deduction from business profit.
// The deduction never exceeds the profit, so it cannot create a loss.
func ApplySpecialDeduction(b Business, special int64) Business {
	b.SpecialDeduction = min(special, max(0, b.Profit))
	b.Income = max(0, b.Profit-b.SpecialDeduction)
	return b
}

// Salary applies the salary-income deduction to total gross salary.
func (n *Normalizer) Salary(incomes []ledger.IncomeEntry) (Salary, error) {
	var s Salary
	for _, e := range n.incomesOf(incomes, ledger.IncomeSalary) {
		s.Revenue += e.GrossAmount
	}
	if s.Revenue == 0 {
		return s, nil
	}

	deduction, err := deductionFrom(n.rules.SalaryDeduction, s.Revenue)
	if err != nil {
		return Salary{}, err
	}
	s.Deduction = deduction
	s.Income = s.Revenue - deduction
	return s, nil
}

// Pension applies the age-dependent pension deduction to total gross pension.
func (n *Normalizer) Pension(incomes []ledger.IncomeEntry, dateOfBirth string) (Pension, error) {
	var p Pension
	for _, e := range n.incomesOf(incomes, ledger.IncomePension) {
		p.Revenue += e.GrossAmount
	}

	// The deduction table depends on age, so pension income needs a birth date.
	if p.Revenue > 0 && dateOfBirth == "" {
		return Pension{}, &ledger.InvalidEntryError{
			Kind:   "business profile",
			Field:  "date_of_birth",
			Reason: "is required when pension income is declared",
		}
	}

	if dateOfBirth != "" {
		birth, err := ledger.ParseDate(dateOfBirth)
		if err != nil {
			return Pension{}, &ledger.InvalidEntryError{Kind: "business profile", Field: "date_of_birth", Reason: err.Error()}
		}
		p.Age = AgeAtYearEnd(birth, n.year)
		p.Aged65OrOver = p.Age >= PensionAgeThreshold
	}

	if p.Revenue == 0 {
		return p, nil
	}

	table := n.rules.PensionDeduction.Under65
	if p.Aged65OrOver {
		table = n.rules.PensionDeduction.Aged65OrOver
	}

	deduction, err := deductionFrom(table, p.Revenue)
	if err != nil {
		return Pension{}, err
	}
	p.Deduction = deduction
	p.Income = p.Revenue - deduction
	return p, nil
}

// Miscellaneous totals other miscellaneous income and crypto results.
// A net loss within the category does not reduce other income.
func (n *Normalizer) Miscellaneous(incomes []ledger.IncomeEntry, crypto *cryptogain.Result) Miscellaneous {
	var m Miscellaneous
	for _, e := range n.incomesOf(incomes, ledger.IncomeMiscellaneous) {
		m.Revenue += e.GrossAmount
	}
	if crypto != nil {
		m.CryptoGain = crypto.TotalRealizedGain.Floor().IntPart()
		m.CryptoIncome = crypto.TotalIncomeReceived.Floor().IntPart()
	}
	m.Income = max(0, m.Revenue+m.CryptoGain+m.CryptoIncome)
	return m
}

// Total sums the net income of every type.
func Total(b Business, s Salary, p Pension, m Miscellaneous) int64 {
	return b.Income + s.Income + p.Income + m.Income
}

// AgeAtYearEnd returns the age on 31 December of the year. Legal age
// increases on the day before the birthday, so a 1 January birthday
// counts as already reached.
func AgeAtYearEnd(birth time.Time, year int) int {
	age := year - birth.Year()
	if birth.Month() == time.January && birth.Day() == 1 {
		age++
	}
	return age
}

func (n *Normalizer) incomesOf(incomes []ledger.IncomeEntry, t ledger.IncomeType) []ledger.IncomeEntry {
	var result []ledger.IncomeEntry
	for _, e := range incomes {
		if e.Type != t {
			continue
		}
		if e.FiscalYear != 0 && e.FiscalYear != n.year {
			continue
		}
		result = append(result, e)
	}
	return result
}

// deductionFrom looks up the tier for gross and returns the deduction,
// floored to whole yen and never above gross.
func deductionFrom(table taxrule.BracketTable, gross int64) (int64, error) {
	tier, err := table.Lookup(gross)
	if err != nil {
		return 0, err
	}
	deduction := tier.Apply(gross).Floor().IntPart()
	return min(max(0, deduction), gross), nil
}
