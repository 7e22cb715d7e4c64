// Package deduction combines personal income deductions (所得控除) into a
// finalized, capped set.
package deduction

import (
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// Set is the finalized deduction set. Every capped field is at or below its
// statutory cap. Special is reported for reference only: it reduces business
// income and is not part of Total.
type Set struct {
	SocialInsurance  int64 `json:"social_insurance"`
	LifeInsurance    int64 `json:"life_insurance"`
	MedicalInsurance int64 `json:"medical_insurance"`
	PensionInsurance int64 `json:"pension_insurance"`
	InsuranceTotal   int64 `json:"insurance_total"`
	Spousal          int64 `json:"spousal"`
	Dependent        int64 `json:"dependent"`
	Medical          int64 `json:"medical"`
	Donation         int64 `json:"donation"`
	Basic            int64 `json:"basic"`
	Special          int64 `json:"special"`
	Total            int64 `json:"total"`
}

// Aggregator applies one rule version's caps and tables.
type Aggregator struct {
	rules *taxrule.RuleSet
}

// NewAggregator creates an Aggregator.
func NewAggregator(rules *taxrule.RuleSet) *Aggregator {
	return &Aggregator{rules: rules}
}

// SpecialDeduction returns the blue-filing special deduction for the filing
// type, limited to the pre-deduction business profit.
func (a *Aggregator) SpecialDeduction(filingType ledger.FilingType, businessProfit int64) (int64, error) {
	nominal, err := a.rules.SpecialDeductionFor(string(filingType))
	if err != nil {
		return 0, err
	}
	return min(nominal, max(0, businessProfit)), nil
}

// Insurance caps each insurance category and then their sum.
func (a *Aggregator) Insurance(in ledger.DeductionInputs) (life, medical, pension, total int64) {
	caps := a.rules.InsuranceCaps
	life = min(in.LifeInsurance, caps.Life)
	medical = min(in.MedicalInsurance, caps.Medical)
	pension = min(in.PensionInsurance, caps.Pension)
	total = min(life+medical+pension, caps.Combined)
	return life, medical, pension, total
}

// Basic returns the basic deduction for the total income.
func (a *Aggregator) Basic(totalIncome int64) (int64, error) {
	tier, err := a.rules.BasicDeduction.Lookup(totalIncome)
	if err != nil {
		return 0, err
	}
	return tier.Amount, nil
}

// Aggregate finalizes the deduction set. totalIncome must already include
// business income net of the special deduction.
func (a *Aggregator) Aggregate(in ledger.DeductionInputs, special, totalIncome int64) (Set, error) {
	set := Set{
		SocialInsurance: in.SocialInsurance,
		Spousal:         in.Spousal,
		Dependent:       in.Dependent,
		Medical:         min(in.Medical, a.rules.MedicalCap),
		Donation:        in.Donation,
		Special:         special,
	}
	set.LifeInsurance, set.MedicalInsurance, set.PensionInsurance, set.InsuranceTotal = a.Insurance(in)

	basic, err := a.Basic(totalIncome)
	if err != nil {
		return Set{}, err
	}
	set.Basic = basic

	set.Total = set.SocialInsurance +
		set.InsuranceTotal +
		set.Spousal +
		set.Dependent +
		set.Basic +
		set.Medical +
		set.Donation

	return set, nil
}
