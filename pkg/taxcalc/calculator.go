// Package taxcalc applies the progressive income-tax schedule and the
// reconstruction surtax, and reconciles the result against withheld tax.
package taxcalc

import (
	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// Result is the tax computed for one return.
// FinalAmount is negative for a refund.
type Result struct {
	TaxableIncome  int64 `json:"taxable_income"`
	IncomeTax      int64 `json:"income_tax"`
	Surtax         int64 `json:"surtax"`
	TotalTax       int64 `json:"total_tax"`
	WithholdingTax int64 `json:"withholding_tax"`
	FinalAmount    int64 `json:"final_amount"`
}

// IsRefund reports whether the taxpayer receives a refund.
func (r Result) IsRefund() bool {
	return r.FinalAmount < 0
}

// RefundAmount returns the refund, or 0 when tax is due.
func (r Result) RefundAmount() int64 {
	if r.FinalAmount < 0 {
		return -r.FinalAmount
	}
	return 0
}

// AmountDue returns the tax still payable, or 0 for a refund.
func (r Result) AmountDue() int64 {
	return max(0, r.FinalAmount)
}

// Calculator applies one rule version's schedule.
type Calculator struct {
	brackets   taxrule.BracketTable
	surtaxRate decimal.Decimal
}

// NewCalculator creates a Calculator.
func NewCalculator(rules *taxrule.RuleSet) *Calculator {
	return &Calculator{
		brackets:   rules.IncomeTax,
		surtaxRate: rules.SurtaxRate,
	}
}

// TaxableIncome returns total income less deductions, never negative.
func TaxableIncome(totalIncome, totalDeductions int64) int64 {
	return max(0, totalIncome-totalDeductions)
}

// IncomeTax returns floor(taxable * rate - quick deduction) for the tier
// containing taxable.
func (c *Calculator) IncomeTax(taxable int64) (int64, error) {
	tier, err := c.brackets.Lookup(taxable)
	if err != nil {
		return 0, err
	}
	tax := tier.Rate.Mul(decimal.NewFromInt(taxable)).
		Sub(decimal.NewFromInt(tier.Amount)).
		Floor().
		IntPart()
	return max(0, tax), nil
}

// Surtax returns the reconstruction surtax on incomeTax.
func (c *Calculator) Surtax(incomeTax int64) int64 {
	return c.surtaxRate.Mul(decimal.NewFromInt(incomeTax)).Floor().IntPart()
}

// Compute runs the schedule and settles against withheld tax.
func (c *Calculator) Compute(totalIncome, totalDeductions, withheld int64) (Result, error) {
	r := Result{
		TaxableIncome:  TaxableIncome(totalIncome, totalDeductions),
		WithholdingTax: withheld,
	}

	incomeTax, err := c.IncomeTax(r.TaxableIncome)
	if err != nil {
		return Result{}, err
	}
	r.IncomeTax = incomeTax
	r.Surtax = c.Surtax(incomeTax)
	r.TotalTax = r.IncomeTax + r.Surtax
	r.FinalAmount = Settle(r.TotalTax, r.WithholdingTax)
	return r, nil
}

// Settle reconciles a computed total tax against withheld tax.
func Settle(totalTax, withheld int64) int64 {
	return totalTax - withheld
}
