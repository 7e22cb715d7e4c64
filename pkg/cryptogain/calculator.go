// Package cryptogain computes realized crypto-asset gains with the
// moving-average cost method (移動平均法).
package cryptogain

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// NegativeHoldingsError is returned when a disposal exceeds the quantity held.
type NegativeHoldingsError struct {
	Currency  string
	TradeID   string
	Date      string
	Held      decimal.Decimal
	Requested decimal.Decimal
}

func (e *NegativeHoldingsError) Error() string {
	return fmt.Sprintf("cannot dispose %s %s on %s (trade %q): only %s held",
		e.Requested, e.Currency, e.Date, e.TradeID, e.Held)
}

// CurrencyGain is the result for a single currency.
type CurrencyGain struct {
	Currency          string          `json:"currency"`
	RealizedGain      decimal.Decimal `json:"realized_gain"`
	Proceeds          decimal.Decimal `json:"proceeds"`
	DisposedCost      decimal.Decimal `json:"disposed_cost"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	IncomeReceived    decimal.Decimal `json:"income_received"`
}

// Result is the outcome of a gain calculation.
type Result struct {
	Currencies          []CurrencyGain  `json:"currencies"`
	TotalRealizedGain   decimal.Decimal `json:"total_realized_gain"`
	TotalIncomeReceived decimal.Decimal `json:"total_income_received"`
	FilingRequired      bool            `json:"filing_required"`
	FilingReason        string          `json:"filing_reason,omitempty"`
}

// position is the running moving-average state of one currency.
type position struct {
	costBasis decimal.Decimal
	held      decimal.Decimal
	gain      CurrencyGain
}

func (p *position) averageCost() decimal.Decimal {
	if p.held.IsZero() {
		return decimal.Zero
	}
	return p.costBasis.Div(p.held)
}

func (p *position) acquire(quantity, cost decimal.Decimal) {
	p.costBasis = p.costBasis.Add(cost)
	p.held = p.held.Add(quantity)
}

// dispose removes quantity at the current average cost and returns that cost.
func (p *position) dispose(quantity decimal.Decimal) decimal.Decimal {
	if quantity.Equal(p.held) {
		cost := p.costBasis
		p.costBasis = decimal.Zero
		p.held = decimal.Zero
		return cost
	}
	cost := p.costBasis.Mul(quantity).Div(p.held)
	p.costBasis = p.costBasis.Sub(cost)
	p.held = p.held.Sub(quantity)
	return cost
}

// Calculator applies the moving-average method over a trade history.
type Calculator struct {
	threshold int64
}

// NewCalculator creates a Calculator using the rule set's filing threshold.
func NewCalculator(rules *taxrule.RuleSet) *Calculator {
	return &Calculator{threshold: rules.CryptoFilingThreshold}
}

// Compute processes every trade and counts all realized gains.
func (c *Calculator) Compute(trades []ledger.CryptoTradeEntry) (*Result, error) {
	return c.compute(trades, func(string) bool { return true }, func(string) bool { return false })
}

// ComputeForYear counts gains realized within the fiscal year only.
// Earlier trades build the cost basis; later trades are ignored.
func (c *Calculator) ComputeForYear(trades []ledger.CryptoTradeEntry, year int) (*Result, error) {
	prefix := strconv.Itoa(year)
	inYear := func(date string) bool { return date[:4] == prefix }
	after := func(date string) bool { return date[:4] > prefix }
	return c.compute(trades, inYear, after)
}

func (c *Calculator) compute(trades []ledger.CryptoTradeEntry, counts, skip func(date string) bool) (*Result, error) {
	if err := ledger.ValidateTrades(trades); err != nil {
		return nil, err
	}

	ordered := make([]ledger.CryptoTradeEntry, len(trades))
	copy(ordered, trades)
	// YYYY-MM-DD sorts chronologically; same-day trades keep input order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date < ordered[j].Date
	})

	positions := make(map[string]*position)
	get := func(currency string) *position {
		p, ok := positions[currency]
		if !ok {
			p = &position{gain: CurrencyGain{Currency: currency}}
			positions[currency] = p
		}
		return p
	}

	for _, trade := range ordered {
		if skip(trade.Date) {
			continue
		}
		counted := counts(trade.Date)
		p := get(trade.Currency)

		// Kinds are validated, so anything not acquiring is a disposal.
		switch {
		case trade.Kind.Acquires():
			p.acquire(trade.Quantity, trade.TotalAmount.Add(trade.Fee))
			if trade.Kind == ledger.TradeReceive && counted {
				p.gain.IncomeReceived = p.gain.IncomeReceived.Add(trade.TotalAmount)
			}

		default:
			if trade.Quantity.GreaterThan(p.held) {
				return nil, &NegativeHoldingsError{
					Currency:  trade.Currency,
					TradeID:   trade.ID,
					Date:      trade.Date,
					Held:      p.held,
					Requested: trade.Quantity,
				}
			}

			cost := p.dispose(trade.Quantity)
			proceeds := trade.TotalAmount.Sub(trade.Fee)
			if counted {
				p.gain.RealizedGain = p.gain.RealizedGain.Add(proceeds.Sub(cost))
				p.gain.Proceeds = p.gain.Proceeds.Add(proceeds)
				p.gain.DisposedCost = p.gain.DisposedCost.Add(cost)
				p.gain.QuantitySold = p.gain.QuantitySold.Add(trade.Quantity)
			}

			if trade.Kind == ledger.TradeExchange && trade.ToCurrency != "" {
				get(trade.ToCurrency).acquire(trade.ToQuantity, trade.TotalAmount)
			}
		}
	}

	result := &Result{}
	currencies := make([]string, 0, len(positions))
	for currency := range positions {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		p := positions[currency]
		gain := p.gain
		gain.AverageCost = p.averageCost()
		gain.RemainingQuantity = p.held
		gain.CostBasis = p.costBasis

		result.Currencies = append(result.Currencies, gain)
		result.TotalRealizedGain = result.TotalRealizedGain.Add(gain.RealizedGain)
		result.TotalIncomeReceived = result.TotalIncomeReceived.Add(gain.IncomeReceived)
	}

	result.FilingRequired, result.FilingReason = FilingVerdict(result.TotalRealizedGain, c.threshold)
	return result, nil
}

// FilingVerdict reports whether the realized gain exceeds the threshold
// under which a salaried worker's miscellaneous income need not be filed.
// The verdict is advisory.
func FilingVerdict(totalGain decimal.Decimal, threshold int64) (bool, string) {
	limit := decimal.NewFromInt(threshold)
	if totalGain.GreaterThan(limit) {
		return true, fmt.Sprintf("暗号資産の売却益 %s円 が %s円 を超えるため確定申告が必要です",
			totalGain.Floor().StringFixed(0), limit.StringFixed(0))
	}
	return false, ""
}
