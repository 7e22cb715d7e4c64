// Package report renders computed returns and crypto gains as fixed-width text.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/kakutei/pkg/cryptogain"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"
)

const (
	labelWidth  = 32
	amountWidth = 16
)

var printer = message.NewPrinter(language.Japanese)

// EraYear returns the year in the Reiwa era (令和), or 0 before 2019.
func EraYear(year int) int {
	if year < 2019 {
		return 0
	}
	return year - 2018
}

// FormatReturn renders a computed return.
func FormatReturn(r *taxreturn.Result) string {
	var sb strings.Builder

	title := fmt.Sprintf("%d年分", r.FiscalYear)
	if era := EraYear(r.FiscalYear); era > 0 {
		title = fmt.Sprintf("令和%d年分 (%d)", era, r.FiscalYear)
	}
	fmt.Fprintf(&sb, "=== %s 所得税及び復興特別所得税 ===\n", title)
	fmt.Fprintf(&sb, "適用税制: %s / 申告区分: %s\n", r.RuleVersion, r.FilingType)

	section(&sb, "収入金額等")
	line(&sb, "事業 (営業等)", r.Business.Revenue)
	line(&sb, "給与", r.Salary.Revenue)
	line(&sb, "雑 (公的年金等)", r.Pension.Revenue)
	line(&sb, "雑 (その他)", r.Miscellaneous.Revenue+r.Miscellaneous.CryptoIncome)
	if r.Miscellaneous.CryptoGain != 0 {
		line(&sb, "  うち暗号資産の売却益", r.Miscellaneous.CryptoGain)
	}

	if len(r.Business.Lines) > 0 {
		section(&sb, "必要経費")
		for _, l := range r.Business.Lines {
			line(&sb, l.Label, l.Deductible)
		}
		if r.Business.Uncategorized > 0 {
			line(&sb, "未分類 (控除対象外)", r.Business.Uncategorized)
		}
		line(&sb, "経費合計", r.Business.Expenses)
		line(&sb, "青色申告特別控除", r.Business.SpecialDeduction)
	}

	section(&sb, "所得金額等")
	line(&sb, "事業所得", r.Business.Income)
	line(&sb, "給与所得", r.Salary.Income)
	line(&sb, "雑所得 (公的年金等)", r.Pension.Income)
	line(&sb, "雑所得 (その他)", r.Miscellaneous.Income)
	line(&sb, "合計所得金額", r.TotalIncome)

	d := r.Deductions
	section(&sb, "所得から差し引かれる金額")
	line(&sb, "社会保険料控除", d.SocialInsurance)
	line(&sb, "生命保険料控除", d.InsuranceTotal)
	line(&sb, "医療費控除", d.Medical)
	line(&sb, "寄附金控除", d.Donation)
	line(&sb, "配偶者控除", d.Spousal)
	line(&sb, "扶養控除", d.Dependent)
	line(&sb, "基礎控除", d.Basic)
	line(&sb, "所得控除合計", d.Total)

	t := r.Tax
	section(&sb, "税金の計算")
	line(&sb, "課税される所得金額", t.TaxableIncome)
	line(&sb, "所得税額", t.IncomeTax)
	line(&sb, "復興特別所得税額", t.Surtax)
	line(&sb, "所得税及び復興特別所得税の額", t.TotalTax)
	line(&sb, "源泉徴収税額", t.WithholdingTax)
	if t.IsRefund() {
		line(&sb, "還付される税金", t.RefundAmount())
	} else {
		line(&sb, "申告納税額", t.AmountDue())
	}

	if r.Crypto != nil && r.Crypto.FilingRequired {
		sb.WriteString("\n")
		sb.WriteString(r.Crypto.FilingReason)
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatCrypto renders per-currency crypto gains.
func FormatCrypto(r *cryptogain.Result) string {
	var sb strings.Builder

	sb.WriteString("=== 暗号資産の損益 (移動平均法) ===\n")
	cryptoRow(&sb, "通貨", "実現損益", "平均取得単価", "売却数量", "保有数量")
	for _, c := range r.Currencies {
		cryptoRow(&sb,
			c.Currency,
			yenDecimal(c.RealizedGain),
			yenDecimal(c.AverageCost),
			c.QuantitySold.String(),
			c.RemainingQuantity.String(),
		)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "実現損益合計: %s\n", yenDecimal(r.TotalRealizedGain))
	if r.TotalIncomeReceived.IsPositive() {
		fmt.Fprintf(&sb, "受取収入合計: %s\n", yenDecimal(r.TotalIncomeReceived))
	}
	if r.FilingRequired {
		sb.WriteString(r.FilingReason)
	} else {
		sb.WriteString("売却益は申告不要の基準額以下です")
	}
	sb.WriteString("\n")

	return sb.String()
}

// Yen formats an amount with thousands separators, e.g. "1,870,000円".
func Yen(amount int64) string {
	return printer.Sprintf("%d円", amount)
}

func yenDecimal(d decimal.Decimal) string {
	return Yen(d.Floor().IntPart())
}

func section(sb *strings.Builder, title string) {
	fmt.Fprintf(sb, "\n[%s]\n", title)
}

// line writes a label padded to labelWidth display columns and a
// right-aligned amount.
func line(sb *strings.Builder, label string, amount int64) {
	sb.WriteString(label)
	sb.WriteString(strings.Repeat(" ", max(1, labelWidth-displayWidth(label))))

	formatted := Yen(amount)
	sb.WriteString(strings.Repeat(" ", max(0, amountWidth-displayWidth(formatted))))
	sb.WriteString(formatted)
	sb.WriteString("\n")
}

// cryptoRow writes one row of the crypto table, aligned by display columns.
func cryptoRow(sb *strings.Builder, currency, gain, average, sold, remaining string) {
	sb.WriteString(padRight(currency, 8))
	sb.WriteString(" " + padLeft(gain, 16))
	sb.WriteString(" " + padLeft(average, 16))
	sb.WriteString(" " + padLeft(sold, 14))
	sb.WriteString(" " + padLeft(remaining, 14))
	sb.WriteString("\n")
}

func padRight(s string, w int) string {
	return s + strings.Repeat(" ", max(0, w-displayWidth(s)))
}

func padLeft(s string, w int) string {
	return strings.Repeat(" ", max(0, w-displayWidth(s))) + s
}

// displayWidth counts East Asian wide and fullwidth runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}
