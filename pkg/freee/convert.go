package freee

import (
	"fmt"
	"strings"

	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

// EntryID returns the ledger entry ID for a deal detail.
func EntryID(dealID int64, index int) string {
	return fmt.Sprintf("%s%d", entryIDPrefix(dealID), index+1)
}

// IsEntryOf reports whether a ledger entry was imported from the deal.
func IsEntryOf(entryID string, dealID int64) bool {
	return strings.HasPrefix(entryID, entryIDPrefix(dealID))
}

func entryIDPrefix(dealID int64) string {
	return fmt.Sprintf("freee-%d-", dealID)
}

// ToLedgerEntries converts deals to ledger entries, one per detail line.
// Amounts include consumption tax. Income lines become negative amounts.
// Expense lines are categorized through the rule set's freee account names;
// unmapped lines stay uncategorized and pending review.
func ToLedgerEntries(deals []Deal, rules *taxrule.RuleSet) []ledger.LedgerEntry {
	var entries []ledger.LedgerEntry

	for _, deal := range deals {
		for i, detail := range deal.Details {
			entry := ledger.LedgerEntry{
				ID:          EntryID(deal.ID, i),
				Date:        deal.IssueDate,
				Amount:      detail.Amount + detail.Vat,
				Status:      ledger.StatusApproved,
				Description: describe(deal, detail),
			}

			if deal.Type == DealIncome {
				entry.Amount = -entry.Amount
			} else if category, ok := rules.CategoryForFreee(detail.AccountItemName); ok {
				entry.Category = category
			} else {
				entry.Status = ledger.StatusPending
			}

			entries = append(entries, entry)
		}
	}

	return entries
}

func describe(deal Deal, detail Detail) string {
	desc := detail.AccountItemName
	if detail.Description != nil && *detail.Description != "" {
		desc = fmt.Sprintf("%s: %s", desc, *detail.Description)
	}
	if deal.PartnerCode != nil && *deal.PartnerCode != "" {
		desc = fmt.Sprintf("%s (%s)", desc, *deal.PartnerCode)
	}
	return desc
}
