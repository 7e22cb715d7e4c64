package freee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxrule"
)

func newTestServer(t *testing.T, total int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/1/deals" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "unauthorized", ErrorDescription: "invalid token"})
			return
		}
		if r.URL.Query().Get("company_id") != "42" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "missing company")
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var resp DealsResponse
		for i := offset; i < total && i < offset+limit; i++ {
			resp.Deals = append(resp.Deals, Deal{
				ID:        int64(i + 1),
				IssueDate: "2024-01-10",
				Type:      DealExpense,
				Amount:    1000,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFetchAllDealsPaginates(t *testing.T) {
	server := newTestServer(t, 250)
	defer server.Close()

	client := NewClient(ClientConfig{APIURL: server.URL, AccessToken: "test-token", CompanyID: 42})

	deals, err := client.FetchYear(context.Background(), 2024)
	if err != nil {
		t.Fatalf("FetchYear() error = %v", err)
	}
	if len(deals) != 250 {
		t.Errorf("FetchYear() returned %d deals, expected 250", len(deals))
	}
	if deals[249].ID != 250 {
		t.Errorf("last deal ID = %d, expected 250", deals[249].ID)
	}
}

func TestListDealsErrors(t *testing.T) {
	server := newTestServer(t, 1)
	defer server.Close()

	tests := []struct {
		name      string
		token     string
		companyID int64
		wantErr   string
	}{
		{"json error body", "wrong", 42, "unauthorized - invalid token"},
		{"plain error body", "test-token", 7, "status 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(ClientConfig{APIURL: server.URL, AccessToken: tt.token, CompanyID: tt.companyID})
			_, err := client.ListDeals(context.Background(), nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ListDeals() error = %v, expected to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestListDealsCanceled(t *testing.T) {
	server := newTestServer(t, 1)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(ClientConfig{APIURL: server.URL, AccessToken: "test-token", CompanyID: 42})
	if _, err := client.ListDeals(ctx, nil); err == nil {
		t.Error("ListDeals() with canceled context expected error, got nil")
	}
}

func TestIsEntryOf(t *testing.T) {
	tests := []struct {
		entryID  string
		dealID   int64
		expected bool
	}{
		{EntryID(12, 0), 12, true},
		{EntryID(12, 4), 12, true},
		{EntryID(123, 0), 12, false},
		{EntryID(1, 0), 12, false},
		{"manual-12", 12, false},
	}

	for _, tt := range tests {
		if got := IsEntryOf(tt.entryID, tt.dealID); got != tt.expected {
			t.Errorf("IsEntryOf(%q, %d) = %v, expected %v", tt.entryID, tt.dealID, got, tt.expected)
		}
	}
}

func TestToLedgerEntries(t *testing.T) {
	book, err := taxrule.DefaultBook()
	if err != nil {
		t.Fatalf("DefaultBook() error = %v", err)
	}
	rules, err := book.ForYear(2024)
	if err != nil {
		t.Fatalf("ForYear() error = %v", err)
	}

	memo := "モバイル回線"
	partner := "ACME"
	deals := []Deal{
		{
			ID: 1, IssueDate: "2024-02-01", Type: DealIncome, PartnerCode: &partner,
			Details: []Detail{{AccountItemName: "売上高", Amount: 500_000, Vat: 50_000}},
		},
		{
			ID: 2, IssueDate: "2024-02-05", Type: DealExpense,
			Details: []Detail{
				{AccountItemName: "通信費", Amount: 8_000, Vat: 800, Description: &memo},
				{AccountItemName: "研究開発費", Amount: 3_000},
			},
		},
	}

	entries := ToLedgerEntries(deals, rules)
	if len(entries) != 3 {
		t.Fatalf("ToLedgerEntries() returned %d entries, expected 3", len(entries))
	}

	tests := []struct {
		name         string
		entry        ledger.LedgerEntry
		wantID       string
		wantAmount   int64
		wantCategory taxrule.Category
		wantStatus   ledger.EntryStatus
	}{
		{"income", entries[0], "freee-1-1", -550_000, "", ledger.StatusApproved},
		{"mapped expense", entries[1], "freee-2-1", 8_800, taxrule.CategoryCommunication, ledger.StatusApproved},
		{"unmapped expense", entries[2], "freee-2-2", 3_000, "", ledger.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.entry.ID != tt.wantID {
				t.Errorf("ID = %q, expected %q", tt.entry.ID, tt.wantID)
			}
			if tt.entry.Amount != tt.wantAmount {
				t.Errorf("Amount = %d, expected %d", tt.entry.Amount, tt.wantAmount)
			}
			if tt.entry.Category != tt.wantCategory {
				t.Errorf("Category = %q, expected %q", tt.entry.Category, tt.wantCategory)
			}
			if tt.entry.Status != tt.wantStatus {
				t.Errorf("Status = %q, expected %q", tt.entry.Status, tt.wantStatus)
			}
		})
	}

	if entries[1].Description != "通信費: モバイル回線" {
		t.Errorf("Description = %q, expected 通信費: モバイル回線", entries[1].Description)
	}
	if entries[0].Description != "売上高 (ACME)" {
		t.Errorf("Description = %q, expected 売上高 (ACME)", entries[0].Description)
	}
	if err := ledger.ValidateLedger(entries); err != nil {
		t.Errorf("ValidateLedger() error = %v", err)
	}
}
