package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shunichi-ikebuchi/kakutei/pkg/taxreturn"
)

// ImportRecord represents an imported freee deal.
type ImportRecord struct {
	ID           int64
	FreeeID      int64
	FiscalYear   int
	IssueDate    string
	Amount       int64
	Entries      int
	WorkbookFile string
	ImportedAt   time.Time
}

// ReturnRecord represents a computed return.
type ReturnRecord struct {
	ID             string
	FiscalYear     int
	RuleVersion    string
	FilingType     string
	TotalIncome    int64
	TaxableIncome  int64
	TotalTax       int64
	WithholdingTax int64
	FinalAmount    int64
	ResultJSON     string
	ComputedAt     time.Time
}

// Result decodes the stored return.
func (r ReturnRecord) Result() (*taxreturn.Result, error) {
	var result taxreturn.Result
	if err := json.Unmarshal([]byte(r.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to decode return %s: %w", r.ID, err)
	}
	return &result, nil
}

// History manages import and return history operations.
type History struct {
	conn *Connection
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn}
}

const recordImportQuery = `
	INSERT INTO import_history (freee_id, fiscal_year, issue_date, amount, entries, workbook_file)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(freee_id) DO UPDATE SET
		fiscal_year = excluded.fiscal_year,
		issue_date = excluded.issue_date,
		amount = excluded.amount,
		entries = excluded.entries,
		workbook_file = excluded.workbook_file,
		imported_at = CURRENT_TIMESTAMP
`

// RecordImports records imported deals in one transaction.
// A deal imported before has its record updated.
func (h *History) RecordImports(records []ImportRecord) error {
	return h.conn.Transaction(func(tx *sql.Tx) error {
		for _, record := range records {
			if _, err := tx.Exec(recordImportQuery,
				record.FreeeID,
				record.FiscalYear,
				record.IssueDate,
				record.Amount,
				record.Entries,
				record.WorkbookFile,
			); err != nil {
				return fmt.Errorf("failed to record import of deal %d: %w", record.FreeeID, err)
			}
		}
		return nil
	})
}

// ImportedIDs retrieves all imported freee deal IDs.
// This is useful for bulk filtering.
func (h *History) ImportedIDs() ([]int64, error) {
	rows, err := h.conn.Query(`SELECT freee_id FROM import_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to get imported IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan freee ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteImport deletes an import record so the deal is imported again.
func (h *History) DeleteImport(freeeID int64) (bool, error) {
	result, err := h.conn.Exec(`DELETE FROM import_history WHERE freee_id = ?`, freeeID)
	if err != nil {
		return false, fmt.Errorf("failed to delete import record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// RecordReturn stores a computed return under a new UUID and returns the record.
func (h *History) RecordReturn(result *taxreturn.Result) (*ReturnRecord, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode return: %w", err)
	}

	record := &ReturnRecord{
		ID:             uuid.NewString(),
		FiscalYear:     result.FiscalYear,
		RuleVersion:    result.RuleVersion,
		FilingType:     string(result.FilingType),
		TotalIncome:    result.TotalIncome,
		TaxableIncome:  result.Tax.TaxableIncome,
		TotalTax:       result.Tax.TotalTax,
		WithholdingTax: result.Tax.WithholdingTax,
		FinalAmount:    result.Tax.FinalAmount,
		ResultJSON:     string(data),
		ComputedAt:     time.Now().UTC(),
	}

	query := `
		INSERT INTO return_history (id, fiscal_year, rule_version, filing_type, total_income,
			taxable_income, total_tax, withholding_tax, final_amount, result_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = h.conn.Exec(query,
		record.ID,
		record.FiscalYear,
		record.RuleVersion,
		record.FilingType,
		record.TotalIncome,
		record.TaxableIncome,
		record.TotalTax,
		record.WithholdingTax,
		record.FinalAmount,
		record.ResultJSON,
		record.ComputedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record return: %w", err)
	}

	return record, nil
}

// GetReturn retrieves a return by ID. Returns nil if it doesn't exist.
func (h *History) GetReturn(id string) (*ReturnRecord, error) {
	query := `
		SELECT id, fiscal_year, rule_version, filing_type, total_income, taxable_income,
			total_tax, withholding_tax, final_amount, result_json, computed_at
		FROM return_history
		WHERE id = ?
	`

	record, err := scanReturn(h.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}

	return record, nil
}

// ReturnsByYear retrieves the returns computed for a fiscal year, newest first.
// A year of 0 lists every year.
func (h *History) ReturnsByYear(year int) ([]ReturnRecord, error) {
	query := `
		SELECT id, fiscal_year, rule_version, filing_type, total_income, taxable_income,
			total_tax, withholding_tax, final_amount, result_json, computed_at
		FROM return_history
		WHERE ? = 0 OR fiscal_year = ?
		ORDER BY computed_at DESC, rowid DESC
	`

	rows, err := h.conn.Query(query, year, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get returns by year: %w", err)
	}
	defer rows.Close()

	var records []ReturnRecord
	for rows.Next() {
		record, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReturn(row rowScanner) (*ReturnRecord, error) {
	var record ReturnRecord
	err := row.Scan(
		&record.ID,
		&record.FiscalYear,
		&record.RuleVersion,
		&record.FilingType,
		&record.TotalIncome,
		&record.TaxableIncome,
		&record.TotalTax,
		&record.WithholdingTax,
		&record.FinalAmount,
		&record.ResultJSON,
		&record.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Stats represents history statistics.
type Stats struct {
	TotalImports int
	TotalReturns int
	FiscalYears  int
	LastImport   sql.NullString
	LastComputed sql.NullString
}

// GetStats retrieves history statistics.
func (h *History) GetStats() (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(`SELECT COUNT(*) FROM import_history`).Scan(&stats.TotalImports)
	if err != nil {
		return nil, fmt.Errorf("failed to get import count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT fiscal_year) FROM return_history`).Scan(&stats.TotalReturns, &stats.FiscalYears)
	if err != nil {
		return nil, fmt.Errorf("failed to get return count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT MAX(imported_at) FROM import_history`).Scan(&stats.LastImport)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last import time: %w", err)
	}

	err = h.conn.QueryRow(`SELECT MAX(computed_at) FROM return_history`).Scan(&stats.LastComputed)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last computation time: %w", err)
	}

	return &stats, nil
}
