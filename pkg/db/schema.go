// Package db provides SQLite database management for import and return history.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Import history table
-- Tracks which freee deals have been imported into a workbook
CREATE TABLE IF NOT EXISTS import_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    freee_id INTEGER NOT NULL UNIQUE,  -- Deal ID from freee API
    fiscal_year INTEGER NOT NULL,
    issue_date TEXT NOT NULL,          -- YYYY-MM-DD
    amount INTEGER NOT NULL,           -- Amount in JPY (integer)
    entries INTEGER NOT NULL,          -- Ledger entries created from the deal
    workbook_file TEXT NOT NULL,
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_import_history_year
    ON import_history(fiscal_year);

-- Return history table
-- One row per computed return; result_json holds the full result
CREATE TABLE IF NOT EXISTS return_history (
    id TEXT PRIMARY KEY,               -- UUID
    fiscal_year INTEGER NOT NULL,
    rule_version TEXT NOT NULL,
    filing_type TEXT NOT NULL,
    total_income INTEGER NOT NULL,
    taxable_income INTEGER NOT NULL,
    total_tax INTEGER NOT NULL,
    withholding_tax INTEGER NOT NULL,
    final_amount INTEGER NOT NULL,     -- Negative for a refund
    result_json TEXT NOT NULL,
    computed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_return_history_year
    ON return_history(fiscal_year, computed_at);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
