package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shunichi-ikebuchi/kakutei/pkg/ledger"
	"github.com/shunichi-ikebuchi/kakutei/pkg/pathutil"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a fiscal year has no workbook.
var ErrNotFound = errors.New("workbook not found")

// Repository defines the interface for workbook file operations.
type Repository interface {
	// Load reads the workbook of a fiscal year
	Load(year int) (*Workbook, error)

	// Save writes a workbook, replacing any previous content
	Save(w *Workbook) error

	// Years lists the fiscal years that have a workbook
	Years() ([]int, error)

	// AppendLedgerEntries adds entries whose IDs are not yet recorded
	AppendLedgerEntries(year int, entries []ledger.LedgerEntry) (int, error)

	// RemoveLedgerEntries drops the entries matching match
	RemoveLedgerEntries(year int, match func(ledger.LedgerEntry) bool) (int, error)

	// TradesThrough collects crypto trades of every workbook up to year
	TradesThrough(year int) ([]ledger.CryptoTradeEntry, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// Load reads the workbook of a fiscal year.
// Returns an error wrapping ErrNotFound if the file doesn't exist.
func (r *FileSystemRepository) Load(year int) (*Workbook, error) {
	filePath, err := r.pathResolver.WorkbookPath(year)
	if err != nil {
		return nil, fmt.Errorf("failed to get workbook path: %w", err)
	}

	if !r.pathResolver.FileExists(filePath) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var w Workbook
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse workbook %s: %w", filePath, err)
	}

	if w.FiscalYear == 0 {
		w.FiscalYear = year
	}
	if w.FiscalYear != year {
		return nil, fmt.Errorf("workbook %s declares fiscal year %d", filePath, w.FiscalYear)
	}

	return &w, nil
}

// LoadOrNew reads the workbook of a fiscal year, or returns an empty one.
func (r *FileSystemRepository) LoadOrNew(year int) (*Workbook, error) {
	w, err := r.Load(year)
	if errors.Is(err, ErrNotFound) {
		return New(year), nil
	}
	return w, err
}

// Save writes a workbook, creating its year directory as needed.
func (r *FileSystemRepository) Save(w *Workbook) error {
	filePath, err := r.pathResolver.WorkbookPath(w.FiscalYear)
	if err != nil {
		return fmt.Errorf("failed to get workbook path: %w", err)
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(r.generateFileHeader(w.FiscalYear))

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(w); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}

	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Years lists the fiscal years that have a workbook, ascending.
func (r *FileSystemRepository) Years() ([]int, error) {
	return r.pathResolver.Years()
}

// AppendLedgerEntries adds ledger entries to a year's workbook, creating it
// if needed. Entries with an ID already in the workbook are skipped.
// Returns the number of entries added.
func (r *FileSystemRepository) AppendLedgerEntries(year int, entries []ledger.LedgerEntry) (int, error) {
	w, err := r.LoadOrNew(year)
	if err != nil {
		return 0, err
	}

	known := make(map[string]bool, len(w.Ledger))
	for _, e := range w.Ledger {
		if e.ID != "" {
			known[e.ID] = true
		}
	}

	added := 0
	for _, e := range entries {
		if e.ID != "" && known[e.ID] {
			continue
		}
		w.Ledger = append(w.Ledger, e)
		known[e.ID] = true
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := r.Save(w); err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveLedgerEntries deletes the ledger entries for which match returns
// true. A missing workbook has nothing to remove.
// Returns the number of entries removed.
func (r *FileSystemRepository) RemoveLedgerEntries(year int, match func(ledger.LedgerEntry) bool) (int, error) {
	w, err := r.Load(year)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	kept := w.Ledger[:0]
	removed := 0
	for _, e := range w.Ledger {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}

	if removed == 0 {
		return 0, nil
	}
	w.Ledger = kept
	if err := r.Save(w); err != nil {
		return 0, err
	}
	return removed, nil
}

// TradesThrough collects the crypto trades recorded in every workbook up to
// and including year, oldest workbook first.
func (r *FileSystemRepository) TradesThrough(year int) ([]ledger.CryptoTradeEntry, error) {
	years, err := r.Years()
	if err != nil {
		return nil, err
	}

	var trades []ledger.CryptoTradeEntry
	for _, y := range years {
		if y > year {
			break
		}
		w, err := r.Load(y)
		if err != nil {
			return nil, err
		}
		trades = append(trades, w.Trades...)
	}
	return trades, nil
}

// generateFileHeader generates a header comment for a workbook file.
func (r *FileSystemRepository) generateFileHeader(year int) string {
	now := time.Now().Format(time.RFC3339)
	return fmt.Sprintf("# kakutei workbook for fiscal year %d\n# Updated at %s\n\n", year, now)
}
