// Package pathutil provides centralized path management for workbooks and the history database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WorkbookFileName is the file holding one fiscal year's inputs.
const WorkbookFileName = "workbook.yaml"

// PathResolver manages paths for yearly workbooks and the database.
type PathResolver struct {
	root         string
	databasePath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// Root is the directory holding one subdirectory per fiscal year (e.g., ~/kakutei)
	Root string
	// DatabasePath is the path to the SQLite history database
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {Root}/.kakutei/history.db
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.Root, ".kakutei", "history.db")
	}

	return &PathResolver{
		root:         config.Root,
		databasePath: dbPath,
	}
}

// Root returns the workbook root directory.
func (p *PathResolver) Root() string {
	return p.root
}

// DatabasePath returns the database file path.
func (p *PathResolver) DatabasePath() string {
	return p.databasePath
}

// YearDir returns the directory path for a fiscal year.
// Example: ~/kakutei/2024
func (p *PathResolver) YearDir(year int) string {
	return filepath.Join(p.root, strconv.Itoa(year))
}

// WorkbookPath returns the workbook file path for a fiscal year.
// Example: ~/kakutei/2024/workbook.yaml
func (p *PathResolver) WorkbookPath(year int) (string, error) {
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("invalid fiscal year: %d. Expected YYYY", year)
	}
	return filepath.Join(p.YearDir(year), WorkbookFileName), nil
}

// Years returns the fiscal years that have a workbook, ascending.
func (p *PathResolver) Years() ([]int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workbook root %s: %w", p.root, err)
	}

	var years []int
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) != 4 {
			continue
		}
		year, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		if p.FileExists(filepath.Join(p.YearDir(year), WorkbookFileName)) {
			years = append(years, year)
		}
	}
	// os.ReadDir sorts by name, and four-digit names sort numerically.
	return years, nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
