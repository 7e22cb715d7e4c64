package taxrule

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed rules/*.yaml
var embeddedRules embed.FS

// ConfigurationError is returned when a rule table is malformed or a lookup
// finds no matching tier.
type ConfigurationError struct {
	Table  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tax rule configuration error in %s: %s", e.Table, e.Reason)
}

func configErrorf(table, format string, args ...interface{}) error {
	return &ConfigurationError{Table: table, Reason: fmt.Sprintf(format, args...)}
}

// Book is the set of rule versions, ordered by FromYear.
type Book struct {
	versions []*RuleSet
}

// DefaultBook returns the rule versions embedded in the binary.
func DefaultBook() (*Book, error) {
	return loadBookFS(embeddedRules, "rules")
}

// LoadBook loads every *.yaml rule version from dir.
// An empty dir falls back to the embedded tables.
func LoadBook(dir string) (*Book, error) {
	if dir == "" {
		return DefaultBook()
	}
	return loadBookFS(os.DirFS(dir), ".")
}

func loadBookFS(fsys fs.FS, dir string) (*Book, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var versions []*RuleSet
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		if err != nil {
			return nil, fmt.Errorf("failed to read rule file %s: %w", entry.Name(), err)
		}

		rules, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule file %s: %w", entry.Name(), err)
		}
		versions = append(versions, rules)
	}

	if len(versions) == 0 {
		return nil, configErrorf("book", "no rule versions found")
	}

	return NewBook(versions...), nil
}

// NewBook builds a Book from already parsed rule sets.
func NewBook(versions ...*RuleSet) *Book {
	book := &Book{versions: append([]*RuleSet(nil), versions...)}
	sort.Slice(book.versions, func(i, j int) bool {
		return book.versions[i].FromYear < book.versions[j].FromYear
	})
	return book
}

// ForYear returns the rule version in force for the fiscal year.
func (b *Book) ForYear(year int) (*RuleSet, error) {
	for i := len(b.versions) - 1; i >= 0; i-- {
		if b.versions[i].Covers(year) {
			return b.versions[i], nil
		}
	}
	return nil, configErrorf("book", "no rule version covers fiscal year %d", year)
}

// Versions returns the loaded rule versions.
func (b *Book) Versions() []*RuleSet {
	return append([]*RuleSet(nil), b.versions...)
}

// Parse decodes and validates one rule version.
func Parse(data []byte) (*RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := rules.validate(); err != nil {
		return nil, err
	}

	rules.buildMappingMaps()
	return &rules, nil
}

func (r *RuleSet) validate() error {
	if r.Version == "" {
		return configErrorf("version", "version is required")
	}
	if r.ToYear != 0 && r.ToYear < r.FromYear {
		return configErrorf("version", "to_year %d precedes from_year %d", r.ToYear, r.FromYear)
	}

	tables := []struct {
		name  string
		table BracketTable
	}{
		{"income_tax", r.IncomeTax},
		{"salary_deduction", r.SalaryDeduction},
		{"pension_deduction.under_65", r.PensionDeduction.Under65},
		{"pension_deduction.aged_65_or_over", r.PensionDeduction.Aged65OrOver},
		{"basic_deduction", r.BasicDeduction},
	}
	for _, t := range tables {
		if err := t.table.validate(t.name); err != nil {
			return err
		}
	}

	if r.SurtaxRate.IsNegative() {
		return configErrorf("surtax_rate", "rate must not be negative")
	}

	caps := r.InsuranceCaps
	if caps.Life < 0 || caps.Medical < 0 || caps.Pension < 0 || caps.Combined < 0 {
		return configErrorf("insurance_caps", "caps must not be negative")
	}
	if r.MedicalCap < 0 {
		return configErrorf("medical_cap", "cap must not be negative")
	}

	for filingType, amount := range r.SpecialDeduction {
		if amount < 0 {
			return configErrorf("special_deduction", "amount for %s must not be negative", filingType)
		}
	}

	seen := make(map[Category]bool, len(r.Categories))
	for _, rule := range r.Categories {
		if !rule.Category.Valid() {
			return configErrorf("categories", "unknown category %q", rule.Category)
		}
		if seen[rule.Category] {
			return configErrorf("categories", "duplicate rule for %q", rule.Category)
		}
		if rule.Cap != nil && *rule.Cap < 0 {
			return configErrorf("categories", "cap for %q must not be negative", rule.Category)
		}
		seen[rule.Category] = true
	}
	for _, c := range KnownCategories {
		if !seen[c] {
			return configErrorf("categories", "missing rule for %q", c)
		}
	}

	return nil
}

// buildMappingMaps builds the category lookup maps.
func (r *RuleSet) buildMappingMaps() {
	r.categoryMap = make(map[Category]CategoryRule, len(r.Categories))
	r.freeeMap = make(map[string]Category)
	for _, rule := range r.Categories {
		r.categoryMap[rule.Category] = rule
		for _, name := range rule.FreeeNames {
			r.freeeMap[name] = rule.Category
		}
	}
}

func (t BracketTable) validate(name string) error {
	if len(t) == 0 {
		return configErrorf(name, "table is empty")
	}

	for i, b := range t {
		last := i == len(t)-1
		if b.Rate.IsNegative() {
			return configErrorf(name, "tier %d has a negative rate", i)
		}
		if last {
			if !b.Unbounded() {
				return configErrorf(name, "final tier must be unbounded")
			}
			continue
		}
		if b.Unbounded() {
			return configErrorf(name, "tier %d is unbounded but not final", i)
		}
		if i > 0 && *b.Max <= *t[i-1].Max {
			return configErrorf(name, "tier %d is not ascending", i)
		}
	}

	return nil
}

// Lookup returns the first tier whose Max is at or above v.
func (t BracketTable) Lookup(v int64) (Bracket, error) {
	for _, b := range t {
		if b.Unbounded() || v <= *b.Max {
			return b, nil
		}
	}
	return Bracket{}, configErrorf("bracket table", "no tier matches %d", v)
}

// Category returns the rule for an expense category.
func (r *RuleSet) Category(c Category) (CategoryRule, error) {
	rule, ok := r.categoryMap[c]
	if !ok {
		return CategoryRule{}, configErrorf("categories", "no rule for %q", c)
	}
	return rule, nil
}

// CategoryForFreee maps a freee account item name to a category.
func (r *RuleSet) CategoryForFreee(accountItemName string) (Category, bool) {
	c, ok := r.freeeMap[accountItemName]
	return c, ok
}

// SpecialDeductionFor returns the nominal special deduction for a filing type.
func (r *RuleSet) SpecialDeductionFor(filingType string) (int64, error) {
	amount, ok := r.SpecialDeduction[filingType]
	if !ok {
		return 0, configErrorf("special_deduction", "no amount for filing type %q", filingType)
	}
	return amount, nil
}
