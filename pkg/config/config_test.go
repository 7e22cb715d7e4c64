package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KAKUTEI_ROOT", "KAKUTEI_DB_PATH", "KAKUTEI_RULES_DIR",
		"FREEE_ACCESS_TOKEN", "FREEE_COMPANY_ID", "FREEE_API_URL",
		"HTTP_ADDR", "LOG_LEVEL", "DEBUG",
	} {
		// godotenv never overrides a variable that exists, even when empty.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workbook.Root != "./kakutei" {
		t.Errorf("Workbook.Root = %q, expected ./kakutei", cfg.Workbook.Root)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, expected :8080", cfg.HTTPAddr)
	}
	if cfg.Debug {
		t.Error("Debug = true, expected false")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "KAKUTEI_ROOT=/data/kakutei\nFREEE_COMPANY_ID=12345\nLOG_LEVEL=DEBUG\nDEBUG=true\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workbook.Root != "/data/kakutei" {
		t.Errorf("Workbook.Root = %q, expected /data/kakutei", cfg.Workbook.Root)
	}
	if cfg.Freee.CompanyID != 12345 {
		t.Errorf("Freee.CompanyID = %d, expected 12345", cfg.Freee.CompanyID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, expected debug", cfg.LogLevel)
	}
	if !cfg.Debug {
		t.Error("Debug = false, expected true")
	}
}

func TestLoadInvalidCompanyID(t *testing.T) {
	clearEnv(t)
	t.Setenv("FREEE_COMPANY_ID", "abc")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load() with missing env file expected error, got nil")
	}

	chdir(t, t.TempDir())
	if _, err := Load(); err == nil {
		t.Error("Load() with invalid FREEE_COMPANY_ID expected error, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Workbook: WorkbookConfig{Root: "./kakutei"},
		Freee:    FreeeConfig{APIURL: "https://api.freee.co.jp"},
	}

	tests := []struct {
		name     string
		required []string
		wantErr  string
	}{
		{"all set", []string{"workbook.root", "freee.apiUrl"}, ""},
		{"missing token", []string{"freee.accessToken", "freee.companyId"}, "freee.accessToken freee.companyId"},
		{"unknown key", []string{"nope"}, "unknown configuration key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cfg.Validate(tt.required...)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, expected nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, expected to contain %q", err, tt.wantErr)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir(%q) error = %v", prev, err)
		}
	})
}
