package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	for _, key := range []string{"LOGS_FOLDER", "SESSION_DIR", "REFERENCE_FILE", "INDUSTRY_FILE", "EMBEDDING_TIMEOUT_SECONDS", "ADVISOR_RETRIES", "ENABLE_MERMAID_CHARTS"} {
		unsetEnv(t, key)
	}
	cfg := fromEnv("")

	if cfg.DataPath != dir {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, dir)
	}
	if cfg.ReferenceFile != filepath.Join(dir, "references.json") {
		t.Errorf("ReferenceFile = %q", cfg.ReferenceFile)
	}
	if cfg.IndustryFile != filepath.Join(dir, "industries.csv") {
		t.Errorf("IndustryFile = %q", cfg.IndustryFile)
	}
	if cfg.LLM.EmbeddingTimeout != 30*time.Second {
		t.Errorf("EmbeddingTimeout = %v, want 30s", cfg.LLM.EmbeddingTimeout)
	}
	if cfg.LLM.AdvisorRetries != 2 {
		t.Errorf("AdvisorRetries = %d, want 2", cfg.LLM.AdvisorRetries)
	}
	if cfg.EnableMermaidCharts {
		t.Error("EnableMermaidCharts should default to false")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("SESSION_DIR", filepath.Join(dir, "out"))
	t.Setenv("LOGS_FOLDER", filepath.Join(dir, "logs"))
	t.Setenv("CATALOGUE_FILE", "/etc/esg/kpis.json")
	t.Setenv("DATABASE_URL", "postgres://localhost/esg")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("EMBEDDING_TIMEOUT_SECONDS", "5")
	t.Setenv("ADVISOR_RETRIES", "not-a-number")
	t.Setenv("ENABLE_MERMAID_CHARTS", "true")

	cfg := fromEnv("")

	if cfg.SessionDir != filepath.Join(dir, "out") {
		t.Errorf("SessionDir = %q", cfg.SessionDir)
	}
	if cfg.CatalogueFile != "/etc/esg/kpis.json" {
		t.Errorf("CatalogueFile = %q", cfg.CatalogueFile)
	}
	if cfg.DatabaseURL != "postgres://localhost/esg" || cfg.LLM.APIKey != "key" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LLM.EmbeddingTimeout != 5*time.Second {
		t.Errorf("EmbeddingTimeout = %v, want 5s", cfg.LLM.EmbeddingTimeout)
	}
	if cfg.LLM.AdvisorRetries != 2 {
		t.Errorf("AdvisorRetries = %d, want fallback 2", cfg.LLM.AdvisorRetries)
	}
	if !cfg.EnableMermaidCharts {
		t.Error("EnableMermaidCharts = false, want true")
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"7", 7},
		{"0", 0},
		{"-1", 3},
		{"abc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ESG_TEST_INT", tt.value)
			if got := getEnvInt("ESG_TEST_INT", 3); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}
