package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestDotenvQuoting(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `DATA_PATH='` + dir + `'
AGENTS_FILE="` + filepath.Join(dir, "my agents.yaml") + `"
GEMINI_MODEL='gemini "flash"'
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"DATA_PATH", "AGENTS_FILE", "GEMINI_MODEL", "LOGS_FOLDER", "SESSION_DIR"} {
		unsetEnv(t, key)
	}

	if err := godotenv.Load(envFile); err != nil {
		t.Fatalf("godotenv.Load() error = %v", err)
	}
	cfg := fromEnv("")

	if cfg.DataPath != dir {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, dir)
	}
	if want := filepath.Join(dir, "my agents.yaml"); cfg.AgentsFile != want {
		t.Errorf("AgentsFile = %q, want %q", cfg.AgentsFile, want)
	}
	if want := `gemini "flash"`; cfg.LLM.Model != want {
		t.Errorf("Model = %q, want %q", cfg.LLM.Model, want)
	}
	if _, err := os.Stat(cfg.SessionDir); err != nil {
		t.Errorf("session dir not created: %v", err)
	}
}
