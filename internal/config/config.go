package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LLMConfig holds the Gemini settings for the advisor and narrative scoring.
type LLMConfig struct {
	APIKey           string
	Model            string
	EmbeddingModel   string
	EmbeddingTimeout time.Duration
	AdvisorTimeout   time.Duration
	AdvisorRetries   int
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	SessionDir          string
	CatalogueFile       string
	ReferenceFile       string
	IndustryFile        string
	AgentsFile          string
	NameMappingFile     string
	DatabaseURL         string
	LLM                 LLMConfig
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return fromEnv(exeDir), nil
}

func fromEnv(exeDir string) *AppConfig {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	sessionDir := getEnv("SESSION_DIR", filepath.Join(dataPath, "calculated"))

	for _, dir := range []string{logDir, sessionDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	return &AppConfig{
		DataPath:        dataPath,
		LogDir:          logDir,
		SessionDir:      sessionDir,
		CatalogueFile:   getEnv("CATALOGUE_FILE", filepath.Join(dataPath, "kpis.hjson")),
		ReferenceFile:   getEnv("REFERENCE_FILE", filepath.Join(dataPath, "references.json")),
		IndustryFile:    getEnv("INDUSTRY_FILE", filepath.Join(dataPath, "industries.csv")),
		AgentsFile:      getEnv("AGENTS_FILE", filepath.Join(dataPath, "agents.yaml")),
		NameMappingFile: getEnv("NAME_MAPPING_FILE", filepath.Join(dataPath, "kpi_name_mapping.json")),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		LLM: LLMConfig{
			APIKey:           getEnv("GEMINI_API_KEY", ""),
			Model:            getEnv("GEMINI_MODEL", ""),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", ""),
			EmbeddingTimeout: time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30)) * time.Second,
			AdvisorTimeout:   time.Duration(getEnvInt("ADVISOR_TIMEOUT_SECONDS", 120)) * time.Second,
			AdvisorRetries:   getEnvInt("ADVISOR_RETRIES", 2),
		},
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil && intVal >= 0 {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer setting")
	}
	return fallback
}
