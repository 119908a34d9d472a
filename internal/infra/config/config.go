// Package config provides application-wide configuration loaded from env vars.
// A .env file in the working directory is applied first when present; values
// already set in the process environment win over the file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAzureAPIVersion is the api-version query value sent to Azure OpenAI.
const DefaultAzureAPIVersion = "2023-07-01-preview"

// Config holds runtime configuration for opsagent.
// It is read once at startup and never mutated afterwards.
type Config struct {
	// LLM
	LLMProvider string        // LLM_PROVIDER: default: "azure"
	LLMTimeout  time.Duration // LLM_TIMEOUT: default: 0 (transport default)

	// Azure OpenAI. Not validated: empty values surface as remote failures.
	AzureEndpoint   string // AZURE_OPENAI_ENDPOINT
	AzureAPIKey     string // AZURE_OPENAI_API_KEY
	AzureAPIVersion string // AZURE_OPENAI_API_VERSION: default: "2023-07-01-preview"
	AzureDeployment string // AZURE_OPENAI_DEPLOYMENT_NAME

	// Ollama
	OllamaBaseURL   string // OLLAMA_BASE_URL: default: "http://localhost:11434"
	OllamaChatModel string // OLLAMA_CHAT_MODEL: default: "llama3.2:3b"

	// Personas and audit
	PersonasFile string // PERSONAS_FILE: optional YAML overlay
	AuditDBPath  string // AUDIT_DB_PATH: empty disables the audit trail

	// HTTP API
	HTTPHost          string        // HTTP_HOST: default: "0.0.0.0"
	HTTPPort          int           // HTTP_PORT: default: 8080
	JWTSecret         string        // JWT_SECRET
	JWTExpiry         time.Duration // JWT_EXPIRY (hours): default: 24h
	AdminPasswordHash string        // ADMIN_PASSWORD_HASH: bcrypt hash for POST /auth/token

	// Logging
	LogLevel  string // LOG_LEVEL: default: "info"
	LogFormat string // LOG_FORMAT: "text" | "json", default: "text"
}

const (
	envKeyLLMProvider       = "LLM_PROVIDER"
	envKeyLLMTimeout        = "LLM_TIMEOUT"
	envKeyAzureEndpoint     = "AZURE_OPENAI_ENDPOINT"
	envKeyAzureAPIKey       = "AZURE_OPENAI_API_KEY"
	envKeyAzureAPIVersion   = "AZURE_OPENAI_API_VERSION"
	envKeyAzureDeployment   = "AZURE_OPENAI_DEPLOYMENT_NAME"
	envKeyOllamaBaseURL     = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel   = "OLLAMA_CHAT_MODEL"
	envKeyPersonasFile      = "PERSONAS_FILE"
	envKeyAuditDBPath       = "AUDIT_DB_PATH"
	envKeyHTTPHost          = "HTTP_HOST"
	envKeyHTTPPort          = "HTTP_PORT"
	envKeyJWTSecret         = "JWT_SECRET"
	envKeyJWTExpiry         = "JWT_EXPIRY"
	envKeyAdminPasswordHash = "ADMIN_PASSWORD_HASH"
	envKeyLogLevel          = "LOG_LEVEL"
	envKeyLogFormat         = "LOG_FORMAT"
)

const (
	defaultJWTExpiryHours = 24
	defaultHTTPPort       = 8080
)

// Load applies the optional .env file and reads configuration from the environment.
func Load() Config {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are ignored.
func LoadFiles(paths ...string) Config {
	for _, p := range paths {
		// godotenv.Load does not override variables that are already set.
		_ = godotenv.Load(p)
	}
	return fromEnv()
}

func fromEnv() Config {
	return Config{
		LLMProvider:       envOr(envKeyLLMProvider, "azure"),
		LLMTimeout:        envDuration(envKeyLLMTimeout, 0),
		AzureEndpoint:     os.Getenv(envKeyAzureEndpoint),
		AzureAPIKey:       os.Getenv(envKeyAzureAPIKey),
		AzureAPIVersion:   envOr(envKeyAzureAPIVersion, DefaultAzureAPIVersion),
		AzureDeployment:   os.Getenv(envKeyAzureDeployment),
		OllamaBaseURL:     envOr(envKeyOllamaBaseURL, "http://localhost:11434"),
		OllamaChatModel:   envOr(envKeyOllamaChatModel, "llama3.2:3b"),
		PersonasFile:      os.Getenv(envKeyPersonasFile),
		AuditDBPath:       os.Getenv(envKeyAuditDBPath),
		HTTPHost:          envOr(envKeyHTTPHost, "0.0.0.0"),
		HTTPPort:          envInt(envKeyHTTPPort, defaultHTTPPort),
		JWTSecret:         os.Getenv(envKeyJWTSecret),
		JWTExpiry:         time.Duration(envInt(envKeyJWTExpiry, defaultJWTExpiryHours)) * time.Hour,
		AdminPasswordHash: os.Getenv(envKeyAdminPasswordHash),
		LogLevel:          envOr(envKeyLogLevel, "info"),
		LogFormat:         envOr(envKeyLogFormat, "text"),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses key as an integer; invalid or missing values yield fallback.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration parses key with time.ParseDuration; a bare integer is read as seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
