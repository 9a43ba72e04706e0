package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Mcp      MCPConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenRouter    string // server-level fallback, user keys override
	UniverMcp     string
	SnapshotTopic string
}

type AIConfig struct {
	LLMProvider   string // "openrouter"
	LLMModel      string // e.g. "openai/gpt-4o-mini"
	BaseURL       string
	MaxToolRounds int
}

type MCPConfig struct {
	BaseURL   string // empty disables remote tools
	SessionId string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenRouter:    getEnv("OPENROUTER_API_KEY", ""),
			UniverMcp:     getEnv("UNIVER_MCP_API_KEY", ""),
			SnapshotTopic: getEnv("WORKBOOK_SNAPSHOT_TOPIC_NAME", "WORKBOOK_SNAPSHOT"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "openrouter"),
			LLMModel:      getEnv("LLM_MODEL", "openai/gpt-4o-mini"),
			BaseURL:       getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			MaxToolRounds: getEnvAsInt("LLM_MAX_TOOL_ROUNDS", 8),
		},
		Mcp: MCPConfig{
			BaseURL:   getEnv("MCP_BASE_URL", ""),
			SessionId: getEnv("MCP_SESSION_ID", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
