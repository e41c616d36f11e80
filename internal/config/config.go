// Package config loads sigdebate configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	// ProviderNone disables LLM collaborators; the server then refuses to
	// advance sessions and only serves reads.
	ProviderNone Provider = "none"
)

// StoreBackend selects the persistence implementation.
type StoreBackend string

const (
	StoreSurrealDB StoreBackend = "surrealdb"
	StoreMemory    StoreBackend = "memory"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ListenAddr string

	// Persistence
	Store              StoreBackend
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM collaborators
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GenerateTimeout time.Duration

	// Debate roster
	RosterFile    string
	DebateRounds  int
	ConsensusMode string // "llm" or "static:<bool>" for offline runs

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ListenAddr: getEnv("SIGDEBATE_LISTEN_ADDR", ":8486"),

		Store:              StoreBackend(getEnv("SIGDEBATE_STORE", string(StoreSurrealDB))),
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "signalboard"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "debate"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     Provider(getEnv("SIGDEBATE_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("SIGDEBATE_LLM_MODEL", "llama3.1"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GenerateTimeout: parseDuration(getEnv("SIGDEBATE_GENERATE_TIMEOUT", "90s"), 90*time.Second),

		RosterFile:    getEnv("SIGDEBATE_ROSTER_FILE", ""),
		DebateRounds:  parseInt(getEnv("SIGDEBATE_DEBATE_ROUNDS", "1"), 1),
		ConsensusMode: getEnv("SIGDEBATE_CONSENSUS_MODE", "llm"),

		LogFile:  getEnv("SIGDEBATE_LOG_FILE", "/tmp/sigdebate.log"),
		LogLevel: parseLogLevel(getEnv("SIGDEBATE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
