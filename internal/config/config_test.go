package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("junk", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("-5s", time.Minute))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, parseInt("3", 1))
	assert.Equal(t, 1, parseInt("junk", 1))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8486", cfg.ListenAddr)
	assert.Equal(t, StoreSurrealDB, cfg.Store)
	assert.Equal(t, "signalboard", cfg.SurrealDBNamespace)
	assert.Equal(t, "debate", cfg.SurrealDBDatabase)
	assert.Equal(t, 90*time.Second, cfg.GenerateTimeout)
	assert.Equal(t, 1, cfg.DebateRounds)
	assert.Equal(t, "llm", cfg.ConsensusMode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SIGDEBATE_LISTEN_ADDR", ":9999")
	t.Setenv("SIGDEBATE_STORE", "memory")
	t.Setenv("SIGDEBATE_DEBATE_ROUNDS", "2")
	t.Setenv("SIGDEBATE_GENERATE_TIMEOUT", "2m")
	t.Setenv("SIGDEBATE_CONSENSUS_MODE", "static:true")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 2, cfg.DebateRounds)
	assert.Equal(t, 2*time.Minute, cfg.GenerateTimeout)
	assert.Equal(t, "static:true", cfg.ConsensusMode)
}
