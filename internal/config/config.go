// Package config loads and validates application configuration from
// environment variables. Everything here is a process-wide constant
// initialized at startup and read without locks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// StateDir is the root of all persistent state: databases, company
	// documents, agent workspaces, call logs.
	StateDir string

	// Gateway settings. GatewayURL is the external LLM gateway that
	// executes agent turns; the core only ever calls its `agent` RPC.
	GatewayURL     string
	GatewayTimeout time.Duration

	// LLMCallLogFile is the JSONL file recording every outbound gateway
	// call. Defaults to <StateDir>/logs/llm-calls.jsonl.
	LLMCallLogFile string

	// Trigger engine settings.
	TriggerCooldown time.Duration
	TranscriptDepth int

	// Watchdog settings.
	StaleThreshold time.Duration
	CheckInterval  time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults. The state directory honors OPENCLAW_PROFILE as a suffix on the
// default ~/.openclaw root.
func Load() (Config, error) {
	cfg := Config{
		Port:            envInt("AGENTCO_PORT", 4280),
		ReadTimeout:     envDuration("AGENTCO_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    envDuration("AGENTCO_WRITE_TIMEOUT", 30*time.Second),
		StateDir:        envStr("AGENTCO_STATE_DIR", defaultStateDir()),
		GatewayURL:      envStr("AGENTCO_GATEWAY_URL", "http://localhost:4270"),
		GatewayTimeout:  envDuration("AGENTCO_GATEWAY_TIMEOUT", 300*time.Second),
		LLMCallLogFile:  envStr("OPENCLAW_LLM_CALL_LOG_FILE", ""),
		TriggerCooldown: envDuration("AGENTCO_TRIGGER_COOLDOWN", 5*time.Second),
		TranscriptDepth: envInt("AGENTCO_TRANSCRIPT_DEPTH", 15),
		StaleThreshold:  envDuration("AGENTCO_STALE_THRESHOLD", 15*time.Minute),
		CheckInterval:   envDuration("AGENTCO_CHECK_INTERVAL", 2*time.Minute),
		OTELEndpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:     envStr("OTEL_SERVICE_NAME", "agentco"),
		LogLevel:        envStr("AGENTCO_LOG_LEVEL", "info"),
	}

	if cfg.LLMCallLogFile == "" {
		cfg.LLMCallLogFile = filepath.Join(cfg.StateDir, "logs", "llm-calls.jsonl")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("config: state directory is required")
	}
	if c.TriggerCooldown <= 0 {
		return fmt.Errorf("config: AGENTCO_TRIGGER_COOLDOWN must be positive")
	}
	if c.StaleThreshold <= 0 {
		return fmt.Errorf("config: AGENTCO_STALE_THRESHOLD must be positive")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("config: AGENTCO_CHECK_INTERVAL must be positive")
	}
	if c.TranscriptDepth <= 0 {
		return fmt.Errorf("config: AGENTCO_TRANSCRIPT_DEPTH must be positive")
	}
	return nil
}

// ChannelDBPath is the channels/members/messages database file.
func (c Config) ChannelDBPath() string {
	return filepath.Join(c.StateDir, "company", "channels.db")
}

// TaskDBPath is the tasks/logs/dependencies database file.
func (c Config) TaskDBPath() string {
	return filepath.Join(c.StateDir, "company", "tasks.db")
}

// defaultStateDir resolves ~/.openclaw, with OPENCLAW_PROFILE appended as a
// suffix when set (e.g. OPENCLAW_PROFILE=dev -> ~/.openclaw-dev).
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".openclaw")
	if profile := os.Getenv("OPENCLAW_PROFILE"); profile != "" {
		dir += "-" + profile
	}
	return dir
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
