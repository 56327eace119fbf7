package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/ceo")
	t.Setenv("OPENCLAW_PROFILE", "")
	t.Setenv("AGENTCO_STATE_DIR", "")
	t.Setenv("OPENCLAW_LLM_CALL_LOG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4280, cfg.Port)
	assert.Equal(t, filepath.Join("/home/ceo", ".openclaw"), cfg.StateDir)
	assert.Equal(t, 5*time.Second, cfg.TriggerCooldown)
	assert.Equal(t, 15*time.Minute, cfg.StaleThreshold)
	assert.Equal(t, 2*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 15, cfg.TranscriptDepth)
	assert.Equal(t, 300*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, filepath.Join(cfg.StateDir, "logs", "llm-calls.jsonl"), cfg.LLMCallLogFile)
	assert.Equal(t, filepath.Join(cfg.StateDir, "company", "channels.db"), cfg.ChannelDBPath())
	assert.Equal(t, filepath.Join(cfg.StateDir, "company", "tasks.db"), cfg.TaskDBPath())
}

func TestProfileSuffixesStateDir(t *testing.T) {
	t.Setenv("HOME", "/home/ceo")
	t.Setenv("OPENCLAW_PROFILE", "dev")
	t.Setenv("AGENTCO_STATE_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/ceo", ".openclaw")+"-dev", cfg.StateDir)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENTCO_STATE_DIR", "/tmp/agentco-test")
	t.Setenv("AGENTCO_PORT", "9999")
	t.Setenv("AGENTCO_TRIGGER_COOLDOWN", "250ms")
	t.Setenv("OPENCLAW_LLM_CALL_LOG_FILE", "/tmp/calls.jsonl")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentco-test", cfg.StateDir)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TriggerCooldown)
	assert.Equal(t, "/tmp/calls.jsonl", cfg.LLMCallLogFile)
}

func TestValidateRejectsNonsense(t *testing.T) {
	cfg := Config{StateDir: "/tmp/x", TriggerCooldown: time.Second, StaleThreshold: time.Minute,
		CheckInterval: time.Minute, TranscriptDepth: 15}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.TriggerCooldown = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.StateDir = ""
	require.Error(t, bad.Validate())

	bad = cfg
	bad.TranscriptDepth = -1
	require.Error(t, bad.Validate())
}
