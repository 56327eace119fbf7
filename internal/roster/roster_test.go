package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoster(t *testing.T) {
	r := Default()

	assert.Equal(t, "main", r.DefaultAgentID)
	assert.True(t, r.IsAgent("main"))
	assert.True(t, r.IsAgent("builder"))
	assert.False(t, r.IsAgent("investor"), "the operator is not an agent")

	main := r.Get("main")
	require.NotNil(t, main)
	assert.Equal(t, "CEO", main.Role)
	assert.Nil(t, r.Get("nobody"))

	assert.Contains(t, r.IDs(), "scout")
}

func TestLoadFallsBackToDefault(t *testing.T) {
	r, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultAgentID, r.DefaultAgentID)
	assert.Len(t, r.Agents, len(Default().Agents))
}

func TestLoadFromYAML(t *testing.T) {
	stateDir := t.TempDir()
	companyDir := filepath.Join(stateDir, "company")
	require.NoError(t, os.MkdirAll(companyDir, 0o755))

	doc := `defaultAgentId: boss
agents:
  - id: boss
    name: Vega
    emoji: "👑"
    layer: exec
    role: CEO
  - id: intern
    name: Pip
    emoji: "🌱"
    layer: support
    role: Assistant
`
	require.NoError(t, os.WriteFile(filepath.Join(companyDir, "roster.yaml"), []byte(doc), 0o644))

	r, err := Load(stateDir)
	require.NoError(t, err)
	assert.Equal(t, "boss", r.DefaultAgentID)
	require.Len(t, r.Agents, 2)
	assert.True(t, r.IsAgent("intern"))
	assert.False(t, r.IsAgent("main"))
}

func TestLoadRejectsEmptyRoster(t *testing.T) {
	stateDir := t.TempDir()
	companyDir := filepath.Join(stateDir, "company")
	require.NoError(t, os.MkdirAll(companyDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(companyDir, "roster.yaml"), []byte("agents: []\n"), 0o644))

	_, err := Load(stateDir)
	require.Error(t, err)
}

func TestWorkspaceDir(t *testing.T) {
	r := Default()

	assert.Equal(t, filepath.Join("/state", "workspace"), r.WorkspaceDir("/state", "main"))
	assert.Equal(t, filepath.Join("/state", "workspaces", "builder"), r.WorkspaceDir("/state", "builder"))
}
