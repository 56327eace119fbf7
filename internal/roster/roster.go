// Package roster knows which agent identities exist in the company: the
// default agent (CEO) plus everyone hired into the org chart. The trigger
// engine consults it to decide who a channel message may wake, and the
// dashboard reads it for the org-wide status view.
package roster

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Agent is one long-lived identity in the company.
type Agent struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Emoji string `yaml:"emoji" json:"emoji"`
	Layer string `yaml:"layer" json:"layer"`
	Role  string `yaml:"role" json:"role"`
}

// Roster is the set of known agents. DefaultAgentID is the CEO, whose
// workspace lives at the state root's workspace/ directory.
type Roster struct {
	DefaultAgentID string  `yaml:"defaultAgentId" json:"defaultAgentId"`
	Agents         []Agent `yaml:"agents" json:"agents"`
}

// Default returns the built-in company roster used when no roster.yaml
// exists in the state directory.
func Default() *Roster {
	return &Roster{
		DefaultAgentID: "main",
		Agents: []Agent{
			{ID: "main", Name: "Sable", Emoji: "🜂", Layer: "exec", Role: "CEO"},
			{ID: "builder", Name: "Wren", Emoji: "🔨", Layer: "product", Role: "Engineer"},
			{ID: "scout", Name: "Moss", Emoji: "🔭", Layer: "product", Role: "Researcher"},
			{ID: "quill", Name: "Ivy", Emoji: "✒️", Layer: "growth", Role: "Writer"},
		},
	}
}

// Load reads company/roster.yaml under stateDir, falling back to the
// built-in default when the file does not exist.
func Load(stateDir string) (*Roster, error) {
	path := filepath.Join(stateDir, "company", "roster.yaml")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}

	var r Roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", path, err)
	}
	if r.DefaultAgentID == "" {
		r.DefaultAgentID = "main"
	}
	if len(r.Agents) == 0 {
		return nil, fmt.Errorf("roster: %s lists no agents", path)
	}
	return &r, nil
}

// IsAgent reports whether id is a known agent id.
func (r *Roster) IsAgent(id string) bool {
	for _, a := range r.Agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Get returns the agent with the given id, or nil.
func (r *Roster) Get(id string) *Agent {
	for i := range r.Agents {
		if r.Agents[i].ID == id {
			return &r.Agents[i]
		}
	}
	return nil
}

// IDs returns all agent ids in roster order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.Agents))
	for i, a := range r.Agents {
		ids[i] = a.ID
	}
	return ids
}

// WorkspaceDir returns the workspace directory for an agent: workspace/
// for the default agent, workspaces/<id>/ for everyone else.
func (r *Roster) WorkspaceDir(stateDir, agentID string) string {
	if agentID == r.DefaultAgentID {
		return filepath.Join(stateDir, "workspace")
	}
	return filepath.Join(stateDir, "workspaces", agentID)
}
