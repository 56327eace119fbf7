// Package bootstrap initializes a new company: the charter, budget, and
// roster documents, the knowledge base, every agent's workspace files, and
// the seed channels. Running it again resets the CEO workspace and rewrites
// the company documents; databases are never touched destructively.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/roster"
	"github.com/landywei/agent-co/internal/store"
)

// InvestorChannel is the channel every company has from first startup,
// connecting the CEO to the human operator.
const InvestorChannel = "investor-relations"

// Bootstrapper writes company state under the state directory.
type Bootstrapper struct {
	stateDir string
	roster   *roster.Roster
	channels *store.ChannelStore
	logger   *slog.Logger
}

// New creates a bootstrapper.
func New(stateDir string, r *roster.Roster, channels *store.ChannelStore, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{stateDir: stateDir, roster: r, channels: channels, logger: logger}
}

// Run performs a full bootstrap with the given company goal.
func (b *Bootstrapper) Run(ctx context.Context, goal string) error {
	if err := b.writeCompanyDocs(goal); err != nil {
		return err
	}
	if err := b.writeWorkspaces(); err != nil {
		return err
	}
	if err := b.EnsureSeedChannels(ctx); err != nil {
		return err
	}
	b.logger.Info("bootstrap: company initialized", "goal", goal, "agents", len(b.roster.Agents))
	return nil
}

// EnsureSeedChannels creates the investor-relations channel if it does not
// exist yet. Called at every startup, not just at bootstrap, so the channel
// invariant holds from the first boot onward.
func (b *Bootstrapper) EnsureSeedChannels(ctx context.Context) error {
	existing, err := b.channels.ResolveChannel(ctx, InvestorChannel)
	if err != nil {
		return fmt.Errorf("bootstrap: resolve %s: %w", InvestorChannel, err)
	}
	if existing != nil {
		return nil
	}
	_, err = b.channels.CreateChannel(ctx, InvestorChannel, model.ChannelPrivate,
		"Investor updates and asks", b.roster.DefaultAgentID, []string{"investor", b.roster.DefaultAgentID})
	if err != nil {
		return fmt.Errorf("bootstrap: create %s: %w", InvestorChannel, err)
	}
	return nil
}

func (b *Bootstrapper) writeCompanyDocs(goal string) error {
	companyDir := filepath.Join(b.stateDir, "company")
	for _, dir := range []string{companyDir, filepath.Join(companyDir, "kb")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("bootstrap: mkdir %s: %w", dir, err)
		}
	}

	date := time.Now().Format("2006-01-02")

	charter := fmt.Sprintf(`# Company Charter

## Goal

%s

## Operating principles

- Work happens in channels; decisions are written down.
- Every agent keeps its task threads heartbeating while it works.
- The CEO owns the roadmap; the roster owns execution.

_Founded %s._
`, goal, date)

	budget := fmt.Sprintf(`# Budget

| Line | Monthly cap |
|------|-------------|
| LLM spend | (unset) |
| Tools & infra | (unset) |

_Last reviewed %s. The CEO updates this file; the core treats it as opaque text._
`, date)

	rosterDoc := "# Roster\n\n| id | name | emoji | layer | role |\n|----|------|-------|-------|------|\n"
	for _, a := range b.roster.Agents {
		rosterDoc += fmt.Sprintf("| %s | %s | %s | %s | %s |\n", a.ID, a.Name, a.Emoji, a.Layer, a.Role)
	}

	docs := map[string]string{
		"CHARTER.md": charter,
		"BUDGET.md":  budget,
		"ROSTER.md":  rosterDoc,
	}
	for name, content := range docs {
		path := filepath.Join(companyDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("bootstrap: write %s: %w", name, err)
		}
	}
	return nil
}

// writeWorkspaces lays down every agent's workspace. The files are opaque
// to the core: the gateway reads them when it resumes an agent session.
// Workspaces are independent, so they write in parallel.
func (b *Bootstrapper) writeWorkspaces() error {
	var g errgroup.Group
	for _, agent := range b.roster.Agents {
		agent := agent
		g.Go(func() error {
			return b.writeWorkspace(agent)
		})
	}
	return g.Wait()
}

func (b *Bootstrapper) writeWorkspace(agent roster.Agent) error {
	dir := b.roster.WorkspaceDir(b.stateDir, agent.ID)
	if err := os.MkdirAll(filepath.Join(dir, "memory"), 0o755); err != nil {
		return fmt.Errorf("bootstrap: mkdir workspace %s: %w", agent.ID, err)
	}

	for name, content := range workspaceFiles(agent) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("bootstrap: write %s/%s: %w", agent.ID, name, err)
		}
	}
	return nil
}

func workspaceFiles(agent roster.Agent) map[string]string {
	identity := fmt.Sprintf("# IDENTITY\n\n- id: %s\n- name: %s\n- emoji: %s\n- layer: %s\n- role: %s\n",
		agent.ID, agent.Name, agent.Emoji, agent.Layer, agent.Role)

	soul := fmt.Sprintf(`# SOUL

You are %s, the company's %s. You are direct, you finish what you start,
and you write down what you learn. You speak in channels, never into the
void.
`, agent.Name, agent.Role)

	heartbeat := `# HEARTBEAT

While a task thread is open, call tasks.heartbeat at least every few
minutes. Silence is how work gets lost; the watchdog will flag you.
`

	tools := `# TOOLS

- company.channels.post / history — talk to the team
- tasks.create / update / log / heartbeat — track your work
- The knowledge base lives in company/kb/
`

	agents := `# AGENTS

The roster is in company/ROSTER.md. Mention a teammate's channel to loop
them in; posting in a shared channel wakes its members.
`

	return map[string]string{
		"IDENTITY.md":  identity,
		"SOUL.md":      soul,
		"MEMORY.md":    "# MEMORY\n\n(nothing yet)\n",
		"HEARTBEAT.md": heartbeat,
		"TOOLS.md":     tools,
		"AGENTS.md":    agents,
	}
}
