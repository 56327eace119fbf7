// Package watchdog periodically scans for task threads that have gone
// silent — no heartbeat inside the stale threshold — and raises each stall
// exactly once per stale interval.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/store"
)

// agentID stamped on the error logs the watchdog writes.
const agentID = "watchdog"

// Watchdog scans the task store on an interval. For each newly-stale task
// it appends an error log, publishes task.stale on the bus (which carries
// it to dashboards), and remembers the id so the next scan stays quiet. Ids
// that drop out of the stale set are forgotten, so a task that resumes
// heartbeating and stalls again re-alerts.
type Watchdog struct {
	tasks    *store.TaskStore
	bus      *bus.Bus
	logger   *slog.Logger
	interval time.Duration
	stale    time.Duration

	alerted map[string]bool
	now     func() int64
}

// New creates a watchdog. Call Run to start scanning.
func New(tasks *store.TaskStore, b *bus.Bus, interval, staleThreshold time.Duration, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		tasks:    tasks,
		bus:      b,
		logger:   logger,
		interval: interval,
		stale:    staleThreshold,
		alerted:  make(map[string]bool),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Run scans until ctx is cancelled. It is a daemon bound to the process
// lifetime; cancelling ctx clears the pending timer so shutdown is clean.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan performs one pass. Exported so tests (and operators) can force a
// scan without waiting out the interval.
func (w *Watchdog) Scan(ctx context.Context) {
	staleTasks, err := w.tasks.GetStaleTasks(ctx, w.stale.Milliseconds())
	if err != nil {
		w.logger.Error("watchdog: stale scan failed", "error", err)
		return
	}

	inResult := make(map[string]bool, len(staleTasks))
	now := w.now()

	for _, t := range staleTasks {
		inResult[t.ID] = true
		if w.alerted[t.ID] {
			continue
		}
		w.alerted[t.ID] = true

		silentFor := now - t.LastHeartbeatAt
		if t.LastHeartbeatAt == 0 {
			silentFor = now - t.CreatedAt
		}

		msg := fmt.Sprintf("no heartbeat for %s (threshold %s)",
			time.Duration(silentFor)*time.Millisecond, w.stale)
		if _, err := w.tasks.AppendLog(ctx, t.ID, agentID, model.LogError, msg, nil); err != nil {
			w.logger.Error("watchdog: append stale log", "task", t.ID, "error", err)
		}

		w.bus.Publish(model.TaskStaleEvent{Task: t, SilentForMs: silentFor})
		w.logger.Warn("watchdog: stale task",
			"task", t.ID, "agent", t.AgentID, "silent_ms", silentFor)
	}

	// Forget recovered tasks so a later stall alerts again.
	for id := range w.alerted {
		if !inResult[id] {
			delete(w.alerted, id)
		}
	}
}
