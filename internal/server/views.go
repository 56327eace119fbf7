package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/store"
)

// Liveness thresholds for the org-wide status view.
const (
	livenessActive = 10 * time.Minute
	livenessIdle   = 30 * time.Minute
)

type agentStatus struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Emoji            string `json:"emoji"`
	Layer            string `json:"layer"`
	Role             string `json:"role"`
	Liveness         string `json:"liveness"`
	LastActivityAt   int64  `json:"lastActivityAt,omitempty"`
	NextActivityAt   int64  `json:"nextActivityAt,omitempty"`
	ActiveTasks      int    `json:"activeTasks"`
	BlockedTasks     int    `json:"blockedTasks"`
	DoneTasks        int    `json:"doneTasks"`
	SessionCount     int    `json:"sessionCount"`
	LastSessionAgeMs int64  `json:"lastSessionAgeMs,omitempty"`
}

// handleAgentsStatus serves GET /agents-status.json: org-wide liveness
// folded from task heartbeats, channel activity, and gateway dispatches.
func (h *Handlers) handleAgentsStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UnixMilli()

	taskSummaries, err := h.tasks.GetAgentSummaries(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	lastMessages, err := h.channels.LastMessageTimes(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	sessions := h.sessions.SessionStats()

	agents := make([]agentStatus, 0, len(h.roster.Agents))
	totals := map[string]int{"active": 0, "idle": 0, "stale": 0, "offline": 0}

	for _, a := range h.roster.Agents {
		st := agentStatus{
			ID:    a.ID,
			Name:  a.Name,
			Emoji: a.Emoji,
			Layer: a.Layer,
			Role:  a.Role,
		}

		var last int64
		if sum := taskSummaries[a.ID]; sum != nil {
			st.ActiveTasks = sum.ByStatus[model.TaskActive]
			st.BlockedTasks = sum.ByStatus[model.TaskBlocked]
			st.DoneTasks = sum.ByStatus[model.TaskDone]
			last = max(last, sum.LastHeartbeatAt)
		}
		last = max(last, lastMessages[a.ID])
		if s, ok := sessions[a.ID]; ok {
			st.SessionCount = s.Count
			if s.LastAt > 0 {
				st.LastSessionAgeMs = now - s.LastAt
			}
			last = max(last, s.LastAt)
		}

		st.LastActivityAt = last
		st.Liveness = liveness(now, last)
		totals[st.Liveness]++
		agents = append(agents, st)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":      now,
		"defaultAgentId": h.roster.DefaultAgentID,
		"agents":         agents,
		"totals":         totals,
		"heartbeat": map[string]any{
			"staleThresholdMs": h.staleThreshold.Milliseconds(),
			"checkIntervalMs":  h.checkInterval.Milliseconds(),
		},
		// Cron scheduling lives in a separate service; the dashboard only
		// needs to know it is not wired here.
		"cron": map[string]any{"enabled": false},
	})
}

func liveness(now, last int64) string {
	if last == 0 {
		return "offline"
	}
	age := time.Duration(now-last) * time.Millisecond
	switch {
	case age < livenessActive:
		return "active"
	case age < livenessIdle:
		return "idle"
	default:
		return "stale"
	}
}

// handleTasksData serves GET /tasks-data.json?view=summary|detail|logs|list.
func (h *Handlers) handleTasksData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "summary"
	}

	switch view {
	case "summary":
		summary, err := h.tasks.GetSummary(ctx, h.staleThreshold.Milliseconds())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		agentSummaries, err := h.tasks.GetAgentSummaries(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "agents": agentSummaries})

	case "detail":
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
			return
		}
		task, err := h.tasks.GetTask(ctx, id)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		if task == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "task " + id + " not found"})
			return
		}
		logs, err := h.tasks.GetLogs(ctx, id, store.LogQuery{})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		subtasks, err := h.tasks.GetSubtasks(ctx, id)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		dependents, err := h.tasks.GetDependents(ctx, id)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"task":       task,
			"logs":       logs,
			"subtasks":   subtasks,
			"dependents": dependents,
		})

	case "logs":
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
			return
		}
		q := store.LogQuery{}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if n, err := strconv.Atoi(limitStr); err == nil {
				q.Limit = &n
			}
		}
		logs, err := h.tasks.GetLogs(ctx, id, q)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"logs": logs})

	case "list":
		f := store.TaskFilter{
			AgentID:      r.URL.Query().Get("agentId"),
			Status:       model.TaskStatus(r.URL.Query().Get("status")),
			ParentTaskID: r.URL.Query().Get("parentTaskId"),
		}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if n, err := strconv.Atoi(limitStr); err == nil {
				f.Limit = &n
			}
		}
		tasks, err := h.tasks.ListTasks(ctx, f)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "view " + view + " is not one of summary, detail, logs, list"})
	}
}

// handleHealth serves GET /health.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	// A cheap read proves both stores are reachable.
	one := 1
	if _, err := h.channels.ListChannels(r.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else if _, err := h.tasks.ListTasks(r.Context(), store.TaskFilter{Limit: &one}); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":        status,
		"version":       h.version,
		"wsClients":     h.hub.ClientCount(),
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
