package model

// TaskStatus is the lifecycle state of a task thread.
type TaskStatus string

const (
	TaskActive  TaskStatus = "active"
	TaskBlocked TaskStatus = "blocked"
	TaskWaiting TaskStatus = "waiting"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// ValidTaskStatus reports whether s is a recognized status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskActive, TaskBlocked, TaskWaiting, TaskDone, TaskFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status. Terminal transitions set
// completed_at; nothing transitions out of them in practice, though the
// store does not forbid it.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// TaskPriority orders tasks for humans; the core never schedules by it.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityMedium   TaskPriority = "medium"
	PriorityLow      TaskPriority = "low"
)

// ValidTaskPriority reports whether p is a recognized priority.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TaskThread is a durable unit of agent work. Tasks are never deleted;
// they accumulate logs and heartbeats for their whole lifetime.
//
// LastHeartbeatAt and CompletedAt are zero when unset. ParentTaskID is
// empty for top-level tasks and otherwise references an existing task.
type TaskThread struct {
	ID              string         `json:"id"`
	AgentID         string         `json:"agentId"`
	ParentTaskID    string         `json:"parentTaskId,omitempty"`
	Objective       string         `json:"objective"`
	Status          TaskStatus     `json:"status"`
	Priority        TaskPriority   `json:"priority"`
	ProgressSummary string         `json:"progressSummary,omitempty"`
	Artifacts       []string       `json:"artifacts,omitempty"`
	Dependencies    []string       `json:"dependencies,omitempty"`
	LastHeartbeatAt int64          `json:"lastHeartbeatAt,omitempty"`
	CreatedAt       int64          `json:"createdAt"`
	UpdatedAt       int64          `json:"updatedAt"`
	CompletedAt     int64          `json:"completedAt,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// TaskLogType categorizes entries in a task's append-only history.
type TaskLogType string

const (
	LogCreated    TaskLogType = "created"
	LogUpdated    TaskLogType = "updated"
	LogProgress   TaskLogType = "progress"
	LogCheckpoint TaskLogType = "checkpoint"
	LogError      TaskLogType = "error"
	LogHeartbeat  TaskLogType = "heartbeat"
	LogBlocked    TaskLogType = "blocked"
	LogUnblocked  TaskLogType = "unblocked"
	LogCompleted  TaskLogType = "completed"
	LogFailed     TaskLogType = "failed"
	LogReassigned TaskLogType = "reassigned"
)

// ValidTaskLogType reports whether t is a recognized log type.
func ValidTaskLogType(t TaskLogType) bool {
	switch t {
	case LogCreated, LogUpdated, LogProgress, LogCheckpoint, LogError,
		LogHeartbeat, LogBlocked, LogUnblocked, LogCompleted, LogFailed,
		LogReassigned:
		return true
	}
	return false
}

// TaskLog is one immutable entry in a task's history, ordered by timestamp
// within the task.
type TaskLog struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"taskId"`
	AgentID   string         `json:"agentId"`
	Type      TaskLogType    `json:"type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// TaskUpdate is a partial patch applied by UpdateTask. Nil fields are left
// untouched; Artifacts and Metadata replace wholesale when non-nil.
type TaskUpdate struct {
	Status          *TaskStatus    `json:"status,omitempty"`
	Priority        *TaskPriority  `json:"priority,omitempty"`
	ProgressSummary *string        `json:"progressSummary,omitempty"`
	Objective       *string        `json:"objective,omitempty"`
	AgentID         *string        `json:"agentId,omitempty"`
	Artifacts       []string       `json:"artifacts,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// TaskSummary aggregates counts per status plus the stale count at the
// default threshold.
type TaskSummary struct {
	Total    int                `json:"total"`
	ByStatus map[TaskStatus]int `json:"byStatus"`
	Stale    int                `json:"stale"`
}

// AgentTaskSummary is the per-agent rollup used by the dashboard.
type AgentTaskSummary struct {
	AgentID         string             `json:"agentId"`
	ByStatus        map[TaskStatus]int `json:"byStatus"`
	LastHeartbeatAt int64              `json:"lastHeartbeatAt,omitempty"`
}
