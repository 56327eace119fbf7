package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/model"
)

const taskSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                TEXT PRIMARY KEY,
	agent_id          TEXT NOT NULL,
	parent_task_id    TEXT REFERENCES tasks(id),
	objective         TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	priority          TEXT NOT NULL DEFAULT 'medium',
	progress_summary  TEXT NOT NULL DEFAULT '',
	artifacts         TEXT NOT NULL DEFAULT '[]',
	last_heartbeat_at INTEGER,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	completed_at      INTEGER,
	metadata          TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_agent ON tasks(agent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id) WHERE parent_task_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS task_logs (
	id       TEXT PRIMARY KEY,
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	agent_id TEXT NOT NULL,
	type     TEXT NOT NULL,
	message  TEXT NOT NULL,
	metadata TEXT,
	ts       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_logs_task_ts ON task_logs(task_id, ts);

CREATE TABLE IF NOT EXISTS task_dependencies (
	task_id            TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depends_on_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, depends_on_task_id)
);
CREATE INDEX IF NOT EXISTS idx_task_deps_on ON task_dependencies(depends_on_task_id);
`

// Default list limits for task reads.
const (
	DefaultLogLimit  = 100
	DefaultTaskLimit = 200
)

// TaskStore persists task threads, their append-only logs, and dependency
// edges. Tasks are never deleted; terminal tasks keep accumulating logs.
//
// Dependency edges may form cycles. The store records and reports them;
// acyclicity is a scheduler policy, not a storage invariant.
type TaskStore struct {
	db     *sql.DB
	bus    *bus.Bus
	logger *slog.Logger

	now func() int64
}

// NewTaskStore opens the task database at path and ensures the schema.
func NewTaskStore(path string, b *bus.Bus, logger *slog.Logger) (*TaskStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(taskSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: task schema: %w", err)
	}
	return &TaskStore{db: db, bus: b, logger: logger, now: nowMillis}, nil
}

// Close closes the underlying database.
func (s *TaskStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a task, its dependency edges, and the created log
// entry in one transaction. A non-empty parent must reference an existing
// task; so must every dependency. New tasks start active.
func (s *TaskStore) CreateTask(ctx context.Context, agentID, objective, parentTaskID string, priority model.TaskPriority, dependencies []string, metadata map[string]any) (*model.TaskThread, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	now := s.now()
	t := model.TaskThread{
		ID:           uuid.Must(uuid.NewV7()).String(),
		AgentID:      agentID,
		ParentTaskID: parentTaskID,
		Objective:    objective,
		Status:       model.TaskActive,
		Priority:     priority,
		Dependencies: dependencies,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     metadata,
	}

	meta, err := encodeMeta(metadata)
	if err != nil {
		return nil, err
	}
	artifacts, err := encodeStrings(nil)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin create task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if parentTaskID != "" {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, parentTaskID).Scan(&n); err != nil {
			return nil, fmt.Errorf("store: check parent task: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("parent task %s: %w", parentTaskID, ErrNotFound)
		}
	}

	parent := sql.NullString{String: parentTaskID, Valid: parentTaskID != ""}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (id, agent_id, parent_task_id, objective, status, priority, progress_summary, artifacts, created_at, updated_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)`,
		t.ID, t.AgentID, parent, t.Objective, string(t.Status), string(t.Priority), artifacts, t.CreatedAt, t.UpdatedAt, meta,
	); err != nil {
		return nil, fmt.Errorf("store: insert task: %w", err)
	}

	for _, dep := range dependencies {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, dep).Scan(&n); err != nil {
			return nil, fmt.Errorf("store: check dependency %s: %w", dep, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("dependency task %s: %w", dep, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)`,
			t.ID, dep,
		); err != nil {
			return nil, fmt.Errorf("store: insert dependency %s: %w", dep, err)
		}
	}

	created := model.TaskLog{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TaskID:    t.ID,
		AgentID:   agentID,
		Type:      model.LogCreated,
		Message:   objective,
		Timestamp: now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_logs (id, task_id, agent_id, type, message, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID, created.TaskID, created.AgentID, string(created.Type), created.Message, created.Timestamp,
	); err != nil {
		return nil, fmt.Errorf("store: insert created log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit create task: %w", err)
	}

	s.bus.Publish(model.TaskCreatedEvent{Task: t})
	return &t, nil
}

// GetTask returns the full task record, or nil when it does not exist.
func (s *TaskStore) GetTask(ctx context.Context, id string) (*model.TaskThread, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task %s: %w", id, err)
	}
	if err := s.attachDependencies(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask applies a partial patch. updated_at always advances. A
// transition into done/failed sets completed_at once (first terminal wins),
// appends a completed/failed log, and emits task.completed/task.failed in
// addition to task.updated. Patching a missing task returns nil.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, patch model.TaskUpdate) (*model.TaskThread, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin update task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load task %s: %w", id, err)
	}

	prevStatus := t.Status
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.ProgressSummary != nil {
		t.ProgressSummary = *patch.ProgressSummary
	}
	if patch.Objective != nil {
		t.Objective = *patch.Objective
	}
	if patch.AgentID != nil {
		t.AgentID = *patch.AgentID
	}
	if patch.Artifacts != nil {
		t.Artifacts = patch.Artifacts
	}
	if patch.Metadata != nil {
		t.Metadata = patch.Metadata
	}

	// updated_at is monotonic even if the clock stalls.
	if now <= t.UpdatedAt {
		now = t.UpdatedAt + 1
	}
	t.UpdatedAt = now

	terminalTransition := !prevStatus.Terminal() && t.Status.Terminal()
	if terminalTransition && t.CompletedAt == 0 {
		t.CompletedAt = now
	}

	artifacts, err := encodeStrings(t.Artifacts)
	if err != nil {
		return nil, err
	}
	meta, err := encodeMeta(t.Metadata)
	if err != nil {
		return nil, err
	}
	completed := sql.NullInt64{Int64: t.CompletedAt, Valid: t.CompletedAt != 0}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET agent_id = ?, objective = ?, status = ?, priority = ?, progress_summary = ?,
		 artifacts = ?, updated_at = ?, completed_at = ?, metadata = ? WHERE id = ?`,
		t.AgentID, t.Objective, string(t.Status), string(t.Priority), t.ProgressSummary,
		artifacts, t.UpdatedAt, completed, meta, id,
	); err != nil {
		return nil, fmt.Errorf("store: update task %s: %w", id, err)
	}

	var terminalLog *model.TaskLog
	if terminalTransition {
		logType := model.LogCompleted
		if t.Status == model.TaskFailed {
			logType = model.LogFailed
		}
		terminalLog = &model.TaskLog{
			ID:        uuid.Must(uuid.NewV7()).String(),
			TaskID:    t.ID,
			AgentID:   t.AgentID,
			Type:      logType,
			Message:   t.ProgressSummary,
			Timestamp: now,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_logs (id, task_id, agent_id, type, message, ts) VALUES (?, ?, ?, ?, ?, ?)`,
			terminalLog.ID, terminalLog.TaskID, terminalLog.AgentID, string(terminalLog.Type), terminalLog.Message, terminalLog.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("store: insert terminal log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit update task: %w", err)
	}
	if err := s.attachDependencies(ctx, t); err != nil {
		return nil, err
	}

	s.bus.Publish(model.TaskUpdatedEvent{Task: *t})
	if terminalLog != nil {
		s.bus.Publish(model.TaskLogEvent{Log: *terminalLog})
		if t.Status == model.TaskDone {
			s.bus.Publish(model.TaskCompletedEvent{Task: *t})
		} else {
			s.bus.Publish(model.TaskFailedEvent{Task: *t})
		}
	}
	return t, nil
}

// Heartbeat stamps last_heartbeat_at and advances updated_at. A non-empty
// message also appends a heartbeat log. Emits task.heartbeat.
func (s *TaskStore) Heartbeat(ctx context.Context, taskID, agentID, message string) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET last_heartbeat_at = ?, updated_at = MAX(updated_at + 1, ?) WHERE id = ?`,
		now, now, taskID)
	if err != nil {
		return fmt.Errorf("store: heartbeat %s: %w", taskID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	if message != "" {
		if _, err := s.appendLog(ctx, taskID, agentID, model.LogHeartbeat, message, nil); err != nil {
			return err
		}
	}

	s.bus.Publish(model.TaskHeartbeatEvent{TaskID: taskID, AgentID: agentID, At: now})
	return nil
}

// AppendLog appends an immutable log entry and emits task.log.
func (s *TaskStore) AppendLog(ctx context.Context, taskID, agentID string, logType model.TaskLogType, message string, metadata map[string]any) (*model.TaskLog, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, taskID).Scan(&n); err != nil {
		return nil, fmt.Errorf("store: check task %s: %w", taskID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return s.appendLog(ctx, taskID, agentID, logType, message, metadata)
}

func (s *TaskStore) appendLog(ctx context.Context, taskID, agentID string, logType model.TaskLogType, message string, metadata map[string]any) (*model.TaskLog, error) {
	meta, err := encodeMeta(metadata)
	if err != nil {
		return nil, err
	}
	entry := model.TaskLog{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TaskID:    taskID,
		AgentID:   agentID,
		Type:      logType,
		Message:   message,
		Metadata:  metadata,
		Timestamp: s.now(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO task_logs (id, task_id, agent_id, type, message, metadata, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.AgentID, string(entry.Type), entry.Message, meta, entry.Timestamp,
	); err != nil {
		return nil, fmt.Errorf("store: insert log: %w", err)
	}
	s.bus.Publish(model.TaskLogEvent{Log: entry})
	return &entry, nil
}

// LogQuery narrows GetLogs.
type LogQuery struct {
	Limit  *int
	Before *int64
}

// GetLogs returns a task's log entries in ascending timestamp order. The
// internal query is descending so the most recent entries win the limit;
// the reverse happens here at the boundary.
func (s *TaskStore) GetLogs(ctx context.Context, taskID string, q LogQuery) ([]model.TaskLog, error) {
	limit := DefaultLogLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []model.TaskLog{}, nil
	}
	before := s.now() + 1
	if q.Before != nil {
		before = *q.Before
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, agent_id, type, message, metadata, ts
		 FROM task_logs WHERE task_id = ? AND ts < ?
		 ORDER BY ts DESC, id DESC LIMIT ?`, taskID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get logs: %w", err)
	}
	defer rows.Close()

	var logs []model.TaskLog
	for rows.Next() {
		var l model.TaskLog
		var meta sql.NullString
		var logType string
		if err := rows.Scan(&l.ID, &l.TaskID, &l.AgentID, &logType, &l.Message, &meta, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		l.Type = model.TaskLogType(logType)
		l.Metadata = decodeMeta(meta)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	if logs == nil {
		logs = []model.TaskLog{}
	}
	return logs, nil
}

// TaskFilter narrows ListTasks. Zero values mean no filter.
type TaskFilter struct {
	AgentID      string
	Status       model.TaskStatus
	ParentTaskID string
	Limit        *int
}

// ListTasks returns tasks matching the filter, most recently updated first.
func (s *TaskStore) ListTasks(ctx context.Context, f TaskFilter) ([]model.TaskThread, error) {
	limit := DefaultTaskLimit
	if f.Limit != nil {
		limit = *f.Limit
	}
	if limit <= 0 {
		return []model.TaskThread{}, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, f.AgentID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ParentTaskID != "" {
		query += ` AND parent_task_id = ?`
		args = append(args, f.ParentTaskID)
	}
	query += ` ORDER BY updated_at DESC, id ASC LIMIT ?`
	args = append(args, limit)

	return s.queryTasks(ctx, query, args...)
}

// GetStaleTasks returns active or blocked tasks whose heartbeat is missing
// or older than thresholdMs, excluding tasks younger than the threshold
// (they have not been expected to report yet). Oldest stalls surface first.
func (s *TaskStore) GetStaleTasks(ctx context.Context, thresholdMs int64) ([]model.TaskThread, error) {
	cutoff := s.now() - thresholdMs
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE status IN ('active', 'blocked')
		   AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)
		   AND created_at < ?
		 ORDER BY updated_at ASC, id ASC`, cutoff, cutoff)
}

// GetSubtasks returns the direct children of a task in creation order.
func (s *TaskStore) GetSubtasks(ctx context.Context, parentID string) ([]model.TaskThread, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_task_id = ? ORDER BY created_at ASC, id ASC`, parentID)
}

// GetDependencies returns the ids this task depends on.
func (s *TaskStore) GetDependencies(ctx context.Context, taskID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_task_id`, taskID)
}

// GetDependents returns the ids that depend on this task.
func (s *TaskStore) GetDependents(ctx context.Context, taskID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT task_id FROM task_dependencies WHERE depends_on_task_id = ? ORDER BY task_id`, taskID)
}

// AddDependency inserts the edge task -> dependsOn. Both endpoints must
// exist. Returns false when the edge is already present. Cycles are allowed.
func (s *TaskStore) AddDependency(ctx context.Context, taskID, dependsOn string) (bool, error) {
	for _, id := range []string{taskID, dependsOn} {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&n); err != nil {
			return false, fmt.Errorf("store: check task %s: %w", id, err)
		}
		if n == 0 {
			return false, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)`,
		taskID, dependsOn)
	if err != nil {
		return false, fmt.Errorf("store: add dependency: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveDependency deletes the edge task -> dependsOn if present.
func (s *TaskStore) RemoveDependency(ctx context.Context, taskID, dependsOn string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ? AND depends_on_task_id = ?`,
		taskID, dependsOn)
	if err != nil {
		return false, fmt.Errorf("store: remove dependency: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetSummary aggregates counts per status plus the stale count at
// staleThresholdMs.
func (s *TaskStore) GetSummary(ctx context.Context, staleThresholdMs int64) (*model.TaskSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store: task summary: %w", err)
	}
	defer rows.Close()

	summary := model.TaskSummary{ByStatus: make(map[model.TaskStatus]int)}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan summary: %w", err)
		}
		summary.ByStatus[model.TaskStatus(status)] = n
		summary.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stale, err := s.GetStaleTasks(ctx, staleThresholdMs)
	if err != nil {
		return nil, err
	}
	summary.Stale = len(stale)
	return &summary, nil
}

// GetAgentSummaries returns the per-agent count-by-status and most recent
// heartbeat, keyed by agent id.
func (s *TaskStore) GetAgentSummaries(ctx context.Context) (map[string]*model.AgentTaskSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, status, COUNT(*), MAX(COALESCE(last_heartbeat_at, 0))
		 FROM tasks GROUP BY agent_id, status`)
	if err != nil {
		return nil, fmt.Errorf("store: agent summaries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.AgentTaskSummary)
	for rows.Next() {
		var agentID, status string
		var n int
		var hb int64
		if err := rows.Scan(&agentID, &status, &n, &hb); err != nil {
			return nil, fmt.Errorf("store: scan agent summary: %w", err)
		}
		sum := out[agentID]
		if sum == nil {
			sum = &model.AgentTaskSummary{AgentID: agentID, ByStatus: make(map[model.TaskStatus]int)}
			out[agentID] = sum
		}
		sum.ByStatus[model.TaskStatus(status)] = n
		if hb > sum.LastHeartbeatAt {
			sum.LastHeartbeatAt = hb
		}
	}
	return out, rows.Err()
}

const taskColumns = `id, agent_id, parent_task_id, objective, status, priority, progress_summary,
	artifacts, last_heartbeat_at, created_at, updated_at, completed_at, metadata`

func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]model.TaskThread, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.TaskThread
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.TaskThread{}
	}
	return tasks, nil
}

func (s *TaskStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *TaskStore) attachDependencies(ctx context.Context, t *model.TaskThread) error {
	deps, err := s.GetDependencies(ctx, t.ID)
	if err != nil {
		return err
	}
	if len(deps) > 0 {
		t.Dependencies = deps
	} else {
		t.Dependencies = nil
	}
	return nil
}

func scanTask(row rowScanner) (*model.TaskThread, error) {
	var t model.TaskThread
	var parent, meta sql.NullString
	var artifacts string
	var heartbeat, completed sql.NullInt64
	var status, priority string
	if err := row.Scan(&t.ID, &t.AgentID, &parent, &t.Objective, &status, &priority,
		&t.ProgressSummary, &artifacts, &heartbeat, &t.CreatedAt, &t.UpdatedAt, &completed, &meta); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Priority = model.TaskPriority(priority)
	if parent.Valid {
		t.ParentTaskID = parent.String
	}
	t.Artifacts = decodeStrings(artifacts)
	if heartbeat.Valid {
		t.LastHeartbeatAt = heartbeat.Int64
	}
	if completed.Valid {
		t.CompletedAt = completed.Int64
	}
	t.Metadata = decodeMeta(meta)
	return &t, nil
}
