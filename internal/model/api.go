package model

import "encoding/json"

// Wire error codes for the RPC surface. NOT_FOUND conditions surface as
// INVALID_REQUEST with "not found" in the message, for compatibility with
// existing callers.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeAlreadyExists  = "ALREADY_EXISTS"
	ErrCodeUnavailable    = "UNAVAILABLE"
)

// RPCRequest is the envelope for POST /rpc.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCErrorDetail describes a failed RPC call.
type RPCErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateChannelParams is the body of company.channels.create.
type CreateChannelParams struct {
	Name        string      `json:"name"`
	Type        ChannelType `json:"type"`
	Description string      `json:"description,omitempty"`
	CreatedBy   string      `json:"createdBy"`
	Members     []string    `json:"members,omitempty"`
}

// GetChannelParams is the body of company.channels.get and .delete.
// Both resolve Channel as an id or a name.
type GetChannelParams struct {
	Channel string `json:"channel"`
}

// ListChannelsParams is the body of company.channels.list.
type ListChannelsParams struct {
	MemberID string `json:"memberId,omitempty"`
}

// PostMessageParams is the body of company.channels.post. Channel accepts
// an id or a name.
type PostMessageParams struct {
	Channel  string         `json:"channel"`
	SenderID string         `json:"senderId"`
	Text     string         `json:"text"`
	ThreadID string         `json:"threadId,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HistoryParams is the body of company.channels.history.
type HistoryParams struct {
	Channel  string `json:"channel"`
	Limit    *int   `json:"limit,omitempty"`
	Before   *int64 `json:"before,omitempty"`
	ThreadID string `json:"threadId,omitempty"`
}

// MemberParams is the body of company.channels.members.add / .remove.
type MemberParams struct {
	Channel  string     `json:"channel"`
	MemberID string     `json:"memberId"`
	Role     MemberRole `json:"role,omitempty"`
}

// CreateTaskParams is the body of tasks.create.
type CreateTaskParams struct {
	AgentID      string         `json:"agentId"`
	Objective    string         `json:"objective"`
	ParentTaskID string         `json:"parentTaskId,omitempty"`
	Priority     TaskPriority   `json:"priority,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TaskIDParams is the body of tasks.get.
type TaskIDParams struct {
	TaskID string `json:"taskId"`
}

// UpdateTaskParams is the body of tasks.update.
type UpdateTaskParams struct {
	TaskID string `json:"taskId"`
	TaskUpdate
}

// ListTasksParams is the body of tasks.list.
type ListTasksParams struct {
	AgentID      string     `json:"agentId,omitempty"`
	Status       TaskStatus `json:"status,omitempty"`
	ParentTaskID string     `json:"parentTaskId,omitempty"`
	Limit        *int       `json:"limit,omitempty"`
}

// TaskLogsParams is the body of tasks.logs.
type TaskLogsParams struct {
	TaskID string `json:"taskId"`
	Limit  *int   `json:"limit,omitempty"`
	Before *int64 `json:"before,omitempty"`
}

// AppendLogParams is the body of tasks.log.
type AppendLogParams struct {
	TaskID   string         `json:"taskId"`
	AgentID  string         `json:"agentId"`
	Type     TaskLogType    `json:"type"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HeartbeatParams is the body of tasks.heartbeat.
type HeartbeatParams struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId"`
	Message string `json:"message,omitempty"`
}

// CompanyCreateParams is the body of company.create.
type CompanyCreateParams struct {
	Goal string `json:"goal"`
}
