package model

// EventKind names a bus event. The names are wire-exact: WebSocket frames
// carry them verbatim in the "type" field.
type EventKind string

const (
	// Channel events.
	EventChannelCreated EventKind = "channel.created"
	EventChannelDeleted EventKind = "channel.deleted"
	EventChannelMessage EventKind = "channel.message"
	EventMemberJoined   EventKind = "channel.member.joined"
	EventMemberLeft     EventKind = "channel.member.left"

	// Task events.
	EventTaskCreated   EventKind = "task.created"
	EventTaskUpdated   EventKind = "task.updated"
	EventTaskLog       EventKind = "task.log"
	EventTaskHeartbeat EventKind = "task.heartbeat"
	EventTaskStale     EventKind = "task.stale"
	EventTaskCompleted EventKind = "task.completed"
	EventTaskFailed    EventKind = "task.failed"
)

// Event is the tagged union delivered over the bus. Each variant carries the
// fully-populated values downstream consumers need; subscribers never
// re-read the store and must not mutate payloads.
type Event interface {
	Kind() EventKind
}

// ChannelCreatedEvent fires after a channel row and its initial members
// commit.
type ChannelCreatedEvent struct {
	Channel Channel `json:"channel"`
}

func (ChannelCreatedEvent) Kind() EventKind { return EventChannelCreated }

// ChannelDeletedEvent fires after a channel and its cascaded members and
// messages are gone.
type ChannelDeletedEvent struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
}

func (ChannelDeletedEvent) Kind() EventKind { return EventChannelDeleted }

// ChannelMessageEvent carries the full message plus the channel name, which
// consumers use for routing prompts without a store round-trip.
type ChannelMessageEvent struct {
	ChannelName string         `json:"channelName"`
	Message     ChannelMessage `json:"message"`
}

func (ChannelMessageEvent) Kind() EventKind { return EventChannelMessage }

// MemberJoinedEvent fires after a membership edge commits.
type MemberJoinedEvent struct {
	Member ChannelMember `json:"member"`
}

func (MemberJoinedEvent) Kind() EventKind { return EventMemberJoined }

// MemberLeftEvent fires after a membership edge is removed.
type MemberLeftEvent struct {
	ChannelID string `json:"channelId"`
	MemberID  string `json:"memberId"`
}

func (MemberLeftEvent) Kind() EventKind { return EventMemberLeft }

// TaskCreatedEvent fires after the task row, its dependency edges, and the
// created log entry commit together.
type TaskCreatedEvent struct {
	Task TaskThread `json:"task"`
}

func (TaskCreatedEvent) Kind() EventKind { return EventTaskCreated }

// TaskUpdatedEvent fires on every successful patch.
type TaskUpdatedEvent struct {
	Task TaskThread `json:"task"`
}

func (TaskUpdatedEvent) Kind() EventKind { return EventTaskUpdated }

// TaskCompletedEvent fires in addition to TaskUpdatedEvent when a patch
// transitions the task to done.
type TaskCompletedEvent struct {
	Task TaskThread `json:"task"`
}

func (TaskCompletedEvent) Kind() EventKind { return EventTaskCompleted }

// TaskFailedEvent fires in addition to TaskUpdatedEvent when a patch
// transitions the task to failed.
type TaskFailedEvent struct {
	Task TaskThread `json:"task"`
}

func (TaskFailedEvent) Kind() EventKind { return EventTaskFailed }

// TaskLogEvent fires after a log entry commits.
type TaskLogEvent struct {
	Log TaskLog `json:"log"`
}

func (TaskLogEvent) Kind() EventKind { return EventTaskLog }

// TaskHeartbeatEvent fires after a heartbeat touch commits.
type TaskHeartbeatEvent struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId"`
	At      int64  `json:"at"`
}

func (TaskHeartbeatEvent) Kind() EventKind { return EventTaskHeartbeat }

// TaskStaleEvent is emitted by the watchdog, once per stale interval, for a
// task that has gone silent.
type TaskStaleEvent struct {
	Task        TaskThread `json:"task"`
	SilentForMs int64      `json:"silentForMs"`
}

func (TaskStaleEvent) Kind() EventKind { return EventTaskStale }
