package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/landywei/agent-co/internal/bootstrap"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/store"
)

// maxRPCBodyBytes bounds RPC request bodies.
const maxRPCBodyBytes = 1 << 20

type rpcHandler func(ctx context.Context, params json.RawMessage) (map[string]any, *rpcFailure)

type rpcFailure struct {
	code    string
	message string
}

func invalidf(format string, args ...any) *rpcFailure {
	return &rpcFailure{code: model.ErrCodeInvalidRequest, message: fmt.Sprintf(format, args...)}
}

// storeFailure maps store errors to wire codes. Not-found conditions
// surface as INVALID_REQUEST with "not found" in the message for
// compatibility; everything else is a transient backend failure.
func storeFailure(err error) *rpcFailure {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &rpcFailure{code: model.ErrCodeInvalidRequest, message: err.Error()}
	case errors.Is(err, store.ErrAlreadyExists):
		return &rpcFailure{code: model.ErrCodeAlreadyExists, message: err.Error()}
	default:
		return &rpcFailure{code: model.ErrCodeUnavailable, message: err.Error()}
	}
}

// handleRPC decodes the envelope and dispatches on the method name.
func (h *Handlers) handleRPC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)

	var req model.RPCRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeRPCError(w, model.ErrCodeInvalidRequest, "malformed request body: "+err.Error())
		return
	}
	if req.Method == "" {
		writeRPCError(w, model.ErrCodeInvalidRequest, "method is required")
		return
	}

	handler, ok := h.methods[req.Method]
	if !ok {
		writeRPCError(w, model.ErrCodeInvalidRequest, "unknown method "+req.Method)
		return
	}

	fields, fail := handler(r.Context(), req.Params)
	if fail != nil {
		writeRPCError(w, fail.code, fail.message)
		return
	}
	writeOK(w, fields)
}

func (h *Handlers) registerMethods() {
	h.methods = map[string]rpcHandler{
		"company.channels.list":           h.rpcChannelsList,
		"company.channels.get":            h.rpcChannelsGet,
		"company.channels.create":         h.rpcChannelsCreate,
		"company.channels.delete":         h.rpcChannelsDelete,
		"company.channels.post":           h.rpcChannelsPost,
		"company.channels.history":        h.rpcChannelsHistory,
		"company.channels.members.add":    h.rpcMembersAdd,
		"company.channels.members.remove": h.rpcMembersRemove,

		"tasks.create":    h.rpcTasksCreate,
		"tasks.get":       h.rpcTasksGet,
		"tasks.update":    h.rpcTasksUpdate,
		"tasks.list":      h.rpcTasksList,
		"tasks.logs":      h.rpcTasksLogs,
		"tasks.log":       h.rpcTasksLog,
		"tasks.heartbeat": h.rpcTasksHeartbeat,
		"tasks.summary":   h.rpcTasksSummary,

		"company.create": h.rpcCompanyCreate,
	}
}

func decodeParams[T any](raw json.RawMessage) (T, *rpcFailure) {
	var params T
	if len(raw) == 0 {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		var zero T
		return zero, invalidf("malformed params: %s", err)
	}
	return params, nil
}

// --- Channels ---

func (h *Handlers) rpcChannelsList(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.ListChannelsParams](raw)
	if fail != nil {
		return nil, fail
	}
	var (
		previews []model.ChannelPreview
		err      error
	)
	if params.MemberID != "" {
		previews, err = h.channels.ListChannelsForMember(ctx, params.MemberID)
	} else {
		previews, err = h.channels.ListChannels(ctx)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	if previews == nil {
		previews = []model.ChannelPreview{}
	}
	return map[string]any{"channels": previews}, nil
}

func (h *Handlers) rpcChannelsGet(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.GetChannelParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Channel == "" {
		return nil, invalidf("channel is required")
	}
	ch, err := h.channels.GetChannel(ctx, params.Channel)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ch == nil {
		return nil, invalidf("channel %s not found", params.Channel)
	}
	return map[string]any{"channel": ch}, nil
}

func (h *Handlers) rpcChannelsCreate(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.CreateChannelParams](raw)
	if fail != nil {
		return nil, fail
	}
	if err := model.ValidateChannelName(params.Name); err != nil {
		return nil, invalidf("name: %s", err)
	}
	if params.Type == "" {
		params.Type = model.ChannelPublic
	}
	if !model.ValidChannelType(params.Type) {
		return nil, invalidf("type %q is not one of public, private, dm", params.Type)
	}
	if params.CreatedBy == "" {
		return nil, invalidf("createdBy is required")
	}

	ch, err := h.channels.CreateChannel(ctx, params.Name, params.Type, params.Description, params.CreatedBy, params.Members)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"channel": ch}, nil
}

func (h *Handlers) rpcChannelsDelete(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.GetChannelParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Channel == "" {
		return nil, invalidf("channel is required")
	}
	ch, err := h.channels.ResolveChannel(ctx, params.Channel)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ch == nil {
		return nil, invalidf("channel %s not found", params.Channel)
	}
	deleted, err := h.channels.DeleteChannel(ctx, ch.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"deleted": deleted}, nil
}

func (h *Handlers) rpcChannelsPost(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.PostMessageParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Channel == "" {
		return nil, invalidf("channel is required")
	}
	if params.SenderID == "" {
		return nil, invalidf("senderId is required")
	}
	if params.Text == "" {
		return nil, invalidf("text is required")
	}

	ch, err := h.channels.ResolveChannel(ctx, params.Channel)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ch == nil {
		return nil, invalidf("channel %s not found", params.Channel)
	}

	msg, err := h.channels.PostMessage(ctx, ch.ID, params.SenderID, params.Text, params.ThreadID, params.Metadata)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"message": msg}, nil
}

func (h *Handlers) rpcChannelsHistory(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.HistoryParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Channel == "" {
		return nil, invalidf("channel is required")
	}
	ch, err := h.channels.ResolveChannel(ctx, params.Channel)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ch == nil {
		return nil, invalidf("channel %s not found", params.Channel)
	}

	msgs, err := h.channels.GetMessages(ctx, ch.ID, store.MessageQuery{
		Limit:    params.Limit,
		Before:   params.Before,
		ThreadID: params.ThreadID,
	})
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"messages": msgs}, nil
}

func (h *Handlers) rpcMembersAdd(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.MemberParams](raw)
	if fail != nil {
		return nil, fail
	}
	ch, failMember := h.resolveMemberParams(ctx, params)
	if failMember != nil {
		return nil, failMember
	}
	if params.Role != "" && params.Role != model.RoleAdmin && params.Role != model.RoleMember {
		return nil, invalidf("role %q is not one of admin, member", params.Role)
	}
	added, err := h.channels.AddMember(ctx, ch.ID, params.MemberID, params.Role)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"added": added}, nil
}

func (h *Handlers) rpcMembersRemove(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.MemberParams](raw)
	if fail != nil {
		return nil, fail
	}
	ch, failMember := h.resolveMemberParams(ctx, params)
	if failMember != nil {
		return nil, failMember
	}
	removed, err := h.channels.RemoveMember(ctx, ch.ID, params.MemberID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"removed": removed}, nil
}

func (h *Handlers) resolveMemberParams(ctx context.Context, params model.MemberParams) (*model.Channel, *rpcFailure) {
	if params.Channel == "" {
		return nil, invalidf("channel is required")
	}
	if params.MemberID == "" {
		return nil, invalidf("memberId is required")
	}
	ch, err := h.channels.ResolveChannel(ctx, params.Channel)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ch == nil {
		return nil, invalidf("channel %s not found", params.Channel)
	}
	return ch, nil
}

// --- Tasks ---

func (h *Handlers) rpcTasksCreate(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.CreateTaskParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.AgentID == "" {
		return nil, invalidf("agentId is required")
	}
	if params.Objective == "" {
		return nil, invalidf("objective is required")
	}
	if params.Priority != "" && !model.ValidTaskPriority(params.Priority) {
		return nil, invalidf("priority %q is not one of critical, high, medium, low", params.Priority)
	}

	task, err := h.tasks.CreateTask(ctx, params.AgentID, params.Objective, params.ParentTaskID, params.Priority, params.Dependencies, params.Metadata)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"task": task}, nil
}

func (h *Handlers) rpcTasksGet(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.TaskIDParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.TaskID == "" {
		return nil, invalidf("taskId is required")
	}
	task, err := h.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if task == nil {
		return nil, invalidf("task %s not found", params.TaskID)
	}
	return map[string]any{"task": task}, nil
}

func (h *Handlers) rpcTasksUpdate(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.UpdateTaskParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.TaskID == "" {
		return nil, invalidf("taskId is required")
	}
	if params.Status != nil && !model.ValidTaskStatus(*params.Status) {
		return nil, invalidf("status %q is not one of active, blocked, waiting, done, failed", *params.Status)
	}
	if params.Priority != nil && !model.ValidTaskPriority(*params.Priority) {
		return nil, invalidf("priority %q is not one of critical, high, medium, low", *params.Priority)
	}

	task, err := h.tasks.UpdateTask(ctx, params.TaskID, params.TaskUpdate)
	if err != nil {
		return nil, storeFailure(err)
	}
	if task == nil {
		return nil, invalidf("task %s not found", params.TaskID)
	}
	return map[string]any{"task": task}, nil
}

func (h *Handlers) rpcTasksList(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.ListTasksParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Status != "" && !model.ValidTaskStatus(params.Status) {
		return nil, invalidf("status %q is not one of active, blocked, waiting, done, failed", params.Status)
	}
	tasks, err := h.tasks.ListTasks(ctx, store.TaskFilter{
		AgentID:      params.AgentID,
		Status:       params.Status,
		ParentTaskID: params.ParentTaskID,
		Limit:        params.Limit,
	})
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"tasks": tasks}, nil
}

func (h *Handlers) rpcTasksLogs(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.TaskLogsParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.TaskID == "" {
		return nil, invalidf("taskId is required")
	}
	logs, err := h.tasks.GetLogs(ctx, params.TaskID, store.LogQuery{Limit: params.Limit, Before: params.Before})
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"logs": logs}, nil
}

func (h *Handlers) rpcTasksLog(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.AppendLogParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.TaskID == "" {
		return nil, invalidf("taskId is required")
	}
	if params.AgentID == "" {
		return nil, invalidf("agentId is required")
	}
	if !model.ValidTaskLogType(params.Type) {
		return nil, invalidf("type %q is not a recognized log type", params.Type)
	}
	if params.Message == "" {
		return nil, invalidf("message is required")
	}

	entry, err := h.tasks.AppendLog(ctx, params.TaskID, params.AgentID, params.Type, params.Message, params.Metadata)
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"log": entry}, nil
}

func (h *Handlers) rpcTasksHeartbeat(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.HeartbeatParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.TaskID == "" {
		return nil, invalidf("taskId is required")
	}
	if params.AgentID == "" {
		return nil, invalidf("agentId is required")
	}
	if err := h.tasks.Heartbeat(ctx, params.TaskID, params.AgentID, params.Message); err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{}, nil
}

func (h *Handlers) rpcTasksSummary(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	summary, err := h.tasks.GetSummary(ctx, h.staleThreshold.Milliseconds())
	if err != nil {
		return nil, storeFailure(err)
	}
	return map[string]any{"summary": summary}, nil
}

// --- Company ---

func (h *Handlers) rpcCompanyCreate(ctx context.Context, raw json.RawMessage) (map[string]any, *rpcFailure) {
	params, fail := decodeParams[model.CompanyCreateParams](raw)
	if fail != nil {
		return nil, fail
	}
	if params.Goal == "" {
		return nil, invalidf("goal is required")
	}
	boot := bootstrap.New(h.stateDir, h.roster, h.channels, h.logger)
	if err := boot.Run(ctx, params.Goal); err != nil {
		return nil, &rpcFailure{code: model.ErrCodeUnavailable, message: err.Error()}
	}
	return map[string]any{}, nil
}
