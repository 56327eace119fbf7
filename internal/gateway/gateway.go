// Package gateway is the HTTP RPC client for the external LLM gateway —
// the only thing the core ever asks of it is `agent(sessionKey, message)`,
// which resumes an agent session asynchronously.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// AgentRequest is one wake-up call. Deliver is always false from the core:
// the gateway runs the turn but does not deliver the result anywhere; the
// agent replies through the channel post operation itself. A fresh
// idempotency key makes retries safe.
type AgentRequest struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	Deliver        bool   `json:"deliver"`
	IdempotencyKey string `json:"idempotencyKey"`
	TimeoutMs      int64  `json:"timeoutMs"`

	// Call-log annotations; not part of the wire request.
	AgentID   string `json:"-"`
	ChannelID string `json:"-"`
}

// Caller invokes the external gateway. The trigger engine depends on this
// interface; tests substitute a fake.
type Caller interface {
	Agent(ctx context.Context, req AgentRequest) error
}

// Client calls the gateway over HTTP with a per-call deadline.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	callLog *CallLog
}

// New creates a gateway client. callLog may be nil to disable call logging.
func New(baseURL string, timeout time.Duration, callLog *CallLog, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		callLog: callLog,
	}
}

type rpcEnvelope struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcResult struct {
	OK    bool `json:"ok"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Agent invokes the gateway's `agent` RPC. The call is fire-and-forget
// from the caller's point of view — the gateway executes the turn
// asynchronously — but transport errors and RPC-level failures surface
// here so the trigger engine can log them.
func (c *Client) Agent(ctx context.Context, req AgentRequest) error {
	start := time.Now()
	err := c.call(ctx, "agent", req)
	if c.callLog != nil {
		c.callLog.Record(CallRecord{
			Timestamp:      start.UnixMilli(),
			AgentID:        req.AgentID,
			SessionKey:     req.SessionKey,
			IdempotencyKey: req.IdempotencyKey,
			ChannelID:      req.ChannelID,
			OK:             err == nil,
			Error:          errString(err),
			DurationMs:     time.Since(start).Milliseconds(),
		})
	}
	return err
}

func (c *Client) call(ctx context.Context, method string, params any) error {
	body, err := json.Marshal(rpcEnvelope{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("gateway: marshal %s: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: %s: unexpected status %d", method, resp.StatusCode)
	}

	var result rpcResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("gateway: decode %s response: %w", method, err)
	}
	if !result.OK {
		msg := "unknown error"
		if result.Error != nil {
			msg = result.Error.Code + ": " + result.Error.Message
		}
		return fmt.Errorf("gateway: %s failed: %s", method, msg)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
