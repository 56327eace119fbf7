// Package trigger is the wake-up engine: it watches channel traffic and
// resumes exactly the right agents through the external LLM gateway,
// deduplicating with a per-(agent, channel) cooldown so busy channels never
// turn into wake-up storms.
package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/landywei/agent-co/internal/gateway"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/roster"
	"github.com/landywei/agent-co/internal/store"
)

// Broadcaster pushes events to connected dashboards. The WebSocket hub
// implements it; tests use a recorder.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Config tunes the engine.
type Config struct {
	Cooldown        time.Duration
	TranscriptDepth int
	GatewayTimeout  time.Duration
}

// SessionStat is the per-agent dispatch tally surfaced on the dashboard.
type SessionStat struct {
	Count  int   `json:"count"`
	LastAt int64 `json:"lastAt,omitempty"`
}

// Engine subscribes to channel events, re-broadcasts them to the WebSocket
// hub, and converts channel.message events into gateway wake-ups.
//
// Delivery discipline: the bus subscriber only enqueues; a single worker
// goroutine computes recipients and fires gateway calls on their own
// goroutines, each with an independent timeout. Gateway failures are logged
// and swallowed — the post they stem from is already durable.
type Engine struct {
	channels *store.ChannelStore
	roster   *roster.Roster
	gw       gateway.Caller
	hub      Broadcaster
	cfg      Config
	logger   *slog.Logger

	gate  *cooldownGate
	queue chan model.Event

	statsMu sync.Mutex
	stats   map[string]*SessionStat

	dispatches sync.WaitGroup
	now        func() int64
}

// New creates an engine. Call Start to begin processing.
func New(channels *store.ChannelStore, r *roster.Roster, gw gateway.Caller, hub Broadcaster, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		channels: channels,
		roster:   r,
		gw:       gw,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
		gate:     newCooldownGate(cfg.Cooldown),
		queue:    make(chan model.Event, 256),
		stats:    make(map[string]*SessionStat),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// HandleEvent is the bus subscriber. It must not block: events go onto the
// engine's own queue; when the queue is full the event is dropped with a
// warning (the watchdog and later traffic recover anything missed).
func (e *Engine) HandleEvent(ev model.Event) {
	switch ev.Kind() {
	case model.EventChannelMessage, model.EventChannelCreated, model.EventChannelDeleted,
		model.EventMemberJoined, model.EventMemberLeft:
	default:
		return
	}
	select {
	case e.queue <- ev:
	default:
		e.logger.Warn("trigger: queue full, dropping event", "event", string(ev.Kind()))
	}
}

// Start runs the worker and the cooldown pruner until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go e.worker(ctx)
	go e.pruner(ctx)
}

// Drain waits for in-flight gateway dispatches, up to ctx's deadline.
func (e *Engine) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.dispatches.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("trigger: drain timed out with dispatches in flight")
	}
}

// SessionStats returns a copy of the per-agent dispatch tallies.
func (e *Engine) SessionStats() map[string]SessionStat {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := make(map[string]SessionStat, len(e.stats))
	for id, s := range e.stats {
		out[id] = *s
	}
	return out
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.queue:
			// Dashboards refresh off the event stream; forward every
			// channel event, not just messages.
			e.hub.Broadcast(string(ev.Kind()), ev)

			if msg, ok := ev.(model.ChannelMessageEvent); ok {
				e.handleMessage(ctx, msg)
			}
		}
	}
}

func (e *Engine) pruner(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.gate.prune(e.now())
		}
	}
}

// handleMessage resolves recipients — channel members who are known agents,
// minus the sender — applies the cooldown gate, and dispatches a wake-up
// for everyone who passes.
func (e *Engine) handleMessage(ctx context.Context, ev model.ChannelMessageEvent) {
	members, err := e.channels.Members(ctx, ev.Message.ChannelID)
	if err != nil {
		e.logger.Error("trigger: load members", "channel", ev.ChannelName, "error", err)
		return
	}

	now := e.now()
	for _, m := range members {
		agentID := m.MemberID
		if agentID == ev.Message.SenderID || !e.roster.IsAgent(agentID) {
			continue
		}
		if !e.gate.allow(agentID, ev.Message.ChannelID, now) {
			e.logger.Debug("trigger: cooldown skip",
				"agent", agentID, "channel", ev.ChannelName)
			continue
		}
		e.dispatch(ev, agentID)
	}
}

// dispatch fires one gateway call on its own goroutine with an independent
// timeout. Completion is not awaited; for one (agent, channel) pair the
// cooldown gate serializes wake-ups, and distinct pairs run concurrently.
func (e *Engine) dispatch(ev model.ChannelMessageEvent, agentID string) {
	transcript, err := e.channels.GetMessages(context.Background(), ev.Message.ChannelID, store.MessageQuery{
		Limit: &e.cfg.TranscriptDepth,
	})
	if err != nil {
		e.logger.Error("trigger: load transcript", "channel", ev.ChannelName, "error", err)
		transcript = nil
	}

	req := gateway.AgentRequest{
		SessionKey:     "agent:" + agentID + ":webchat:channel:" + ev.Message.ChannelID,
		Message:        buildPrompt(ev.ChannelName, ev.Message, transcript),
		Deliver:        false,
		IdempotencyKey: uuid.NewString(),
		TimeoutMs:      e.cfg.GatewayTimeout.Milliseconds(),
		AgentID:        agentID,
		ChannelID:      ev.Message.ChannelID,
	}

	e.recordDispatch(agentID)

	e.dispatches.Add(1)
	go func() {
		defer e.dispatches.Done()

		callCtx, cancel := context.WithTimeout(context.Background(), e.cfg.GatewayTimeout)
		defer cancel()

		if err := e.gw.Agent(callCtx, req); err != nil {
			// Swallowed: the post is the source of truth, the wake-up is
			// best-effort.
			e.logger.Warn("trigger: gateway call failed",
				"agent", agentID, "channel", ev.ChannelName, "error", err)
		}
	}()
}

func (e *Engine) recordDispatch(agentID string) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s := e.stats[agentID]
	if s == nil {
		s = &SessionStat{}
		e.stats[agentID] = s
	}
	s.Count++
	s.LastAt = e.now()
}
