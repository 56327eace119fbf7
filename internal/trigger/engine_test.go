package trigger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/gateway"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/roster"
	"github.com/landywei/agent-co/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeGateway records agent calls and signals each arrival.
type fakeGateway struct {
	mu    sync.Mutex
	calls []gateway.AgentRequest
	ch    chan gateway.AgentRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{ch: make(chan gateway.AgentRequest, 16)}
}

func (f *fakeGateway) Agent(ctx context.Context, req gateway.AgentRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	f.ch <- req
	return nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recorderHub captures broadcast frames.
type recorderHub struct {
	mu     sync.Mutex
	events []string
}

func (r *recorderHub) Broadcast(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorderHub) seen(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type triggerFixture struct {
	channels *store.ChannelStore
	engine   *Engine
	gw       *fakeGateway
	hub      *recorderHub
}

func newFixture(t *testing.T, cooldown time.Duration) *triggerFixture {
	t.Helper()

	b := bus.New(testLogger())
	channels, err := store.NewChannelStore(filepath.Join(t.TempDir(), "channels.db"), b, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = channels.Close() })

	gw := newFakeGateway()
	hub := &recorderHub{}
	engine := New(channels, roster.Default(), gw, hub, Config{
		Cooldown:        cooldown,
		TranscriptDepth: 15,
		GatewayTimeout:  5 * time.Second,
	}, testLogger())
	b.Subscribe(engine.HandleEvent)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	engine.Start(ctx)

	return &triggerFixture{channels: channels, engine: engine, gw: gw, hub: hub}
}

func waitForCall(t *testing.T, gw *fakeGateway) gateway.AgentRequest {
	t.Helper()
	select {
	case req := <-gw.ch:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gateway call")
		return gateway.AgentRequest{}
	}
}

func assertNoCall(t *testing.T, gw *fakeGateway, within time.Duration) {
	t.Helper()
	select {
	case req := <-gw.ch:
		t.Fatalf("unexpected gateway call for %s", req.SessionKey)
	case <-time.After(within):
	}
}

func TestPostWakesChannelAgents(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	ctx := context.Background()

	ch, err := f.channels.CreateChannel(ctx, "eng", model.ChannelPublic, "", "main", []string{"main", "builder"})
	require.NoError(t, err)

	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "kick off", "", nil)
	require.NoError(t, err)

	req := waitForCall(t, f.gw)
	assert.Equal(t, "agent:builder:webchat:channel:"+ch.ID, req.SessionKey)
	assert.False(t, req.Deliver)
	assert.NotEmpty(t, req.IdempotencyKey)
	assert.Equal(t, int64(5000), req.TimeoutMs)

	// The prompt names the channel, quotes the message, and instructs PASS.
	assert.Contains(t, req.Message, "#eng")
	assert.Contains(t, req.Message, "kick off")
	assert.Contains(t, req.Message, "[main]: kick off")
	assert.Contains(t, req.Message, "PASS")

	// The sender is never woken; only builder is both a member and an agent.
	assertNoCall(t, f.gw, 150*time.Millisecond)
	assert.Equal(t, 1, f.gw.callCount())
}

func TestCooldownDedup(t *testing.T) {
	f := newFixture(t, 300*time.Millisecond)
	ctx := context.Background()

	ch, err := f.channels.CreateChannel(ctx, "eng", model.ChannelPublic, "", "main", []string{"main", "scout", "builder"})
	require.NoError(t, err)

	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "first", "", nil)
	require.NoError(t, err)
	first := waitForCall(t, f.gw)
	second := waitForCall(t, f.gw)
	woken := map[string]bool{first.AgentID: true, second.AgentID: true}
	assert.True(t, woken["builder"] && woken["scout"], "both recipients wake on the first post")

	// A different sender inside the window: builder is still cooling down,
	// so only main (quiet until now) wakes.
	_, err = f.channels.PostMessage(ctx, ch.ID, "scout", "second", "", nil)
	require.NoError(t, err)
	mainCall := waitForCall(t, f.gw)
	assert.Equal(t, "main", mainCall.AgentID, "builder and scout are gated; only main may wake")
	assertNoCall(t, f.gw, 150*time.Millisecond)

	// Past the window the same pair fires again.
	time.Sleep(350 * time.Millisecond)
	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "third", "", nil)
	require.NoError(t, err)
	third := waitForCall(t, f.gw)
	fourth := waitForCall(t, f.gw)
	woken = map[string]bool{third.AgentID: true, fourth.AgentID: true}
	assert.True(t, woken["builder"] && woken["scout"])
}

func TestNonAgentMembersAreNotWoken(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	ctx := context.Background()

	// investor is a human operator, not on the roster.
	ch, err := f.channels.CreateChannel(ctx, "investor-relations", model.ChannelPrivate, "", "main", []string{"main", "investor"})
	require.NoError(t, err)

	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "update", "", nil)
	require.NoError(t, err)

	assertNoCall(t, f.gw, 150*time.Millisecond)
}

func TestChannelEventsRebroadcast(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	ctx := context.Background()

	ch, err := f.channels.CreateChannel(ctx, "eng", model.ChannelPublic, "", "main", nil)
	require.NoError(t, err)
	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "hello", "", nil)
	require.NoError(t, err)
	_, err = f.channels.AddMember(ctx, ch.ID, "builder", "")
	require.NoError(t, err)
	_, err = f.channels.RemoveMember(ctx, ch.ID, "builder")
	require.NoError(t, err)
	_, err = f.channels.DeleteChannel(ctx, ch.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.hub.seen("channel.created") &&
			f.hub.seen("channel.message") &&
			f.hub.seen("channel.member.joined") &&
			f.hub.seen("channel.member.left") &&
			f.hub.seen("channel.deleted")
	}, 2*time.Second, 10*time.Millisecond, "all channel events reach the dashboard hub")
}

func TestSessionStats(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	ctx := context.Background()

	ch, err := f.channels.CreateChannel(ctx, "eng", model.ChannelPublic, "", "main", []string{"main", "builder"})
	require.NoError(t, err)
	_, err = f.channels.PostMessage(ctx, ch.ID, "main", "kick off", "", nil)
	require.NoError(t, err)
	waitForCall(t, f.gw)

	stats := f.engine.SessionStats()
	require.Contains(t, stats, "builder")
	assert.Equal(t, 1, stats["builder"].Count)
	assert.NotZero(t, stats["builder"].LastAt)
}

func TestCooldownGate(t *testing.T) {
	g := newCooldownGate(5 * time.Second)

	assert.True(t, g.allow("builder", "ch1", 1000))
	assert.False(t, g.allow("builder", "ch1", 2000), "inside the window")
	assert.True(t, g.allow("builder", "ch2", 2000), "distinct channel is a distinct gate")
	assert.True(t, g.allow("scout", "ch1", 2000), "distinct agent is a distinct gate")
	assert.True(t, g.allow("builder", "ch1", 6001), "window elapsed")
}

func TestCooldownPrune(t *testing.T) {
	g := newCooldownGate(5 * time.Second)

	g.allow("builder", "ch1", 1000)
	g.allow("scout", "ch1", 9000)
	require.Equal(t, 2, g.size())

	// Entries older than 2x the window go away; fresh ones stay.
	g.prune(12_000)
	assert.Equal(t, 1, g.size())
	assert.False(t, g.allow("scout", "ch1", 12_500), "surviving entry still gates")
	assert.True(t, g.allow("builder", "ch1", 12_500), "pruned entry no longer gates")
}

func TestBuildPrompt(t *testing.T) {
	msg := model.ChannelMessage{SenderID: "main", Text: "ship it"}
	transcript := []model.ChannelMessage{
		{SenderID: "scout", Text: "found a bug"},
		{SenderID: "main", Text: "ship it"},
	}

	prompt := buildPrompt("eng", msg, transcript)

	require.True(t, strings.HasPrefix(prompt, "New message in #eng from main:"))
	assert.Contains(t, prompt, "[scout]: found a bug")
	assert.Contains(t, prompt, "[main]: ship it")
	assert.Contains(t, prompt, "company.channels.post")
	assert.Contains(t, prompt, "company.channels.history")
	assert.Contains(t, prompt, "PASS")
}
