package watchdog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landywei/agent-co/internal/bus"
	"github.com/landywei/agent-co/internal/model"
	"github.com/landywei/agent-co/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staleRecorder struct {
	mu     sync.Mutex
	events []model.TaskStaleEvent
}

func (r *staleRecorder) record(ev model.Event) {
	if stale, ok := ev.(model.TaskStaleEvent); ok {
		r.mu.Lock()
		r.events = append(r.events, stale)
		r.mu.Unlock()
	}
}

func (r *staleRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestStore(t *testing.T) (*store.TaskStore, *bus.Bus, *staleRecorder) {
	t.Helper()
	b := bus.New(testLogger())
	rec := &staleRecorder{}
	b.Subscribe(rec.record)

	s, err := store.NewTaskStore(filepath.Join(t.TempDir(), "tasks.db"), b, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, b, rec
}

func TestWatchdogAlertsOncePerStall(t *testing.T) {
	s, b, rec := newTestStore(t)
	ctx := context.Background()

	const threshold = 50 * time.Millisecond
	w := New(s, b, time.Hour, threshold, testLogger())

	task, err := s.CreateTask(ctx, "builder", "going dark", "", "", nil, nil)
	require.NoError(t, err)

	// Too young to be stale.
	w.Scan(ctx)
	assert.Equal(t, 0, rec.count())

	time.Sleep(2 * threshold)

	// First scan past the threshold alerts.
	w.Scan(ctx)
	require.Equal(t, 1, rec.count())

	// Repeat scans stay quiet while the stall persists.
	w.Scan(ctx)
	w.Scan(ctx)
	assert.Equal(t, 1, rec.count(), "one alert per stale interval")

	// The task carries exactly one watchdog error log.
	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	require.NoError(t, err)
	var errLogs int
	for _, l := range logs {
		if l.Type == model.LogError {
			errLogs++
			assert.Equal(t, "watchdog", l.AgentID)
		}
	}
	assert.Equal(t, 1, errLogs)
}

func TestWatchdogRealertsAfterRecovery(t *testing.T) {
	s, b, rec := newTestStore(t)
	ctx := context.Background()

	const threshold = 50 * time.Millisecond
	w := New(s, b, time.Hour, threshold, testLogger())

	task, err := s.CreateTask(ctx, "builder", "flaky", "", "", nil, nil)
	require.NoError(t, err)

	time.Sleep(2 * threshold)
	w.Scan(ctx)
	require.Equal(t, 1, rec.count())

	// A heartbeat recovers the task; the scan clears it from the alerted
	// set.
	require.NoError(t, s.Heartbeat(ctx, task.ID, "builder", ""))
	w.Scan(ctx)
	assert.Equal(t, 1, rec.count())

	// Going silent again re-alerts.
	time.Sleep(2 * threshold)
	w.Scan(ctx)
	assert.Equal(t, 2, rec.count(), "recovered-then-stalled tasks alert again")
}

func TestWatchdogIgnoresTerminalTasks(t *testing.T) {
	s, b, rec := newTestStore(t)
	ctx := context.Background()

	const threshold = 50 * time.Millisecond
	w := New(s, b, time.Hour, threshold, testLogger())

	task, err := s.CreateTask(ctx, "builder", "done quickly", "", "", nil, nil)
	require.NoError(t, err)
	done := model.TaskDone
	_, err = s.UpdateTask(ctx, task.ID, model.TaskUpdate{Status: &done})
	require.NoError(t, err)

	time.Sleep(2 * threshold)
	w.Scan(ctx)
	assert.Equal(t, 0, rec.count())
}

func TestWatchdogRunStopsOnCancel(t *testing.T) {
	s, b, _ := newTestStore(t)

	w := New(s, b, 10*time.Millisecond, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop on context cancellation")
	}
}
