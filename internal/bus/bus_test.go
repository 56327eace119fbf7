package bus

import (
	"log/slog"
	"os"
	"testing"

	"github.com/landywei/agent-co/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New(testLogger())

	var order []string
	b.Subscribe(func(ev model.Event) { order = append(order, "first") })
	b.Subscribe(func(ev model.Event) { order = append(order, "second") })
	b.Subscribe(func(ev model.Event) { order = append(order, "third") })

	b.Publish(model.TaskHeartbeatEvent{TaskID: "t1", AgentID: "builder", At: 1})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("got %d deliveries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(testLogger())

	var delivered int
	b.Subscribe(func(ev model.Event) { panic("boom") })
	b.Subscribe(func(ev model.Event) { delivered++ })

	b.Publish(model.TaskHeartbeatEvent{TaskID: "t1", AgentID: "builder", At: 1})

	if delivered != 1 {
		t.Errorf("subscriber after the panicking one got %d deliveries, want 1", delivered)
	}
}

func TestEventKinds(t *testing.T) {
	cases := []struct {
		ev   model.Event
		want model.EventKind
	}{
		{model.ChannelCreatedEvent{}, model.EventChannelCreated},
		{model.ChannelDeletedEvent{}, model.EventChannelDeleted},
		{model.ChannelMessageEvent{}, model.EventChannelMessage},
		{model.MemberJoinedEvent{}, model.EventMemberJoined},
		{model.MemberLeftEvent{}, model.EventMemberLeft},
		{model.TaskCreatedEvent{}, model.EventTaskCreated},
		{model.TaskUpdatedEvent{}, model.EventTaskUpdated},
		{model.TaskCompletedEvent{}, model.EventTaskCompleted},
		{model.TaskFailedEvent{}, model.EventTaskFailed},
		{model.TaskLogEvent{}, model.EventTaskLog},
		{model.TaskHeartbeatEvent{}, model.EventTaskHeartbeat},
		{model.TaskStaleEvent{}, model.EventTaskStale},
	}
	for _, c := range cases {
		if got := c.ev.Kind(); got != c.want {
			t.Errorf("Kind() = %s, want %s", got, c.want)
		}
	}
}
