package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
)

type fakeBroadcaster struct {
	channel string
	payload any
	calls   int
}

func (f *fakeBroadcaster) Broadcast(channel string, payload any) {
	f.channel = channel
	f.payload = payload
	f.calls++
}

type fakePublisher struct {
	events []Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestNewExceededEvent(t *testing.T) {
	e := NewExceededEvent("d1", "u1", 150, 100)

	if e.DeviceID != "d1" || e.UserID != "u1" {
		t.Errorf("event ids = %s/%s", e.DeviceID, e.UserID)
	}
	if !strings.Contains(e.Message, "d1") || !strings.Contains(e.Message, "150.00") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	b := &fakeBroadcaster{}
	p := &fakePublisher{}
	d := NewDispatcher(b, p, logging.Default(), nil)

	event := NewExceededEvent("d1", "u1", 150, 100)
	d.Dispatch(context.Background(), event)

	if b.calls != 1 {
		t.Fatalf("broadcast calls = %d", b.calls)
	}
	if b.channel != ChannelConsumptionExceeded {
		t.Errorf("channel = %s", b.channel)
	}
	if got := b.payload.(Event); got.DeviceID != "d1" {
		t.Errorf("payload = %+v", got)
	}
	if len(p.events) != 1 {
		t.Errorf("published events = %d", len(p.events))
	}
}

func TestDispatcher_PublisherFailureDoesNotPanic(t *testing.T) {
	b := &fakeBroadcaster{}
	p := &fakePublisher{err: errors.New("broker gone")}
	d := NewDispatcher(b, p, logging.Default(), nil)

	d.Dispatch(context.Background(), NewExceededEvent("d1", "u1", 150, 100))

	// Observers are still notified when the durable sink fails.
	if b.calls != 1 {
		t.Errorf("broadcast calls = %d", b.calls)
	}
}

func TestDispatcher_NilPublisher(t *testing.T) {
	b := &fakeBroadcaster{}
	d := NewDispatcher(b, nil, logging.Default(), nil)

	d.Dispatch(context.Background(), NewExceededEvent("d1", "u1", 150, 100))

	if b.calls != 1 {
		t.Errorf("broadcast calls = %d", b.calls)
	}
}
