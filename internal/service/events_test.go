package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type failingListener struct {
	calls int
}

func (l *failingListener) PaymentCompleted(ctx context.Context, ev PaymentEvent) error {
	l.calls++
	return errors.New("sink unavailable")
}

func (l *failingListener) PaymentFailed(ctx context.Context, ev PaymentEvent) error {
	l.calls++
	return errors.New("sink unavailable")
}

func TestEventsFanOut(t *testing.T) {
	events := NewEvents(zap.NewNop())
	first := &recordingListener{}
	second := &recordingListener{}
	events.Register(first)
	events.Register(second)

	events.EmitCompleted(context.Background(), PaymentEvent{OrderID: 1})
	events.EmitFailed(context.Background(), PaymentEvent{OrderID: 2, Reason: "Cancelled"})

	for i, l := range []*recordingListener{first, second} {
		if len(l.completed) != 1 || l.completed[0].OrderID != 1 {
			t.Fatalf("listener %d missed completed event: %+v", i, l.completed)
		}
		if len(l.failed) != 1 || l.failed[0].Reason != "Cancelled" {
			t.Fatalf("listener %d missed failed event: %+v", i, l.failed)
		}
	}
}

func TestEventsListenerErrorDoesNotStopDispatch(t *testing.T) {
	events := NewEvents(zap.NewNop())
	bad := &failingListener{}
	good := &recordingListener{}
	events.Register(bad)
	events.Register(good)

	events.EmitCompleted(context.Background(), PaymentEvent{OrderID: 1})

	if bad.calls != 1 {
		t.Fatalf("failing listener not invoked: %d", bad.calls)
	}
	if len(good.completed) != 1 {
		t.Fatal("error in one listener must not prevent the next from running")
	}
}

func TestEventsNoListeners(t *testing.T) {
	events := NewEvents(zap.NewNop())
	// Must not panic with nothing registered.
	events.EmitCompleted(context.Background(), PaymentEvent{OrderID: 1})
	events.EmitFailed(context.Background(), PaymentEvent{OrderID: 1})
}
