package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/model"
)

// loopback hands every written record to the reader side.
type loopback struct {
	mu      sync.Mutex
	written []kafka.Message
	records chan kafka.Message

	// failures is how many reads fail before records flow
	failures int
	reads    int
}

func newLoopback() *loopback {
	return &loopback{records: make(chan kafka.Message, 16)}
}

func (l *loopback) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	l.mu.Lock()
	l.written = append(l.written, msgs...)
	l.mu.Unlock()
	for _, m := range msgs {
		l.records <- m
	}
	return nil
}

func (l *loopback) ReadMessage(ctx context.Context) (kafka.Message, error) {
	l.mu.Lock()
	l.reads++
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return kafka.Message{}, errors.New("broker unreachable")
	}
	l.mu.Unlock()
	select {
	case m := <-l.records:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (l *loopback) Close() error { return nil }

func TestKafkaRelayDeliversToLocalRecipient(t *testing.T) {
	hub, _ := newTestHub(t)
	bob := connect(t, hub, "bob")
	expectOnline(t, bob, "bob")

	lb := newLoopback()
	relay := newKafkaRelay(hub, lb, lb, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// malformed records are skipped
	lb.records <- kafka.Message{Value: []byte("garbage")}

	msg := &model.Message{ID: "1", SenderID: "alice", RecipientID: "bob", Text: "yo"}
	if err := relay.NotifyMessage(context.Background(), msg); err != nil {
		t.Fatalf("NotifyMessage failed: %v", err)
	}
	f := nextFrame(t, bob)
	if f.Event != model.EventNewMessage {
		t.Fatalf("expected newMessage, got %s", f.Event)
	}

	if err := relay.NotifySeen(context.Background(), "bob", "bob", 2); err != nil {
		t.Fatalf("NotifySeen failed: %v", err)
	}
	f = nextFrame(t, bob)
	var seen model.SeenData
	json.Unmarshal(f.Data, &seen)
	if f.Event != model.EventMessagesSeen || seen.Count != 2 {
		t.Errorf("unexpected seen frame %s %+v", f.Event, seen)
	}

	lb.mu.Lock()
	if len(lb.written) != 2 || string(lb.written[0].Key) != "bob" {
		t.Errorf("unexpected published records: %d", len(lb.written))
	}
	lb.mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
}

func TestKafkaRelayRetriesTransientReadErrors(t *testing.T) {
	hub, _ := newTestHub(t)
	bob := connect(t, hub, "bob")
	expectOnline(t, bob, "bob")

	lb := newLoopback()
	lb.failures = maxReadFailures - 1
	relay := newKafkaRelay(hub, lb, lb, zap.NewNop())
	relay.retryDelay = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	msg := &model.Message{ID: "2", SenderID: "alice", RecipientID: "bob", Text: "after outage"}
	if err := relay.NotifyMessage(context.Background(), msg); err != nil {
		t.Fatalf("NotifyMessage failed: %v", err)
	}
	if f := nextFrame(t, bob); f.Event != model.EventNewMessage {
		t.Fatalf("expected newMessage after recovery, got %s", f.Event)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
}

func TestKafkaRelayStopsAfterRepeatedReadErrors(t *testing.T) {
	hub, _ := newTestHub(t)
	lb := newLoopback()
	lb.failures = maxReadFailures
	relay := newKafkaRelay(hub, lb, lb, zap.NewNop())
	relay.retryDelay = time.Millisecond

	err := relay.Run(context.Background())
	if !errors.Is(err, model.ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.reads != maxReadFailures {
		t.Errorf("expected %d reads, got %d", maxReadFailures, lb.reads)
	}
}
