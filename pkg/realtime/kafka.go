package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/model"
)

const (
	kindMessageCreated = "message.created"
	kindMessagesSeen   = "messages.seen"

	// maxReadFailures consecutive read errors stop the relay.
	maxReadFailures = 5
)

// relayRecord is the value written to the events topic.
type relayRecord struct {
	Kind   string          `json:"kind"`
	UserID string          `json:"user_id"`
	Event  json.RawMessage `json:"event"`
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaRelay publishes chat events to a topic and pushes every record it
// consumes to the recipients connected to the local hub. Each process reads
// with its own consumer group so every instance sees every record.
type KafkaRelay struct {
	hub        *Hub
	writer     kafkaWriter
	reader     kafkaReader
	log        *zap.Logger
	retryDelay time.Duration
}

func NewKafkaRelay(hub *Hub, brokers []string, topic string, log *zap.Logger) *KafkaRelay {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "chat-relay-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	return newKafkaRelay(hub, writer, reader, log)
}

func newKafkaRelay(hub *Hub, w kafkaWriter, r kafkaReader, log *zap.Logger) *KafkaRelay {
	return &KafkaRelay{hub: hub, writer: w, reader: r, log: log.Named("kafka-relay"), retryDelay: time.Second}
}

func (k *KafkaRelay) NotifyMessage(ctx context.Context, msg *model.Message) error {
	return k.publish(ctx, kindMessageCreated, msg.RecipientID, model.Event{Type: model.EventNewMessage, Data: msg})
}

func (k *KafkaRelay) NotifySeen(ctx context.Context, by, peer string, count int64) error {
	return k.publish(ctx, kindMessagesSeen, peer, model.Event{
		Type: model.EventMessagesSeen,
		Data: model.SeenData{By: by, Count: count},
	})
}

func (k *KafkaRelay) publish(ctx context.Context, kind, userID string, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(relayRecord{Kind: kind, UserID: userID, Event: payload})
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: value,
		Time:  time.Now(),
	})
	return model.Dependency(err, "kafka publish "+kind)
}

// Run consumes the topic until ctx is cancelled. Read errors are retried
// with a growing delay; after maxReadFailures in a row Run gives up and
// returns the last one, leaving cross-process fan-out down.
func (k *KafkaRelay) Run(ctx context.Context) error {
	defer k.reader.Close()
	failures := 0
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures >= maxReadFailures {
				k.log.Error("kafka relay giving up", zap.Int("failures", failures), zap.Error(err))
				return model.Dependency(err, "kafka read")
			}
			delay := time.Duration(failures) * k.retryDelay
			k.log.Warn("kafka read failed, retrying",
				zap.Int("failures", failures), zap.Duration("retry_in", delay), zap.Error(err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		failures = 0

		var rec relayRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil || rec.UserID == "" {
			k.log.Warn("skipping malformed record", zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		if err := k.hub.pushRaw(ctx, rec.UserID, rec.Event); err != nil {
			if errors.Is(err, ErrHubStopped) || ctx.Err() != nil {
				return nil
			}
			k.log.Warn("push relayed event", zap.String("kind", rec.Kind), zap.Error(err))
		}
	}
}

func (k *KafkaRelay) Close() error {
	return k.writer.Close()
}
