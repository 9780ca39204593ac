package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "verigate/pkg/domain"
)

// KafkaSink mirrors audit records to a Kafka topic for downstream SIEM and
// compliance consumers. Records are keyed by target id so one target's
// history lands on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

type kafkaRecord struct {
	ID         string          `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    id.UserID       `json:"actor_id"`
	Action     Action          `json:"action"`
	TargetType TargetType      `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Reason     string          `json:"reason,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	// Already-exists is the steady state after first boot.
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 3, -1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, resp.Err)
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, record Record) error {
	payload, err := json.Marshal(kafkaRecord{
		ID:         record.ID,
		OccurredAt: record.Timestamp,
		ActorID:    record.ActorID,
		Action:     record.Action,
		TargetType: record.TargetType,
		TargetID:   record.TargetID,
		Reason:     record.Reason,
		Before:     record.Before,
		After:      record.After,
		IP:         record.IP,
		UserAgent:  record.UserAgent,
		RequestID:  record.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	result := s.client.ProduceSync(ctx, &kgo.Record{
		Key:   []byte(record.TargetID),
		Value: payload,
	})
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
