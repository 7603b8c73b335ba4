package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	pkglog "github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// ConfluentProducer implements EventProducer using confluent-kafka-go.
type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
	now      func() time.Time
}

// NewConfluentProducer creates a new Kafka producer for broadcast events.
func NewConfluentProducer(brokers, topic string, partitions int) (*ConfluentProducer, error) {
	// Ensure topic exists with desired partition count
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", topic).Msg("failed to ensure topic, may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
		now:      time.Now,
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	l := pkglog.L()
	for e := range cp.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			l.Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
		}
	}
	close(cp.doneCh)
}

// buildMessage keys by stream id so one broadcast stays on one partition.
func buildMessage(topic *string, event *Event) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.StreamID),
		Value: value,
	}, nil
}

func (cp *ConfluentProducer) produceEvent(event *Event) error {
	msg, err := buildMessage(&cp.topic, event)
	if err != nil {
		return err
	}
	if err := cp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// ProduceBroadcastStarted sends a broadcast_started event to Kafka.
func (cp *ConfluentProducer) ProduceBroadcastStarted(ctx context.Context, streamID, host string) error {
	return cp.produceEvent(&Event{
		Type:      EventBroadcastStarted,
		StreamID:  streamID,
		Host:      host,
		Timestamp: cp.now().Unix(),
	})
}

// ProduceBroadcastStopped sends a broadcast_stopped event to Kafka.
func (cp *ConfluentProducer) ProduceBroadcastStopped(ctx context.Context, streamID, host, reason string) error {
	return cp.produceEvent(&Event{
		Type:      EventBroadcastStopped,
		StreamID:  streamID,
		Host:      host,
		Reason:    reason,
		Timestamp: cp.now().Unix(),
	})
}

// ProduceTipDistributed sends a tip_distributed event to Kafka.
func (cp *ConfluentProducer) ProduceTipDistributed(ctx context.Context, streamID, tipper string, amount int64, credits []domain.Credit) error {
	return cp.produceEvent(&Event{
		Type:      EventTipDistributed,
		StreamID:  streamID,
		Tipper:    tipper,
		Amount:    amount,
		Credits:   credits,
		Timestamp: cp.now().Unix(),
	})
}

// Close flushes pending messages and closes the producer.
func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
