package auditlogs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
)

// KafkaSink mirrors every audit entry onto a topic for downstream SIEM
// consumers. Delivery is confirmed per message; the audit workers absorb the
// latency.
type KafkaSink struct {
	topic    string
	producer *kafka.Producer
}

func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaSink{topic: cfg.Topic, producer: producer}, nil
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Write(_ context.Context, entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	deliveryChan := make(chan kafka.Event)

	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Value:          data,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	e := <-deliveryChan
	m, ok := e.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event type %T", e)
	}

	if m.TopicPartition.Error != nil {
		return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
	}

	close(deliveryChan)
	return nil
}

func (s *KafkaSink) Close() {
	if s.producer != nil {
		s.producer.Flush(5000)
		s.producer.Close()
	}
}
