package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/facility"
)

// flushTimeoutMs bounds how long Publish waits for outstanding deliveries.
const flushTimeoutMs = 10000

// Publisher produces one JSON message per facility to a topic.
type Publisher struct {
	config   kafka.ConfigMap
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

// ParseURL builds a producer config from kafka://brokers/topic?key=value.
// Query parameters are passed through as librdkafka settings.
func ParseURL(uri *url.URL) (kafka.ConfigMap, string, error) {
	topic := strings.TrimPrefix(uri.Path, "/")
	if topic == "" {
		return nil, "", fmt.Errorf("topic must be specified in URL path")
	}
	if uri.Host == "" {
		return nil, "", fmt.Errorf("brokers must be specified in URL host")
	}

	config := kafka.ConfigMap{
		"bootstrap.servers": uri.Host,
		"client.id":         "locator",

		"acks":                "all",
		"compression.type":    "snappy",
		"linger.ms":           "5",
		"delivery.timeout.ms": "10000",
	}

	for key, values := range uri.Query() {
		if len(values) > 0 {
			config[key] = values[0]
		}
	}

	return config, topic, nil
}

func NewPublisher(uri *url.URL, logger *zap.Logger) (*Publisher, error) {
	config, topic, err := ParseURL(uri)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(&config)
	if err != nil {
		return nil, err
	}

	logger.Info("kafka publisher connected",
		zap.String("topic", topic),
		zap.String("brokers", uri.Host))

	return &Publisher{
		config:   config,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *Publisher) Name() string {
	return "kafka"
}

func (p *Publisher) Publish(ctx context.Context, facilities []facility.Facility) error {
	deliveries := make(chan kafka.Event, len(facilities))

	for _, f := range facilities {
		value, err := json.Marshal(f)
		if err != nil {
			return err
		}

		var key []byte
		if f.Name != nil {
			key = []byte(*f.Name)
		}

		message := &kafka.Message{
			TopicPartition: kafka.TopicPartition{
				Topic:     &p.topic,
				Partition: kafka.PartitionAny,
			},
			Key:   key,
			Value: value,
		}

		if err := p.producer.Produce(message, deliveries); err != nil {
			return err
		}
	}

	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		return fmt.Errorf("kafka: %d messages not delivered before timeout", remaining)
	}

	for range facilities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-deliveries:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				return fmt.Errorf("kafka: delivery failed: %w", m.TopicPartition.Error)
			}
		}
	}

	p.logger.Info("published facilities",
		zap.String("topic", p.topic),
		zap.Int("count", len(facilities)))
	return nil
}

func (p *Publisher) Close(ctx context.Context) error {
	p.producer.Close()
	return nil
}
