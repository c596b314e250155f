// Package kafkasink publishes relay messages to Kafka.
package kafkasink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"service-dispatch/internal/relay"
)

// Name identifies the sink in logs and metrics.
const Name = "kafka"

// Sink writes relay messages through a sarama SyncProducer.
type Sink struct {
	producer sarama.SyncProducer
}

// New returns a Sink over an existing producer.
func New(producer sarama.SyncProducer) *Sink {
	return &Sink{producer: producer}
}

// Dial connects a SyncProducer to brokers. It returns nil, nil when no
// brokers are configured.
func Dial(brokers []string, clientID string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	producer, err := sarama.NewSyncProducer(brokers, ProducerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return New(producer), nil
}

// ProducerConfig is the sarama configuration used by Dial. Retries are left
// to relay.RetryingSink.
func ProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 0
	cfg.Producer.Timeout = 5 * time.Second
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// Name implements relay.Sink.
func (s *Sink) Name() string { return Name }

// Publish sends msg keyed by msg.Key so one announcement stays on one partition.
func (s *Sink) Publish(ctx context.Context, msg relay.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Topic == "" {
		return fmt.Errorf("%w: empty topic", relay.ErrPermanent)
	}
	pm := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Value: sarama.ByteEncoder(msg.Payload),
	}
	if msg.Key != "" {
		pm.Key = sarama.StringEncoder(msg.Key)
	}
	if _, _, err := s.producer.SendMessage(pm); err != nil {
		if errors.Is(err, sarama.ErrMessageSizeTooLarge) || errors.Is(err, sarama.ErrInvalidMessage) {
			return fmt.Errorf("%w: %w", relay.ErrPermanent, err)
		}
		return fmt.Errorf("kafka send %s: %w", msg.Topic, err)
	}
	return nil
}

// Close closes the producer.
func (s *Sink) Close() error {
	return s.producer.Close()
}
