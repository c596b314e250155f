// Package kafka consumes delivery jobs from a Kafka topic and runs one
// manager cycle per message.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/service/matching"
)

// HandleFunc processes a single job from Kafka.
type HandleFunc func(context.Context, matching.Job) error

var newConsumerGroup = sarama.NewConsumerGroup

// Consumer wraps a Sarama consumer group and dispatches jobs to a handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
	logger  logx.Logger
	metrics *metrics.Metrics
	backoff time.Duration
}

// NewConsumer creates a new Kafka consumer. It returns nil, nil when Kafka
// is not configured.
func NewConsumer(logger logx.Logger, m *metrics.Metrics, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		logger:  logger.With(logx.String("component", "kafka_jobs"), logx.String("topic", topic)),
		metrics: m,
		backoff: time.Second,
	}, nil
}

// Run consumes until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka consume error", logx.Err(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close closes the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

// messageKey identifies a message across redeliveries. A retried message
// resumes the announcement of its first attempt instead of publishing a new one.
func messageKey(msg *sarama.ConsumerMessage) string {
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var dto JobDTO
		if err := json.Unmarshal(msg.Value, &dto); err != nil {
			h.c.logger.Warn("kafka bad json", logx.Int64("offset", msg.Offset), logx.Err(err))
			h.c.metrics.JobsConsumed.WithLabelValues("invalid").Inc()
			sess.MarkMessage(msg, "")
			continue
		}
		job, err := ToDomain(dto)
		if err != nil {
			h.c.logger.Warn("kafka invalid job", logx.Int64("offset", msg.Offset), logx.Err(err))
			h.c.metrics.JobsConsumed.WithLabelValues("invalid").Inc()
			sess.MarkMessage(msg, "")
			continue
		}
		job.Key = messageKey(msg)

		if err := h.c.handler(sess.Context(), job); err != nil {
			if isRetryable(err) {
				// leave the offset unmarked so the job is redelivered after rebalance
				h.c.logger.Error("kafka handle failed, retry", logx.String("pickup", job.Pickup), logx.Err(err))
				h.c.metrics.JobsConsumed.WithLabelValues("retry").Inc()
				return err
			}
			h.c.logger.Error("kafka handle failed, skipping message", logx.String("pickup", job.Pickup), logx.Err(err))
			h.c.metrics.JobsConsumed.WithLabelValues("failed").Inc()
			sess.MarkMessage(msg, "")
			continue
		}

		h.c.metrics.JobsConsumed.WithLabelValues("processed").Inc()
		sess.MarkMessage(msg, "")
	}
	return nil
}
