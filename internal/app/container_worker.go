package app

import (
	"context"
	"fmt"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/relay"
	"service-dispatch/internal/relay/kafkasink"
	"service-dispatch/internal/relay/mqttsink"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/store"
	"service-dispatch/internal/transport/kafka"
)

var (
	dialKafkaSink = kafkasink.Dial
	dialMQTTSink  = mqttsink.Dial
	newConsumer   = kafka.NewConsumer
)

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		newJobConsumer,
		newRelay,
	)
}

// jobHandler runs one full cycle per consumed job.
func jobHandler(engine *matching.Engine) kafka.HandleFunc {
	return func(ctx context.Context, job matching.Job) error {
		_, err := engine.RunCycle(ctx, job)
		return err
	}
}

func newJobConsumer(cfg *config.Config, logger logx.Logger, m *metrics.Metrics, engine *matching.Engine) (*kafka.Consumer, error) {
	kc := cfg.Kafka
	c, err := newConsumer(logger, m, kc.Brokers, kc.GroupID, kc.JobsTopic, jobHandler(engine))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if c == nil {
		logger.Info("job intake disabled: kafka is not configured")
	}
	return c, nil
}

type relayIn struct {
	dig.In

	Cfg     *config.Config
	Logger  logx.Logger
	Metrics *metrics.Metrics
	Store   store.Store
}

// newRelay returns nil when neither Kafka nor MQTT is configured.
func newRelay(in relayIn) (*relay.Relay, error) {
	cfg := in.Cfg
	retry := relay.RetryConfig{
		MaxAttempts: cfg.Relay.MaxAttempts,
		BaseDelay:   cfg.Relay.BaseDelay,
		MaxDelay:    cfg.Relay.MaxDelay,
	}

	var selections, notifications relay.Sink

	ks, err := dialKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	if err != nil {
		return nil, err
	}
	if ks != nil {
		selections = relay.NewRetryingSink(ks, in.Logger, in.Metrics.RelayRetries, retry)
	}

	ms, err := dialMQTTSink(cfg.MQTT.Broker, cfg.MQTT.ClientID, byte(cfg.MQTT.QoS), nil)
	if err != nil {
		if selections != nil {
			_ = selections.Close()
		}
		return nil, err
	}
	if ms != nil {
		notifications = relay.NewRetryingSink(ms, in.Logger, in.Metrics.RelayRetries, retry)
	}

	if selections == nil && notifications == nil {
		in.Logger.Info("relay disabled: no sink configured")
		return nil, nil
	}
	return relay.New(in.Store, selections, notifications, relay.Config{
		SelectionTopic:    cfg.Kafka.SelectionsTopic,
		NotificationTopic: cfg.MQTT.NotificationTopic,
	}, in.Logger, in.Metrics), nil
}
