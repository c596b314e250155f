// Package mqttsink publishes relay messages to an MQTT broker.
package mqttsink

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"service-dispatch/internal/relay"
)

// Name identifies the sink in logs and metrics.
const Name = "mqtt"

// Client is the subset of mqtt.Client used by the sink.
type Client interface {
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Sink publishes each message with the configured QoS.
type Sink struct {
	client Client
	qos    byte
}

// New wraps an already connected client.
func New(client Client, qos byte) *Sink {
	return &Sink{client: client, qos: qos}
}

// Dial connects to broker. It returns nil, nil when broker is empty.
func Dial(broker, clientID string, qos byte, optsFunc func(*mqtt.ClientOptions)) (*Sink, error) {
	if broker == "" {
		return nil, nil
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	if optsFunc != nil {
		optsFunc(opts)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return New(client, qos), nil
}

// Name implements relay.Sink.
func (s *Sink) Name() string { return Name }

// Publish waits for the broker acknowledgement or ctx, whichever comes first.
func (s *Sink) Publish(ctx context.Context, msg relay.Message) error {
	if msg.Topic == "" {
		return fmt.Errorf("%w: empty topic", relay.ErrPermanent)
	}
	token := s.client.Publish(msg.Topic, s.qos, false, msg.Payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", msg.Topic, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Sink) Close() error {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}
