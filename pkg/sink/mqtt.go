// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// ErrNotConnected is returned when publishing while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt client not connected")

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Station     string
	QoS         byte
	Logger      *slog.Logger
}

// MQTT publishes each reading as JSON on <prefix>/<station>/<kind>.
type MQTT struct {
	client  mqtt.Client
	cfg     MQTTConfig
	log     *slog.Logger
	breaker *gobreaker.CircuitBreaker

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMQTT creates the sink. The client id gets a random suffix so several
// hosts can share a configuration.
func NewMQTT(cfg MQTTConfig) *MQTT {
	m := newMQTT(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8]))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		m.setConnected(true)
		m.log.Info("mqtt connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.setConnected(false)
		m.log.Warn("mqtt connection lost", "error", err)
	})

	m.client = mqtt.NewClient(opts)
	return m
}

func newMQTT(cfg MQTTConfig) *MQTT {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MQTT{
		cfg: cfg,
		log: cfg.Logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "mqtt-publish",
			Interval: time.Minute,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
		stopCh: make(chan struct{}),
	}
}

func (m *MQTT) Name() string { return "mqtt" }

// Connect dials the broker, retrying with exponential backoff until ctx
// ends or Close is called. Later drops are handled by paho's auto reconnect.
func (m *MQTT) Connect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	attempt := func() error {
		select {
		case <-m.stopCh:
			return backoff.Permanent(errors.New("client stopped"))
		default:
		}
		if m.IsConnected() {
			return nil
		}

		token := m.client.Connect()
		const poll = 200 * time.Millisecond
		for !token.WaitTimeout(poll) {
			if err := ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
		}
		if err := token.Error(); err != nil {
			m.log.Warn("mqtt connect failed", "broker", m.cfg.Broker, "error", err)
			return err
		}
		m.setConnected(true)
		return nil
	}

	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Topic returns the topic a reading kind is published on.
func (m *MQTT) Topic(kind Kind) string {
	return fmt.Sprintf("%s/%s/%s", m.cfg.TopicPrefix, m.cfg.Station, kind)
}

// Write publishes r. After repeated failures the breaker opens and writes
// fail fast with gobreaker.ErrOpenState until it half-opens again.
func (m *MQTT) Write(ctx context.Context, r Reading) error {
	_, err := m.breaker.Execute(func() (any, error) {
		return nil, m.publish(ctx, r)
	})
	return err
}

func (m *MQTT) publish(ctx context.Context, r Reading) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	topic := m.Topic(r.Kind)
	token := m.client.Publish(topic, m.cfg.QoS, false, data)

	timeout := WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	m.log.Debug("published reading", "topic", topic, "value", r.Value)
	return nil
}

// IsConnected reports whether the broker connection is up.
func (m *MQTT) IsConnected() bool {
	m.mu.RLock()
	connected := m.connected
	m.mu.RUnlock()
	return connected && m.client.IsConnected()
}

// Close stops any pending Connect and disconnects. Safe to call twice.
func (m *MQTT) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.client != nil {
		m.client.Disconnect(250)
	}
	m.setConnected(false)
	return nil
}

func (m *MQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}
