// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package station assembles the link components around one device channel
// and exposes them to external callers over HTTP.
package station

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
	"github.com/Thermoquad/hydrostat/pkg/sensor"
	"github.com/Thermoquad/hydrostat/pkg/sink"
)

// ErrNoConnection is returned by writes while no channel is attached.
var ErrNoConnection = errors.New("no connection")

// Conn is a device channel.
type Conn interface {
	io.ReadWriter
	SetReadTimeout(t time.Duration) error
}

// Config tunes a Station. Zero values select defaults.
type Config struct {
	ReadTimeout   time.Duration
	QueueCapacity int
	Sensors       sensor.Config
	Logger        *slog.Logger
	Observer      link.Observer
}

// Station owns the bus, receiver, scheduler and aggregator for one device.
// The channel underneath can be swapped between Run calls, so queued
// commands and probe state survive a reconnect.
type Station struct {
	Bus        *link.Bus
	Receiver   *link.Receiver
	Scheduler  *link.Scheduler
	Aggregator *sensor.Aggregator

	conn    *connHolder
	log     *slog.Logger
	detach  []func()
	sinks   []sink.Sink
	started time.Time
}

// New assembles a station. Nothing is read or written until Run.
func New(cfg Config) *Station {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sensors.Logger == nil {
		cfg.Sensors.Logger = cfg.Logger
	}

	holder := &connHolder{}
	bus := link.NewBus(cfg.Logger)

	s := &Station{
		Bus: bus,
		Receiver: link.NewReceiver(holder, bus, link.ReceiverConfig{
			ReadTimeout: cfg.ReadTimeout,
			Logger:      cfg.Logger,
			Observer:    cfg.Observer,
		}),
		Scheduler: link.NewScheduler(holder, bus, link.SchedulerConfig{
			QueueCapacity: cfg.QueueCapacity,
			Logger:        cfg.Logger,
			Observer:      cfg.Observer,
		}),
		Aggregator: sensor.New(bus, cfg.Sensors),
		conn:       holder,
		log:        cfg.Logger,
		started:    time.Now(),
	}

	s.detach = append(s.detach,
		s.Scheduler.Attach(bus),
		s.Aggregator.Attach(bus),
		bus.Subscribe(s.logDevice, link.TopicLogging),
	)
	return s
}

// Run drives the receiver over conn until ctx is cancelled (nil) or the
// channel fails (the error). The station stays usable for another Run.
func (s *Station) Run(ctx context.Context, conn Conn) error {
	s.conn.set(conn)
	defer s.conn.set(nil)
	return s.Receiver.Run(ctx)
}

// Connected reports whether a channel is attached.
func (s *Station) Connected() bool {
	return s.conn.get() != nil
}

// Uptime returns the time since the station was created.
func (s *Station) Uptime() time.Duration {
	return time.Since(s.started)
}

// Enqueue queues a user command.
func (s *Station) Enqueue(p *aqualink.Packet) {
	s.Scheduler.Enqueue(p)
}

// AttachSinks forwards aggregate readings to sinks. The station owns them
// from then on.
func (s *Station) AttachSinks(sinks ...sink.Sink) {
	s.detach = append(s.detach, sink.Attach(s.Bus, s.log, sinks...))
	s.sinks = append(s.sinks, sinks...)
}

// Close detaches every component, drains the bus and then closes the
// attached sinks, so readings still queued reach them first.
func (s *Station) Close() {
	for _, d := range s.detach {
		d()
	}
	s.detach = nil
	s.Bus.Close()

	for _, sk := range s.sinks {
		if err := sk.Close(); err != nil {
			s.log.Warn("closing sink", "sink", sk.Name(), "error", err)
		}
	}
	s.sinks = nil
}

func (s *Station) logDevice(e link.Event) {
	ev, ok := e.(link.PacketEvent)
	if !ok {
		return
	}
	rec, err := aqualink.ParseLogRecord(ev.Packet)
	if err != nil {
		s.log.Debug("unparsed device log", "error", err)
		return
	}
	s.log.Log(context.Background(), rec.Level.SlogLevel(), rec.Message,
		"device_source", rec.Source)
}

// connHolder lets the receiver and scheduler outlive a single connection.
type connHolder struct {
	mu   sync.RWMutex
	conn Conn
}

func (h *connHolder) set(c Conn) {
	h.mu.Lock()
	h.conn = c
	h.mu.Unlock()
}

func (h *connHolder) get() Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn
}

func (h *connHolder) Read(p []byte) (int, error) {
	c := h.get()
	if c == nil {
		return 0, ErrNoConnection
	}
	return c.Read(p)
}

func (h *connHolder) Write(p []byte) (int, error) {
	c := h.get()
	if c == nil {
		return 0, ErrNoConnection
	}
	return c.Write(p)
}

func (h *connHolder) SetReadTimeout(t time.Duration) error {
	c := h.get()
	if c == nil {
		return ErrNoConnection
	}
	return c.SetReadTimeout(t)
}
