// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports link counters and the latest readings to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

const namespace = "hydrostat"

// Collector implements link.Observer and mirrors aggregate events into gauges.
type Collector struct {
	registry *prometheus.Registry

	framesReceived  *prometheus.CounterVec
	framesDiscarded *prometheus.CounterVec
	unknownKinds    *prometheus.CounterVec
	readTimeouts    prometheus.Counter
	framesSent      *prometheus.CounterVec
	keepalives      prometheus.Counter
	queueEvictions  prometheus.Counter
	writeErrors     prometheus.Counter
	queueDepth      prometheus.Gauge

	ec             prometheus.Gauge
	ph             prometheus.Gauge
	water          prometheus.Gauge
	ledTemperature *prometheus.GaugeVec
}

// New creates a collector registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_received_total",
			Help: "Decoded inbound packets by kind.",
		}, []string{"kind"}),
		framesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_discarded_total",
			Help: "Inbound frames dropped before dispatch.",
		}, []string{"reason"}),
		unknownKinds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "unknown_kinds_total",
			Help: "Valid packets of kinds the host does not accept.",
		}, []string{"id"}),
		readTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_timeouts_total",
			Help: "Reads that ended without a terminated frame.",
		}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_sent_total",
			Help: "Outbound packets by kind.",
		}, []string{"kind"}),
		keepalives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "keepalives_total",
			Help: "Ready requests sent after a read timeout.",
		}),
		queueEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_evictions_total",
			Help: "User commands dropped because the queue was full.",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_errors_total",
			Help: "Failed channel writes.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_depth",
			Help: "Pending user commands.",
		}),
		ec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ec_microsiemens_per_cm",
			Help: "Latest electrical conductivity.",
		}),
		ph: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ph",
			Help: "Latest pH.",
		}),
		water: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "water_temperature_celsius",
			Help: "Mean water probe temperature.",
		}),
		ledTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "led_temperature_celsius",
			Help: "LED probe temperature summary.",
		}, []string{"stat"}),
	}

	c.registry.MustRegister(
		c.framesReceived, c.framesDiscarded, c.unknownKinds, c.readTimeouts,
		c.framesSent, c.keepalives, c.queueEvictions, c.writeErrors, c.queueDepth,
		c.ec, c.ph, c.water, c.ledTemperature,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach mirrors aggregate events into gauges.
func (c *Collector) Attach(bus *link.Bus) func() {
	return bus.Subscribe(func(e link.Event) {
		switch ev := e.(type) {
		case link.EcValue:
			c.ec.Set(ev.Value)
		case link.PhValue:
			c.ph.Set(ev.Value)
		case link.WaterTemperature:
			c.water.Set(ev.Avg)
		case link.LedTemperature:
			c.ledTemperature.WithLabelValues("min").Set(ev.Min)
			c.ledTemperature.WithLabelValues("max").Set(ev.Max)
			c.ledTemperature.WithLabelValues("avg").Set(ev.Avg)
		}
	}, link.TopicEcValue, link.TopicPhValue, link.TopicWaterTemperature, link.TopicLedTemperature)
}

func (c *Collector) FrameReceived(id aqualink.PacketID) {
	c.framesReceived.WithLabelValues(id.String()).Inc()
}

func (c *Collector) FrameDiscarded(reason string) {
	c.framesDiscarded.WithLabelValues(reason).Inc()
}

func (c *Collector) UnknownKind(id aqualink.PacketID) {
	c.unknownKinds.WithLabelValues(strconv.Itoa(int(id))).Inc()
}

func (c *Collector) ReadTimeout()                   { c.readTimeouts.Inc() }
func (c *Collector) Keepalive()                     { c.keepalives.Inc() }
func (c *Collector) QueueEvicted()                  { c.queueEvictions.Inc() }
func (c *Collector) WriteError()                    { c.writeErrors.Inc() }
func (c *Collector) QueueDepth(n int)               { c.queueDepth.Set(float64(n)) }
func (c *Collector) FrameSent(id aqualink.PacketID) { c.framesSent.WithLabelValues(id.String()).Inc() }

var _ link.Observer = (*Collector)(nil)
