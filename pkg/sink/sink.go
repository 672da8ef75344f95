// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink forwards aggregated readings to external stores.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/link"
)

// Kind names a reading stream.
type Kind string

const (
	KindEC               Kind = "ec"
	KindPH               Kind = "ph"
	KindWaterTemperature Kind = "water_temperature"
	KindLedTemperature   Kind = "led_temperature"
)

// Reading is one aggregated value. Min and Max are set for LED temperature only.
type Reading struct {
	Kind  Kind      `json:"kind"`
	Value float64   `json:"value"`
	Min   *float64  `json:"min,omitempty"`
	Max   *float64  `json:"max,omitempty"`
	At    time.Time `json:"at"`
}

// Sink stores or forwards readings.
type Sink interface {
	Name() string
	Write(ctx context.Context, r Reading) error
	Close() error
}

// WriteTimeout bounds a single sink write.
const WriteTimeout = 5 * time.Second

// FromEvent converts an aggregate event into a reading.
func FromEvent(e link.Event) (Reading, bool) {
	switch ev := e.(type) {
	case link.EcValue:
		return Reading{Kind: KindEC, Value: ev.Value, At: ev.At}, true
	case link.PhValue:
		return Reading{Kind: KindPH, Value: ev.Value, At: ev.At}, true
	case link.WaterTemperature:
		return Reading{Kind: KindWaterTemperature, Value: ev.Avg, At: ev.At}, true
	case link.LedTemperature:
		lo, hi := ev.Min, ev.Max
		return Reading{Kind: KindLedTemperature, Value: ev.Avg, Min: &lo, Max: &hi, At: ev.At}, true
	default:
		return Reading{}, false
	}
}

// Attach subscribes each sink to aggregate events separately, so every
// sink sees readings in order on its own goroutine. A failing or stalled
// sink is logged and does not hold up the others. The returned function
// detaches all of them.
func Attach(bus *link.Bus, logger *slog.Logger, sinks ...Sink) func() {
	if logger == nil {
		logger = slog.Default()
	}

	detach := make([]func(), 0, len(sinks))
	for _, s := range sinks {
		detach = append(detach, bus.Subscribe(func(e link.Event) {
			r, ok := FromEvent(e)
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			if err := s.Write(ctx, r); err != nil {
				logger.Warn("sink write failed", "sink", s.Name(), "kind", r.Kind, "error", err)
			}
		}, link.TopicEcValue, link.TopicPhValue, link.TopicWaterTemperature, link.TopicLedTemperature))
	}

	return func() {
		for _, d := range detach {
			d()
		}
	}
}
