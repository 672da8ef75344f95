// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sensor aggregates decoded measurements into the latest EC, pH and
// temperature state, and feeds temperature compensation back to the device.
package sensor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

// ErrNoLedData is returned when no LED-mounted probe has reported yet.
var ErrNoLedData = errors.New("no LED temperature data")

// DefaultLedRoms are the probes mounted on the LED heat sinks of the
// reference installation. Every other probe is treated as a water probe.
var DefaultLedRoms = []aqualink.Rom{
	{40, 160, 118, 196, 10, 0, 0, 238},
	{40, 204, 21, 196, 10, 0, 0, 15},
	{40, 182, 213, 195, 10, 0, 0, 252},
	{40, 174, 48, 196, 10, 0, 0, 136},
	{40, 89, 181, 195, 10, 0, 0, 224},
	{40, 101, 142, 196, 10, 0, 0, 2},
	{40, 107, 181, 196, 10, 0, 0, 229},
	{40, 103, 111, 196, 10, 0, 0, 123},
}

// Config selects probe classification and compensation behaviour.
type Config struct {
	// LedRoms is the allow-list of LED probes. nil selects DefaultLedRoms.
	LedRoms      []aqualink.Rom
	CompensatePH bool
	Logger       *slog.Logger
}

// ProbeReading is the latest value reported by one probe.
type ProbeReading struct {
	Rom        aqualink.Rom `json:"rom"`
	Value      float64      `json:"value"`
	ObservedAt time.Time    `json:"observed_at"`
	Led        bool         `json:"led"`
}

// LedStats summarizes the LED probes in °C.
type LedStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

type reading struct {
	value float64
	at    time.Time
	ok    bool
}

// Aggregator owns the probe table and latest EC/pH values.
type Aggregator struct {
	bus          *link.Bus
	ledRoms      map[aqualink.Rom]struct{}
	compensatePH bool
	log          *slog.Logger

	mu     sync.Mutex
	probes []ProbeReading
	ec     reading
	ph     reading
	water  reading
}

// New creates an aggregator publishing its derived events on bus.
func New(bus *link.Bus, cfg Config) *Aggregator {
	roms := cfg.LedRoms
	if roms == nil {
		roms = DefaultLedRoms
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Aggregator{
		bus:          bus,
		ledRoms:      make(map[aqualink.Rom]struct{}, len(roms)),
		compensatePH: cfg.CompensatePH,
		log:          cfg.Logger,
	}
	for _, r := range roms {
		a.ledRoms[r] = struct{}{}
	}
	return a
}

// Attach subscribes the aggregator to measurement packets and cycle
// completion. The returned function detaches it.
func (a *Aggregator) Attach(bus *link.Bus) func() {
	return bus.Subscribe(func(e link.Event) {
		var err error
		switch ev := e.(type) {
		case link.PacketEvent:
			switch ev.Topic() {
			case link.TopicEcData:
				err = a.OnEcPacket(ev.Packet)
			case link.TopicPhData:
				err = a.OnPhPacket(ev.Packet)
			case link.TopicOwiData:
				err = a.OnTemperaturePacket(ev.Packet)
			}
		case link.MeasurementCycleComplete:
			a.OnMeasurementCycleComplete(ev.Queue)
		}
		if err != nil {
			a.log.Warn("dropping measurement", "topic", e.Topic(), "error", err)
		}
	}, link.TopicEcData, link.TopicPhData, link.TopicOwiData, link.TopicMeasurementCycleComplete)
}

// IsLed reports whether rom is on the LED allow-list.
func (a *Aggregator) IsLed(rom aqualink.Rom) bool {
	_, ok := a.ledRoms[rom]
	return ok
}

// OnEcPacket records a conductivity reading.
func (a *Aggregator) OnEcPacket(p *aqualink.Packet) error {
	value, err := aqualink.DecodeEcData(p)
	if err != nil {
		return fmt.Errorf("decode EC: %w", err)
	}

	a.mu.Lock()
	a.ec = reading{value: value, at: p.Timestamp(), ok: true}
	a.mu.Unlock()

	a.publish(link.EcValue{Value: value, At: p.Timestamp()})
	return nil
}

// OnPhPacket records a pH reading.
func (a *Aggregator) OnPhPacket(p *aqualink.Packet) error {
	value, err := aqualink.DecodePhData(p)
	if err != nil {
		return fmt.Errorf("decode pH: %w", err)
	}

	a.mu.Lock()
	a.ph = reading{value: value, at: p.Timestamp(), ok: true}
	a.mu.Unlock()

	a.publish(link.PhValue{Value: value, At: p.Timestamp()})
	return nil
}

// OnTemperaturePacket upserts a probe reading and republishes the summary
// of the subset the probe belongs to.
func (a *Aggregator) OnTemperaturePacket(p *aqualink.Packet) error {
	rom, value, err := aqualink.DecodeOwiData(p)
	if err != nil {
		return fmt.Errorf("decode temperature: %w", err)
	}
	led := a.IsLed(rom)
	at := p.Timestamp()

	a.mu.Lock()
	a.upsertLocked(ProbeReading{Rom: rom, Value: value, ObservedAt: at, Led: led})

	var ev link.Event
	if led {
		stats, _ := a.ledStatsLocked()
		ev = link.LedTemperature{Min: stats.Min, Max: stats.Max, Avg: stats.Avg, At: at}
	} else {
		avg, _ := a.ambientAvgLocked()
		a.water = reading{value: avg, at: at, ok: true}
		ev = link.WaterTemperature{Avg: avg, At: at}
	}
	a.mu.Unlock()

	a.publish(ev)
	return nil
}

// OnMeasurementCycleComplete queues temperature compensation for the
// next cycle. Nothing is queued until a water probe has reported.
func (a *Aggregator) OnMeasurementCycleComplete(q link.Enqueuer) {
	a.mu.Lock()
	water := a.water
	a.mu.Unlock()

	if !water.ok {
		a.log.Debug("no water temperature yet, skipping compensation")
		return
	}

	q.Enqueue(aqualink.NewEcCompensation(water.value))
	if a.compensatePH {
		q.Enqueue(aqualink.NewPhCompensation(water.value))
	}
}

// EC returns the latest conductivity in µS/cm.
func (a *Aggregator) EC() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ec.value, a.ec.ok
}

// PH returns the latest pH.
func (a *Aggregator) PH() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ph.value, a.ph.ok
}

// WaterTemperature returns the mean of the water probes in °C.
func (a *Aggregator) WaterTemperature() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.water.value, a.water.ok
}

// LedTemperature returns min, max and mean of the LED probes in °C.
func (a *Aggregator) LedTemperature() (LedStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledStatsLocked()
}

// LedStats is LedTemperature with ErrNoLedData in place of the flag.
func (a *Aggregator) LedStats() (LedStats, error) {
	stats, ok := a.LedTemperature()
	if !ok {
		return LedStats{}, ErrNoLedData
	}
	return stats, nil
}

// Probes returns a copy of the probe table in first-seen order.
func (a *Aggregator) Probes() ([]ProbeReading, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.probes) == 0 {
		return nil, false
	}
	return append([]ProbeReading(nil), a.probes...), true
}

func (a *Aggregator) upsertLocked(r ProbeReading) {
	for i := range a.probes {
		if a.probes[i].Rom == r.Rom {
			a.probes[i] = r
			return
		}
	}
	a.probes = append(a.probes, r)
}

func (a *Aggregator) ledStatsLocked() (LedStats, bool) {
	var stats LedStats
	var sum float64
	n := 0
	for _, p := range a.probes {
		if !p.Led {
			continue
		}
		if n == 0 || p.Value < stats.Min {
			stats.Min = p.Value
		}
		if n == 0 || p.Value > stats.Max {
			stats.Max = p.Value
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return LedStats{}, false
	}
	stats.Avg = sum / float64(n)
	return stats, true
}

func (a *Aggregator) ambientAvgLocked() (float64, bool) {
	var sum float64
	n := 0
	for _, p := range a.probes {
		if p.Led {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func (a *Aggregator) publish(e link.Event) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}
