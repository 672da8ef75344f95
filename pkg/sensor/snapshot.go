// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensor

// Snapshot is a point-in-time copy of the aggregate state. Absent values
// are nil.
type Snapshot struct {
	EC               *float64       `json:"ec,omitempty"`
	PH               *float64       `json:"ph,omitempty"`
	WaterTemperature *float64       `json:"water_temperature,omitempty"`
	LedTemperature   *LedStats      `json:"led_temperature,omitempty"`
	Probes           []ProbeReading `json:"probes"`
}

// Snapshot copies the current state under a single lock.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{Probes: append([]ProbeReading{}, a.probes...)}
	if a.ec.ok {
		v := a.ec.value
		s.EC = &v
	}
	if a.ph.ok {
		v := a.ph.value
		s.PH = &v
	}
	if a.water.ok {
		v := a.water.value
		s.WaterTemperature = &v
	}
	if stats, ok := a.ledStatsLocked(); ok {
		s.LedTemperature = &stats
	}
	return s
}
