// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/hydrostat/pkg/link"
	"github.com/Thermoquad/hydrostat/pkg/sensor"
	"github.com/Thermoquad/hydrostat/pkg/station"
)

// newStation builds a station from the resolved configuration.
func newStation(obs link.Observer) (*station.Station, error) {
	roms, err := cfg.Sensors.Roms()
	if err != nil {
		return nil, err
	}
	return station.New(station.Config{
		ReadTimeout:   cfg.Serial.ReadTimeout,
		QueueCapacity: cfg.Scheduler.QueueCapacity,
		Sensors: sensor.Config{
			LedRoms:      roms,
			CompensatePH: cfg.Sensors.CompensatePH,
			Logger:       logger,
		},
		Logger:   logger,
		Observer: obs,
	}), nil
}

// printBanner prints the command header shared by the diagnostic commands.
func printBanner(title, connInfo string, extra ...string) {
	fmt.Printf("Hydrostat - %s\n", title)
	fmt.Printf("Connection: %s\n", connInfo)
	for _, line := range extra {
		fmt.Println(line)
	}
	fmt.Println()
}
