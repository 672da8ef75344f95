// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Hydrostat - hydroponics sensor controller link
//
// Polls the controller's temperature, EC and pH sensors over a framed
// serial or WebSocket link and republishes the readings.

package main

import (
	"os"

	"github.com/Thermoquad/hydrostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
