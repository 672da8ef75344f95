// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/hydrostat/pkg/link"
	"github.com/Thermoquad/hydrostat/pkg/sensor"
)

var (
	probesRounds  int
	probesTimeout int
	probesYAML    bool
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the one-wire temperature probes on the bus",
	Long: `Run measurement rounds and list every probe ROM that reported.

Each probe is classified as LED (on the sensors.led_roms allow-list) or
water/ambient. Use this to build the allow-list for a new installation;
--yaml prints the current LED probes as a sensors section.

Exit codes:
  0 - At least one probe found
  1 - No probes reported before timeout
  2 - Connection error`,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
	probesCmd.Flags().IntVar(&probesRounds, "rounds", 2, "Measurement cycles to run")
	probesCmd.Flags().IntVar(&probesTimeout, "timeout", 30, "Timeout in seconds")
	probesCmd.Flags().BoolVar(&probesYAML, "yaml", false, "Print LED probes as a config snippet")
}

func runProbes(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	st, err := newStation(nil)
	if err != nil {
		return err
	}
	defer st.Close()

	printBanner("Probe Discovery", connInfo,
		fmt.Sprintf("Rounds: %d", probesRounds),
		fmt.Sprintf("Timeout: %d seconds", probesTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(probesTimeout)*time.Second)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cycles := 0
	st.Bus.Subscribe(func(e link.Event) {
		cycles++
		fmt.Printf("cycle %d/%d complete\n", cycles, probesRounds)
		// The cycle completes when the last ring command is sent; allow
		// one more round so its reply lands.
		if cycles > probesRounds {
			cancel()
		}
	}, link.TopicMeasurementCycleComplete)

	if err := st.Run(ctx, conn); err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	probes, ok := st.Aggregator.Probes()
	if !ok {
		fmt.Fprintf(os.Stderr, "No probes reported\n")
		os.Exit(1)
	}
	printProbes(probes)

	if probesYAML {
		return printLedRoms(probes)
	}
	return nil
}

func printProbes(probes []sensor.ProbeReading) {
	sort.Slice(probes, func(i, j int) bool {
		if probes[i].Led != probes[j].Led {
			return probes[i].Led
		}
		return probes[i].Rom.String() < probes[j].Rom.String()
	})

	fmt.Printf("\n%-18s %-6s %9s  %s\n", "ROM", "CLASS", "TEMP", "AGE")
	for _, p := range probes {
		class := "water"
		if p.Led {
			class = "led"
		}
		fmt.Printf("%-18s %-6s %8.2f°C  %s\n", p.Rom, class, p.Value,
			time.Since(p.ObservedAt).Round(time.Millisecond))
	}
	fmt.Printf("\n%d probes found\n", len(probes))
}

func printLedRoms(probes []sensor.ProbeReading) error {
	type sensors struct {
		LedRoms []string `yaml:"led_roms"`
	}
	var s sensors
	for _, p := range probes {
		if p.Led {
			s.LedRoms = append(s.LedRoms, p.Rom.String())
		}
	}

	out, err := yaml.Marshal(map[string]sensors{"sensors": s})
	if err != nil {
		return err
	}
	fmt.Printf("\n%s", out)
	return nil
}
