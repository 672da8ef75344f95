// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

var (
	showAll       bool
	statsInterval int
	statsPassive  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Detect and analyze malformed packets and errors",
	Long: `Track packet errors, malformed data, and anomalous values with statistics.

The measurement loop runs as usual while every received packet is validated:
  - Length mismatches and truncated payloads
  - CRC errors and decode failures
  - Anomalous values (temperature outside the probe range, EC/pH out of range)
  - Statistics and trends (packet rate, error rate, success rate)

By default, only problems are displayed. Use --show-all to display valid
packets too. With --passive nothing is sent; another host must drive the link.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	statsCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	statsCmd.Flags().BoolVar(&statsPassive, "passive", false, "Listen only, do not poll the controller")
}

func runStats(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := newStation(nil)
	if err != nil {
		return err
	}
	defer st.Close()
	if statsPassive {
		st.Scheduler.Pause()
	}

	mode := "Errors only"
	if showAll {
		mode = "All packets"
	}
	printBanner("Error Detection", connInfo,
		fmt.Sprintf("Statistics interval: %d seconds", statsInterval),
		fmt.Sprintf("Mode: %s", mode),
		"Press Ctrl+C to exit")

	st.Bus.Subscribe(func(e link.Event) {
		ev, ok := e.(link.PacketEvent)
		if !ok {
			return
		}
		if errs := aqualink.ValidatePacket(ev.Packet); len(errs) > 0 {
			printValidationErrors(ev.Packet, errs)
		} else if showAll {
			fmt.Print(aqualink.FormatPacket(ev.Packet))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Duration(statsInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				printStatistics(st.Receiver.Statistics())
			}
		}
	}()

	err = st.Run(ctx, conn)
	printStatistics(st.Receiver.Statistics())
	return err
}

// printValidationErrors prints validation errors for a packet
func printValidationErrors(packet *aqualink.Packet, errs []aqualink.ValidationError) {
	timestamp := packet.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (%d)\n", timestamp, packet.ID(), packet.ID())
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errs {
		switch err.Type {
		case aqualink.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}
	fmt.Print(aqualink.FormatPayload(packet))
	fmt.Printf("  >>> PACKET FLAGGED <<<\n\n")
}

func printStatistics(stats aqualink.Statistics) {
	stats.CalculateRates()
	fmt.Println()
	fmt.Print(stats.String())
	fmt.Println()
}
