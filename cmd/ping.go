// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round trips with READY_REQUEST",
	Long: `Send READY_REQUEST packets and wait for the ready response.

This verifies the full path to the controller in both directions (including
any WebSocket bridge and its authentication) and reports the round trip
time of each exchange. Other packets arriving in between are ignored.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	printBanner("Ping", connInfo,
		fmt.Sprintf("Timeout: %d seconds per ping", pingTimeout),
		fmt.Sprintf("Count: %d pings", pingCount))

	request, err := aqualink.EncodePacket(aqualink.NewReadyRequest())
	if err != nil {
		return err
	}

	frames := link.NewFrameReader(conn, cfg.Serial.ReadTimeout)
	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		if _, err := conn.Write(request); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		rtt, err := awaitReady(frames, time.Duration(pingTimeout)*time.Second, startTime)
		switch {
		case err == context.DeadlineExceeded:
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		case err != nil:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount++
		default:
			fmt.Printf("READY, rtt=%v\n", rtt.Round(time.Microsecond))
			successCount++
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% packet loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// awaitReady reads frames until a ready response arrives or timeout passes.
func awaitReady(frames *link.FrameReader, timeout time.Duration, start time.Time) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		frame, err := frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, context.DeadlineExceeded
			}
			return 0, err
		}
		if len(frame) == 0 || frame[len(frame)-1] != aqualink.Terminator {
			continue
		}
		packet, err := aqualink.DecodePacket(frame)
		if err != nil {
			continue
		}
		if packet.ID() == aqualink.PacketIDResponseReadyRequest {
			return time.Since(start), nil
		}
	}
}
