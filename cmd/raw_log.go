// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/capture"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously decode and display packets as they arrive.

Each packet is shown with timestamp, kind and decoded payload. Nothing is
sent, so use this alongside another host (or a bridge) that drives the
controller. With --record the frames are also written to a capture file for
the replay command.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Record frames to a capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var port link.Port = conn
	if rawLogRecord != "" {
		f, err := os.Create(rawLogRecord)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer f.Close()
		port = capture.NewRecorder(conn, capture.NewWriter(f))
	}

	printBanner("Raw Packet Log", connInfo, "Press Ctrl+C to exit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	frames := link.NewFrameReader(port, cfg.Serial.ReadTimeout)
	for {
		frame, err := frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if len(frame) == 0 || frame[len(frame)-1] != aqualink.Terminator {
			continue
		}

		packet, err := aqualink.DecodePacket(frame)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			continue
		}
		fmt.Print(aqualink.FormatPacket(packet))
	}
}
