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
	packetTestTimeout int
	packetTestSolicit bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid packet",
	Long: `Wait for a valid packet on the connection until timeout.

The controller only talks when asked, so a READY_REQUEST is sent first
(disable with --solicit=false when another host drives the link). Invalid
frames are skipped; the first frame that decodes and passes the CRC check
ends the test.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
	packetTestCmd.Flags().BoolVar(&packetTestSolicit, "solicit", true, "Send a READY_REQUEST before listening")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	printBanner("Packet Test", connInfo,
		fmt.Sprintf("Timeout: %d seconds", packetTestTimeout),
		"Waiting for valid packet...")

	if packetTestSolicit {
		frame, err := aqualink.EncodePacket(aqualink.NewReadyRequest())
		if err != nil {
			return err
		}
		if _, err := conn.Write(frame); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	frames := link.NewFrameReader(conn, cfg.Serial.ReadTimeout)
	skipped := 0
	for {
		frame, err := frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}
		if len(frame) == 0 || frame[len(frame)-1] != aqualink.Terminator {
			continue
		}

		packet, err := aqualink.DecodePacket(frame)
		if err != nil {
			skipped++
			continue
		}

		if skipped > 0 {
			fmt.Printf("(skipped %d invalid frames before sync)\n", skipped)
		}
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  Kind: %s (%d)\n", packet.ID(), packet.ID())
		fmt.Printf("  Length: %d bytes\n", packet.Length())
		fmt.Printf("  CRC: 0x%04X\n", packet.CRC())
		os.Exit(0)
	}
}
