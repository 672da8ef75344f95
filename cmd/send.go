// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
	"github.com/Thermoquad/hydrostat/pkg/station"
)

var sendWait int

var sendCmd = &cobra.Command{
	Use:   "send <command> [key=value ...]",
	Short: "Send one ad-hoc command and show the replies",
	Long: `Queue a single command, wait for the controller to accept it, and print
every packet received for --wait seconds afterwards.

Commands:
  ` + strings.Join(station.CommandUsage(), "\n  ") + `

Examples:
  hydrostat send fan index=0 speed=1200
  hydrostat send light state=1 channel=blue
  hydrostat send ec-calib-format`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendWait, "wait", 3, "Seconds to listen for replies after sending")
}

func runSend(cmd *cobra.Command, args []string) error {
	params := url.Values{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("argument %q: want key=value", kv)
		}
		params.Set(k, v)
	}

	packet, err := station.ParseCommand(args[0], params)
	if err != nil {
		return err
	}

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

	printBanner("Send", connInfo, fmt.Sprintf("Command: %s", packet.ID()))

	st.Bus.Subscribe(func(e link.Event) {
		ev, ok := e.(link.PacketEvent)
		if !ok || ev.Packet.ID() == aqualink.PacketIDResponseReadyRequest {
			return
		}
		fmt.Print(aqualink.FormatPacket(ev.Packet))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	st.Enqueue(packet)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for st.Scheduler.QueueLen() > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		fmt.Printf("sent %s\n", packet.ID())
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(sendWait) * time.Second):
			cancel()
		}
	}()

	return st.Run(ctx, conn)
}
