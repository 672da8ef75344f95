// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/capture"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

var (
	replayRealtime bool
	replayQuiet    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Feed a recorded capture through the receive pipeline",
	Long: `Replay the received frames of a capture made with --record.

Frames go through the same receiver and aggregator as a live link, so the
output shows how the host would have classified and aggregated them. The
final aggregate snapshot and link statistics are printed at the end.
Nothing is transmitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Keep the recorded spacing between frames")
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Only print the summary")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	records, err := capture.ReadAll(f)
	f.Close()
	if err != nil {
		return err
	}

	replay := capture.NewReplay(records)
	replay.Realtime = replayRealtime

	st, err := newStation(nil)
	if err != nil {
		return err
	}
	st.Scheduler.Pause()

	fmt.Printf("Hydrostat - Replay\n")
	fmt.Printf("Capture: %s (%d records, %d received frames)\n\n", args[0], len(records), replay.Len())

	if !replayQuiet {
		st.Bus.Subscribe(func(e link.Event) {
			if ev, ok := e.(link.PacketEvent); ok {
				fmt.Print(aqualink.FormatPacket(ev.Packet))
			}
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = st.Run(ctx, replay)
	st.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	stats := st.Receiver.Statistics()
	fmt.Println()
	fmt.Print(stats.String())

	out, err := json.MarshalIndent(st.Aggregator.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("\nAggregate:\n%s\n", out)
	return nil
}
