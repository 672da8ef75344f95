// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/capture"
	"github.com/Thermoquad/hydrostat/pkg/metrics"
	"github.com/Thermoquad/hydrostat/pkg/sink"
	"github.com/Thermoquad/hydrostat/pkg/station"
)

var (
	runListen string
	runRecord string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the measurement loop",
	Long: `Poll the controller continuously and publish what it reports.

The scheduler rotates OWI temperature, EC and pH measurements, interleaving
queued user commands, and sends EC (and optionally pH) compensation after
every full cycle. Readings go to the enabled sinks (MQTT, SQLite, InfluxDB).

When http.listen is set, a control API is served:
  GET  /healthz            link status
  GET  /readings           latest aggregate readings and link counters
  GET  /commands           available ad-hoc commands
  POST /commands/{name}    queue a command, e.g. /commands/fan?index=0&speed=1200
  POST /pause, /resume     hold or release the scheduler
  GET  /metrics            Prometheus metrics

The connection is reopened with exponential backoff when it fails.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runListen, "listen", "", "HTTP listen address (overrides http.listen)")
	runCmd.Flags().StringVar(&runRecord, "record", "", "Record all traffic to a capture file")
}

func runRun(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("listen") {
		cfg.HTTP.Listen = runListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	st, err := newStation(collector)
	if err != nil {
		return err
	}
	defer st.Close()
	collector.Attach(st.Bus)

	sinks, err := openSinks(ctx)
	if err != nil {
		return err
	}
	st.AttachSinks(sinks...)

	var recorder *capture.Writer
	if runRecord != "" {
		f, err := os.Create(runRecord)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer f.Close()
		recorder = capture.NewWriter(f)
	}

	if cfg.HTTP.Listen != "" {
		srv := station.NewServer(cfg.HTTP.Listen, station.NewAPI(st, collector.Handler(), logger))
		go func() {
			logger.Info("http api listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
				stop()
			}
		}()
		defer func() {
			if err := station.Shutdown(srv, 5*time.Second); err != nil {
				logger.Warn("http shutdown", "error", err)
			}
		}()
	}

	return runWithReconnect(ctx, st, recorder)
}

// runWithReconnect keeps a connection attached to the station until ctx
// ends, reopening it with exponential backoff after failures.
func runWithReconnect(ctx context.Context, st *station.Station, recorder *capture.Writer) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		conn, connInfo, err := OpenConnection()
		if err != nil {
			logger.Warn("connect failed", "error", err)
		} else {
			bo.Reset()
			logger.Info("connected", "connection", connInfo)

			var c station.Conn = conn
			var rec *capture.Recorder
			if recorder != nil {
				rec = capture.NewRecorder(conn, recorder)
				c = rec
			}

			err = st.Run(ctx, c)
			conn.Close()
			if rec != nil && rec.Err() != nil {
				logger.Warn("capture stopped", "error", rec.Err())
			}
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			logger.Warn("connection lost", "error", err)
		}

		wait := bo.NextBackOff()
		logger.Info("reconnecting", "in", wait.Round(time.Millisecond))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// openSinks creates every enabled sink. MQTT connects in the background so
// an unreachable broker does not hold up the measurement loop.
func openSinks(ctx context.Context) ([]sink.Sink, error) {
	var sinks []sink.Sink

	if cfg.SQLite.Enabled {
		db, err := sink.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
	}

	if cfg.MQTT.Enabled {
		m := sink.NewMQTT(sink.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Station:     cfg.MQTT.Station,
			QoS:         cfg.MQTT.QoS,
			Logger:      logger,
		})
		go func() {
			if err := m.Connect(ctx); err != nil && ctx.Err() == nil {
				logger.Error("mqtt unavailable", "error", err)
			}
		}()
		sinks = append(sinks, m)
	}

	if cfg.Influx.Enabled {
		sinks = append(sinks, sink.NewInflux(sink.InfluxConfig{
			URL:     cfg.Influx.URL,
			Token:   cfg.Influx.Token,
			Org:     cfg.Influx.Org,
			Bucket:  cfg.Influx.Bucket,
			Station: cfg.MQTT.Station,
			Logger:  logger,
		}))
	}

	for _, s := range sinks {
		logger.Info("sink enabled", "sink", s.Name())
	}
	return sinks, nil
}
