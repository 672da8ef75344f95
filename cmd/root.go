// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hydrostat/pkg/config"
	"github.com/Thermoquad/hydrostat/pkg/logging"
)

var (
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	logLevel  string
	logFormat string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hydrostat",
	Short: "Host link for the hydroponics sensor controller",
	Long: `Hydrostat - Host-side link for the hydroponics sensor controller.

Polls the OWI temperature probes, EC and pH sensors in rotation, feeds water
temperature back as EC/pH compensation, and exposes the readings over HTTP,
Prometheus, MQTT, SQLite and InfluxDB. Diagnostic commands log, replay and
validate the framed serial traffic.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 250000]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config (default hydrostat.yaml); flags override the
file. For WebSocket authentication, the password is read from the
HYDROSTAT_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hydrostat.yaml", "Configuration file")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
}

// loadSettings reads the config file and applies flag overrides.
func loadSettings(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	logger, err = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
