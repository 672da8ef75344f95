// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the hydrostat YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/sensor"
)

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Influx    InfluxConfig    `yaml:"influx"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// WebSocketConfig selects a WebSocket bridge instead of a local serial port.
type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// SchedulerConfig tunes the send scheduler.
type SchedulerConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// SensorsConfig classifies probes and selects compensation.
type SensorsConfig struct {
	LedRoms      []string `yaml:"led_roms"` // 16 hex digits each
	CompensatePH bool     `yaml:"compensate_ph"`
}

// MQTTConfig contains telemetry publishing configuration.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	Station     string `yaml:"station"`
	QoS         byte   `yaml:"qos"`
}

// SQLiteConfig contains local history configuration.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// InfluxConfig contains time-series export configuration.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// HTTPConfig contains the control API listener. Empty Listen disables it.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig selects log verbosity and output format (text or json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	roms := make([]string, len(sensor.DefaultLedRoms))
	for i, r := range sensor.DefaultLedRoms {
		roms[i] = r.String()
	}

	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			Baud:        250000,
			ReadTimeout: 2 * time.Second,
		},
		Scheduler: SchedulerConfig{
			QueueCapacity: 10,
		},
		Sensors: SensorsConfig{
			LedRoms: roms,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "hydrostat",
			TopicPrefix: "hydrostat",
			Station:     "default",
			QoS:         1,
		},
		SQLite: SQLiteConfig{
			Path: "hydrostat.db",
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:8086",
			Bucket: "hydrostat",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.Sensors.Roms(); err != nil {
		return fmt.Errorf("sensors.led_roms: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos: %d out of range (0-2)", c.MQTT.QoS)
	}
	return nil
}

// Roms parses the LED allow-list.
func (s SensorsConfig) Roms() ([]aqualink.Rom, error) {
	roms := make([]aqualink.Rom, 0, len(s.LedRoms))
	for _, str := range s.LedRoms {
		r, err := aqualink.ParseRom(str)
		if err != nil {
			return nil, err
		}
		roms = append(roms, r)
	}
	return roms, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Scheduler.QueueCapacity <= 0 {
		c.Scheduler.QueueCapacity = def.Scheduler.QueueCapacity
	}

	// An explicit empty list means "no LED probes"; only a missing key defaults
	if c.Sensors.LedRoms == nil {
		c.Sensors.LedRoms = def.Sensors.LedRoms
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.Station == "" {
		c.MQTT.Station = def.MQTT.Station
	}

	if c.SQLite.Path == "" {
		c.SQLite.Path = def.SQLite.Path
	}

	if c.Influx.URL == "" {
		c.Influx.URL = def.Influx.URL
	}
	if c.Influx.Bucket == "" {
		c.Influx.Bucket = def.Influx.Bucket
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
