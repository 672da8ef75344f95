// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/sensor"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test_config_*.yaml")
	require.NoError(t, err)
	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 250000, cfg.Serial.Baud)
	assert.Equal(t, 2*time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 10, cfg.Scheduler.QueueCapacity)
	assert.Len(t, cfg.Sensors.LedRoms, 8)
	assert.False(t, cfg.Sensors.CompensatePH)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.HTTP.Listen)

	roms, err := cfg.Sensors.Roms()
	require.NoError(t, err)
	assert.Equal(t, sensor.DefaultLedRoms, roms)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeTemp(t, `
serial:
  port: "/dev/ttyACM0"
  read_timeout: 500ms

scheduler:
  queue_capacity: 4

sensors:
  led_roms:
    - "28a076c40a0000ee"
  compensate_ph: true

mqtt:
  enabled: true
  broker: "tcp://broker:1883"
  station: "greenhouse"

http:
  listen: ":9100"

log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 250000, cfg.Serial.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 4, cfg.Scheduler.QueueCapacity)
	assert.Equal(t, []string{"28a076c40a0000ee"}, cfg.Sensors.LedRoms)
	assert.True(t, cfg.Sensors.CompensatePH)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "greenhouse", cfg.MQTT.Station)
	assert.Equal(t, "hydrostat", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":9100", cfg.HTTP.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EmptyLedRoms(t *testing.T) {
	path := writeTemp(t, "sensors:\n  led_roms: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sensors.LedRoms)
	assert.NotNil(t, cfg.Sensors.LedRoms)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "serial: [unclosed\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad rom", "sensors:\n  led_roms: [\"nothex\"]\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad qos", "mqtt:\n  qos: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyS1"
	cfg.Influx.Enabled = true
	cfg.Influx.Token = "secret"

	path := filepath.Join(t.TempDir(), "hydrostat.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
