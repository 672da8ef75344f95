// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// Topic identifies a kind of event on the Bus.
type Topic int

// Inbound packet topics. Every decoded packet maps to exactly one of these.
const (
	TopicLogging Topic = iota + 1
	TopicOwiData
	TopicOwiResolution
	TopicEcData
	TopicEcCalibrationFormat
	TopicEcCalibrationExport
	TopicPhData
	TopicPhCalibrationFormat
	TopicPhCalibrationExport
	TopicLight
	TopicLightBlue
	TopicLightRed
	TopicLightWhite
	TopicFanSpeed
	TopicReady
	TopicAck
)

// Link and aggregate topics.
const (
	TopicReadTimeout Topic = iota + 100
	TopicMeasurementCycleComplete
	TopicEcValue
	TopicPhValue
	TopicLedTemperature
	TopicWaterTemperature
)

var topicNames = map[Topic]string{
	TopicLogging:                  "logging",
	TopicOwiData:                  "owi_data",
	TopicOwiResolution:            "owi_resolution",
	TopicEcData:                   "ec_data",
	TopicEcCalibrationFormat:      "ec_calibration_format",
	TopicEcCalibrationExport:      "ec_calibration_export",
	TopicPhData:                   "ph_data",
	TopicPhCalibrationFormat:      "ph_calibration_format",
	TopicPhCalibrationExport:      "ph_calibration_export",
	TopicLight:                    "light",
	TopicLightBlue:                "light_blue",
	TopicLightRed:                 "light_red",
	TopicLightWhite:               "light_white",
	TopicFanSpeed:                 "fan_speed",
	TopicReady:                    "ready",
	TopicAck:                      "ack",
	TopicReadTimeout:              "read_timeout",
	TopicMeasurementCycleComplete: "measurement_cycle_complete",
	TopicEcValue:                  "ec",
	TopicPhValue:                  "ph",
	TopicLedTemperature:           "led_temperature",
	TopicWaterTemperature:         "water_temperature",
}

func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return "unknown"
}

// inboundTopics is the closed set of packet kinds the host accepts.
var inboundTopics = map[aqualink.PacketID]Topic{
	aqualink.PacketIDLogging:                  TopicLogging,
	aqualink.PacketIDDataOwi:                  TopicOwiData,
	aqualink.PacketIDResponseOwiGetRes:        TopicOwiResolution,
	aqualink.PacketIDDataEc:                   TopicEcData,
	aqualink.PacketIDResponseEcGetCalibFormat: TopicEcCalibrationFormat,
	aqualink.PacketIDResponseEcExportCalib:    TopicEcCalibrationExport,
	aqualink.PacketIDDataPh:                   TopicPhData,
	aqualink.PacketIDResponsePhGetCalibFormat: TopicPhCalibrationFormat,
	aqualink.PacketIDResponsePhExportCalib:    TopicPhCalibrationExport,
	aqualink.PacketIDResponseLightGet:         TopicLight,
	aqualink.PacketIDResponseLightBlueGet:     TopicLightBlue,
	aqualink.PacketIDResponseLightRedGet:      TopicLightRed,
	aqualink.PacketIDResponseLightWhiteGet:    TopicLightWhite,
	aqualink.PacketIDResponseFanGetSpeed:      TopicFanSpeed,
	aqualink.PacketIDResponseReadyRequest:     TopicReady,
	aqualink.PacketIDAck:                      TopicAck,
}

// InboundTopic classifies a packet kind. ok is false for kinds the host
// never expects to receive.
func InboundTopic(id aqualink.PacketID) (Topic, bool) {
	t, ok := inboundTopics[id]
	return t, ok
}

// Event is anything published on the Bus.
type Event interface {
	Topic() Topic
}

// PacketEvent carries a decoded inbound packet.
type PacketEvent struct {
	topic  Topic
	Packet *aqualink.Packet
}

// NewPacketEvent wraps a packet in the event for the given topic.
func NewPacketEvent(topic Topic, p *aqualink.Packet) PacketEvent {
	return PacketEvent{topic: topic, Packet: p}
}

func (e PacketEvent) Topic() Topic { return e.topic }

// ReadTimeout is published when a read ends without a terminated frame.
type ReadTimeout struct {
	At time.Time
}

func (ReadTimeout) Topic() Topic { return TopicReadTimeout }

// Enqueuer accepts commands for transmission.
type Enqueuer interface {
	Enqueue(p *aqualink.Packet)
}

// MeasurementCycleComplete is published after the last entry of the
// measurement ring has been transmitted. Queue is where follow-up commands go.
type MeasurementCycleComplete struct {
	Queue Enqueuer
	At    time.Time
}

func (MeasurementCycleComplete) Topic() Topic { return TopicMeasurementCycleComplete }

// EcValue is a new conductivity reading in µS/cm.
type EcValue struct {
	Value float64
	At    time.Time
}

func (EcValue) Topic() Topic { return TopicEcValue }

// PhValue is a new pH reading.
type PhValue struct {
	Value float64
	At    time.Time
}

func (PhValue) Topic() Topic { return TopicPhValue }

// LedTemperature summarizes the LED-mounted probes in °C.
type LedTemperature struct {
	Min, Max, Avg float64
	At            time.Time
}

func (LedTemperature) Topic() Topic { return TopicLedTemperature }

// WaterTemperature is the mean of the ambient probes in °C.
type WaterTemperature struct {
	Avg float64
	At  time.Time
}

func (WaterTemperature) Topic() Topic { return TopicWaterTemperature }
