// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import "fmt"

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyInvalidTemp
	AnomalyInvalidEC
	AnomalyInvalidPH
	AnomalyInvalidValue
	AnomalyUnknownKind
)

// Sensor plausibility limits
const (
	MinProbeTemp = -55.0 // DS18B20 range
	MaxProbeTemp = 125.0
	MaxEC        = 200000 // µS/cm
	MaxPH        = 14.0
)

// payloadSizes lists the fixed payload size per kind. Kinds carrying
// variable data (logging, calibration blobs) are absent.
var payloadSizes = map[PacketID]int{
	PacketIDCmdOwiSetRes:      1,
	PacketIDCmdOwiGetRes:      0,
	PacketIDCmdOwiMeasure:     0,
	PacketIDDataOwi:           RomSize + 2,
	PacketIDResponseOwiGetRes: 1,

	PacketIDCmdEcMeasure:             0,
	PacketIDCmdEcGetCalibFormat:      0,
	PacketIDCmdEcExportCalib:         0,
	PacketIDCmdEcClearCalib:          0,
	PacketIDCmdEcCalibDry:            0,
	PacketIDCmdEcCalibLow:            0,
	PacketIDCmdEcCalibHigh:           0,
	PacketIDCmdEcCompensation:        4,
	PacketIDDataEc:                   4,
	PacketIDResponseEcGetCalibFormat: 2,

	PacketIDCmdPhMeasure:             0,
	PacketIDCmdPhGetCalibFormat:      0,
	PacketIDCmdPhExportCalib:         0,
	PacketIDCmdPhClearCalib:          0,
	PacketIDCmdPhCalibLow:            0,
	PacketIDCmdPhCalibMid:            0,
	PacketIDCmdPhCalibHigh:           0,
	PacketIDCmdPhCompensation:        4,
	PacketIDDataPh:                   4,
	PacketIDResponsePhGetCalibFormat: 2,

	PacketIDCmdLightSet:           1,
	PacketIDCmdLightGet:           0,
	PacketIDResponseLightGet:      1,
	PacketIDCmdLightBlueSet:       1,
	PacketIDCmdLightBlueGet:       0,
	PacketIDResponseLightBlueGet:  1,
	PacketIDCmdLightRedSet:        1,
	PacketIDCmdLightRedGet:        0,
	PacketIDResponseLightRedGet:   1,
	PacketIDCmdLightWhiteSet:      1,
	PacketIDCmdLightWhiteGet:      0,
	PacketIDResponseLightWhiteGet: 1,

	PacketIDCmdFanSetSpeed:      3,
	PacketIDCmdFanGetSpeed:      1,
	PacketIDResponseFanGetSpeed: 3,

	PacketIDReadyRequest:         0,
	PacketIDResponseReadyRequest: 0,
	PacketIDAck:                  1,
}

// ValidationError represents a packet validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket validates payload structure and detects implausible values
// Returns a slice of validation errors (empty if packet is valid)
func ValidatePacket(p *Packet) []ValidationError {
	if _, known := kindNames[p.id]; !known {
		return []ValidationError{{
			Type:    AnomalyUnknownKind,
			Message: fmt.Sprintf("Unknown packet kind %d", p.id),
			Details: map[string]interface{}{"id": p.id},
		}}
	}

	if expected, fixed := payloadSizes[p.id]; fixed && len(p.payload) != expected {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload is %d bytes (expected %d)", FormatKind(p.id), len(p.payload), expected),
			Details: map[string]interface{}{"length": len(p.payload), "expected": expected},
		}}
	}

	switch p.id {
	case PacketIDDataOwi:
		return validateOwiData(p)
	case PacketIDDataEc:
		return validateEcData(p)
	case PacketIDDataPh:
		return validatePhData(p)
	case PacketIDAck:
		return validateAck(p)
	}

	return nil
}

func validateOwiData(p *Packet) []ValidationError {
	rom, temp, err := DecodeOwiData(p)
	if err != nil {
		return nil
	}
	if temp < MinProbeTemp || temp > MaxProbeTemp {
		return []ValidationError{{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Probe %s temperature %.2f°C out of range", rom, temp),
			Details: map[string]interface{}{"rom": rom.String(), "temperature": temp},
		}}
	}
	return nil
}

func validateEcData(p *Packet) []ValidationError {
	ec, err := DecodeEcData(p)
	if err != nil {
		return nil
	}
	if ec > MaxEC {
		return []ValidationError{{
			Type:    AnomalyInvalidEC,
			Message: fmt.Sprintf("EC %.0f µS/cm out of range (max %d)", ec, MaxEC),
			Details: map[string]interface{}{"ec": ec, "max": MaxEC},
		}}
	}
	return nil
}

func validatePhData(p *Packet) []ValidationError {
	ph, err := DecodePhData(p)
	if err != nil {
		return nil
	}
	if ph > MaxPH {
		return []ValidationError{{
			Type:    AnomalyInvalidPH,
			Message: fmt.Sprintf("pH %.3f out of range (max %.0f)", ph, MaxPH),
			Details: map[string]interface{}{"ph": ph, "max": MaxPH},
		}}
	}
	return nil
}

func validateAck(p *Packet) []ValidationError {
	acked, err := DecodeAck(p)
	if err != nil {
		return nil
	}
	if _, known := kindNames[acked]; !known {
		return []ValidationError{{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("ACK for unknown kind %d", acked),
			Details: map[string]interface{}{"acked": acked},
		}}
	}
	return nil
}
