// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"encoding/binary"
	"math"
)

// Command builder functions create Packet structs ready for encoding.
// Payload integers are little-endian, matching the controller firmware.

// NewReadyRequest creates a READY_REQUEST packet (45).
// The controller answers with RESPONSE_READY_REQUEST once it is idle.
func NewReadyRequest() *Packet {
	return NewPacket(PacketIDReadyRequest, nil)
}

// NewOwiMeasure creates a CMD_OWI_MEASURE packet (3).
// The controller answers with one DATA_OWI packet per probe on the bus.
func NewOwiMeasure() *Packet {
	return NewPacket(PacketIDCmdOwiMeasure, nil)
}

// NewOwiSetResolution creates a CMD_OWI_SET_RES packet (1).
// Use one of the OwiResolution constants.
func NewOwiSetResolution(resolution uint8) *Packet {
	return NewPacket(PacketIDCmdOwiSetRes, []byte{resolution})
}

// NewOwiGetResolution creates a CMD_OWI_GET_RES packet (2).
func NewOwiGetResolution() *Packet {
	return NewPacket(PacketIDCmdOwiGetRes, nil)
}

// NewEcMeasure creates a CMD_EC_MEASURE packet (6).
func NewEcMeasure() *Packet {
	return NewPacket(PacketIDCmdEcMeasure, nil)
}

// NewEcCompensation creates a CMD_EC_COMPENSATION packet (14) carrying the
// water temperature in hundredths of a degree.
func NewEcCompensation(temperature float64) *Packet {
	return NewPacket(PacketIDCmdEcCompensation, encodeCentiDegrees(temperature))
}

// NewPhMeasure creates a CMD_PH_MEASURE packet (18).
func NewPhMeasure() *Packet {
	return NewPacket(PacketIDCmdPhMeasure, nil)
}

// NewPhCompensation creates a CMD_PH_COMPENSATION packet (26).
func NewPhCompensation(temperature float64) *Packet {
	return NewPacket(PacketIDCmdPhCompensation, encodeCentiDegrees(temperature))
}

// NewCalibrationCommand creates one of the payload-less EC/pH calibration
// commands (get format, export, clear, dry/low/mid/high).
func NewCalibrationCommand(id PacketID) *Packet {
	return NewPacket(id, nil)
}

// NewEcImportCalibration creates a CMD_EC_IMPORT_CALIB packet (8).
func NewEcImportCalibration(data []byte) *Packet {
	return NewPacket(PacketIDCmdEcImportCalib, data)
}

// NewPhImportCalibration creates a CMD_PH_IMPORT_CALIB packet (20).
func NewPhImportCalibration(data []byte) *Packet {
	return NewPacket(PacketIDCmdPhImportCalib, data)
}

// NewLightSet creates a light set command. id selects the channel:
// PacketIDCmdLightSet (all), PacketIDCmdLightBlueSet, PacketIDCmdLightRedSet
// or PacketIDCmdLightWhiteSet. A state of zero switches the channel off.
func NewLightSet(id PacketID, state uint8) *Packet {
	return NewPacket(id, []byte{state})
}

// NewLightGet creates a light get command for the channel selected by id.
func NewLightGet(id PacketID) *Packet {
	return NewPacket(id, nil)
}

// NewFanSetSpeed creates a CMD_FAN_SET_SPEED packet (42).
func NewFanSetSpeed(index uint8, speed uint16) *Packet {
	payload := make([]byte, 3)
	payload[0] = index
	binary.LittleEndian.PutUint16(payload[1:], speed)
	return NewPacket(PacketIDCmdFanSetSpeed, payload)
}

// NewFanGetSpeed creates a CMD_FAN_GET_SPEED packet (43).
func NewFanGetSpeed(index uint8) *Packet {
	return NewPacket(PacketIDCmdFanGetSpeed, []byte{index})
}

// NewAck creates an ACK packet (47) acknowledging the given kind.
func NewAck(acked PacketID) *Packet {
	return NewPacket(PacketIDAck, []byte{byte(acked)})
}

// encodeCentiDegrees truncates toward zero like the firmware's float-to-uint
// conversion. Negative temperatures clamp to zero.
func encodeCentiDegrees(temperature float64) []byte {
	v := math.Trunc(temperature * 100)
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	if v > math.MaxUint32 {
		v = math.MaxUint32
	}
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}
