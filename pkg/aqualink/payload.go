// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
)

// Rom is the 64-bit hardware id of a one-wire probe.
type Rom [RomSize]byte

// String returns the ROM as lowercase hex, first byte first.
func (r Rom) String() string {
	return hex.EncodeToString(r[:])
}

// ParseRom parses a ROM from its 16 hex digit form.
func ParseRom(s string) (Rom, error) {
	var r Rom
	b, err := hex.DecodeString(s)
	if err != nil {
		return r, fmt.Errorf("invalid ROM %q: %w", s, err)
	}
	if len(b) != RomSize {
		return r, fmt.Errorf("invalid ROM %q: expected %d bytes, got %d", s, RomSize, len(b))
	}
	copy(r[:], b)
	return r, nil
}

// CalibrationFormat describes the calibration blob layout reported by a sensor.
type CalibrationFormat struct {
	Strings uint8
	Bytes   uint8
}

// expect checks the packet kind and minimum payload length.
func expect(p *Packet, minLen int, ids ...PacketID) error {
	if !slices.Contains(ids, p.id) {
		return fmt.Errorf("%w: %s (%d)", ErrWrongKind, FormatKind(p.id), p.id)
	}
	if len(p.payload) < minLen {
		return fmt.Errorf("%w: %s has %d bytes (expected %d)", ErrPayloadTooShort, FormatKind(p.id), len(p.payload), minLen)
	}
	return nil
}

// DecodeOwiData returns the probe ROM and temperature in °C of a DATA_OWI
// packet. The raw value is the probe's signed 1/16 °C register.
func DecodeOwiData(p *Packet) (Rom, float64, error) {
	var rom Rom
	if err := expect(p, RomSize+2, PacketIDDataOwi); err != nil {
		return rom, 0, err
	}
	copy(rom[:], p.payload[:RomSize])
	raw := int16(binary.LittleEndian.Uint16(p.payload[RomSize:]))
	return rom, float64(raw) / 16, nil
}

// EncodeOwiData builds a DATA_OWI packet. Mostly useful for simulators and tests.
func EncodeOwiData(rom Rom, celsius float64) *Packet {
	payload := make([]byte, RomSize+2)
	copy(payload, rom[:])
	binary.LittleEndian.PutUint16(payload[RomSize:], uint16(int16(celsius*16)))
	return NewPacket(PacketIDDataOwi, payload)
}

// DecodeOwiResolution decodes a RESPONSE_OWI_GET_RES packet.
func DecodeOwiResolution(p *Packet) (uint8, error) {
	if err := expect(p, 1, PacketIDResponseOwiGetRes, PacketIDCmdOwiSetRes); err != nil {
		return 0, err
	}
	return p.payload[0], nil
}

// DecodeEcData returns the conductivity in µS/cm of a DATA_EC packet.
func DecodeEcData(p *Packet) (float64, error) {
	if err := expect(p, 4, PacketIDDataEc); err != nil {
		return 0, err
	}
	return float64(binary.LittleEndian.Uint32(p.payload)), nil
}

// EncodeEcData builds a DATA_EC packet.
func EncodeEcData(microSiemens uint32) *Packet {
	return NewPacket(PacketIDDataEc, binary.LittleEndian.AppendUint32(nil, microSiemens))
}

// DecodePhData returns the pH of a DATA_PH packet. The wire value is milli-pH.
func DecodePhData(p *Packet) (float64, error) {
	if err := expect(p, 4, PacketIDDataPh); err != nil {
		return 0, err
	}
	return float64(binary.LittleEndian.Uint32(p.payload)) / 1000, nil
}

// EncodePhData builds a DATA_PH packet from a milli-pH value.
func EncodePhData(milliPh uint32) *Packet {
	return NewPacket(PacketIDDataPh, binary.LittleEndian.AppendUint32(nil, milliPh))
}

// DecodeCompensation returns the temperature in °C of an EC or pH compensation command.
func DecodeCompensation(p *Packet) (float64, error) {
	if err := expect(p, 4, PacketIDCmdEcCompensation, PacketIDCmdPhCompensation); err != nil {
		return 0, err
	}
	return float64(binary.LittleEndian.Uint32(p.payload)) / 100, nil
}

// DecodeCalibrationFormat decodes an EC or pH calibration format response.
func DecodeCalibrationFormat(p *Packet) (CalibrationFormat, error) {
	if err := expect(p, 2, PacketIDResponseEcGetCalibFormat, PacketIDResponsePhGetCalibFormat); err != nil {
		return CalibrationFormat{}, err
	}
	return CalibrationFormat{Strings: p.payload[0], Bytes: p.payload[1]}, nil
}

// DecodeCalibrationExport returns the calibration blob of an export response.
func DecodeCalibrationExport(p *Packet) ([]byte, error) {
	if err := expect(p, 0, PacketIDResponseEcExportCalib, PacketIDResponsePhExportCalib); err != nil {
		return nil, err
	}
	return append([]byte(nil), p.payload...), nil
}

// DecodeLightState decodes any light set command or light get response.
func DecodeLightState(p *Packet) (uint8, error) {
	err := expect(p, 1,
		PacketIDCmdLightSet, PacketIDResponseLightGet,
		PacketIDCmdLightBlueSet, PacketIDResponseLightBlueGet,
		PacketIDCmdLightRedSet, PacketIDResponseLightRedGet,
		PacketIDCmdLightWhiteSet, PacketIDResponseLightWhiteGet)
	if err != nil {
		return 0, err
	}
	return p.payload[0], nil
}

// DecodeFanSpeed decodes a fan set command or fan speed response.
func DecodeFanSpeed(p *Packet) (uint8, uint16, error) {
	if err := expect(p, 3, PacketIDCmdFanSetSpeed, PacketIDResponseFanGetSpeed); err != nil {
		return 0, 0, err
	}
	return p.payload[0], binary.LittleEndian.Uint16(p.payload[1:]), nil
}

// DecodeAck returns the kind acknowledged by an ACK packet.
func DecodeAck(p *Packet) (PacketID, error) {
	if err := expect(p, 1, PacketIDAck); err != nil {
		return 0, err
	}
	return PacketID(p.payload[0]), nil
}
