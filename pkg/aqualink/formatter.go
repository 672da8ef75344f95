// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"encoding/hex"
	"fmt"
)

var kindNames = map[PacketID]string{
	PacketIDLogging: "LOGGING",

	PacketIDCmdOwiSetRes:      "CMD_OWI_SET_RES",
	PacketIDCmdOwiGetRes:      "CMD_OWI_GET_RES",
	PacketIDCmdOwiMeasure:     "CMD_OWI_MEASURE",
	PacketIDDataOwi:           "DATA_OWI",
	PacketIDResponseOwiGetRes: "RESPONSE_OWI_GET_RES",

	PacketIDCmdEcMeasure:             "CMD_EC_MEASURE",
	PacketIDCmdEcGetCalibFormat:      "CMD_EC_GET_CALIB_FORMAT",
	PacketIDCmdEcImportCalib:         "CMD_EC_IMPORT_CALIB",
	PacketIDCmdEcExportCalib:         "CMD_EC_EXPORT_CALIB",
	PacketIDCmdEcClearCalib:          "CMD_EC_CLEAR_CALIB",
	PacketIDCmdEcCalibDry:            "CMD_EC_CALIB_DRY",
	PacketIDCmdEcCalibLow:            "CMD_EC_CALIB_LOW",
	PacketIDCmdEcCalibHigh:           "CMD_EC_CALIB_HIGH",
	PacketIDCmdEcCompensation:        "CMD_EC_COMPENSATION",
	PacketIDDataEc:                   "DATA_EC",
	PacketIDResponseEcGetCalibFormat: "RESPONSE_EC_GET_CALIB_FORMAT",
	PacketIDResponseEcExportCalib:    "RESPONSE_EC_EXPORT_CALIB",

	PacketIDCmdPhMeasure:             "CMD_PH_MEASURE",
	PacketIDCmdPhGetCalibFormat:      "CMD_PH_GET_CALIB_FORMAT",
	PacketIDCmdPhImportCalib:         "CMD_PH_IMPORT_CALIB",
	PacketIDCmdPhExportCalib:         "CMD_PH_EXPORT_CALIB",
	PacketIDCmdPhClearCalib:          "CMD_PH_CLEAR_CALIB",
	PacketIDCmdPhCalibLow:            "CMD_PH_CALIB_LOW",
	PacketIDCmdPhCalibMid:            "CMD_PH_CALIB_MID",
	PacketIDCmdPhCalibHigh:           "CMD_PH_CALIB_HIGH",
	PacketIDCmdPhCompensation:        "CMD_PH_COMPENSATION",
	PacketIDDataPh:                   "DATA_PH",
	PacketIDResponsePhGetCalibFormat: "RESPONSE_PH_GET_CALIB_FORMAT",
	PacketIDResponsePhExportCalib:    "RESPONSE_PH_EXPORT_CALIB",

	PacketIDCmdLightSet:           "CMD_LIGHT_SET",
	PacketIDCmdLightGet:           "CMD_LIGHT_GET",
	PacketIDResponseLightGet:      "RESPONSE_LIGHT_GET",
	PacketIDCmdLightBlueSet:       "CMD_LIGHT_BLUE_SET",
	PacketIDCmdLightBlueGet:       "CMD_LIGHT_BLUE_GET",
	PacketIDResponseLightBlueGet:  "RESPONSE_LIGHT_BLUE_GET",
	PacketIDCmdLightRedSet:        "CMD_LIGHT_RED_SET",
	PacketIDCmdLightRedGet:        "CMD_LIGHT_RED_GET",
	PacketIDResponseLightRedGet:   "RESPONSE_LIGHT_RED_GET",
	PacketIDCmdLightWhiteSet:      "CMD_LIGHT_WHITE_SET",
	PacketIDCmdLightWhiteGet:      "CMD_LIGHT_WHITE_GET",
	PacketIDResponseLightWhiteGet: "RESPONSE_LIGHT_WHITE_GET",

	PacketIDCmdFanSetSpeed:      "CMD_FAN_SET_SPEED",
	PacketIDCmdFanGetSpeed:      "CMD_FAN_GET_SPEED",
	PacketIDResponseFanGetSpeed: "RESPONSE_FAN_GET_SPEED",

	PacketIDReadyRequest:         "READY_REQUEST",
	PacketIDResponseReadyRequest: "RESPONSE_READY_REQUEST",
	PacketIDAck:                  "ACK",
}

// FormatKind returns the human-readable name for a packet kind
func FormatKind(id PacketID) string {
	if name, ok := kindNames[id]; ok {
		return name
	}
	return "UNKNOWN"
}

// String implements fmt.Stringer
func (id PacketID) String() string {
	return FormatKind(id)
}

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (%d) len=%d\n", timestamp, FormatKind(p.id), p.id, p.Length())
	result += FormatPayload(p)

	return result
}

// FormatPayload formats the payload based on packet kind
func FormatPayload(p *Packet) string {
	switch p.id {
	case PacketIDLogging:
		rec, _ := ParseLogRecord(p)
		if rec.Level == 0 {
			return fmt.Sprintf("  Message: %s\n", rec.Message)
		}
		return fmt.Sprintf("  Level: %s, Source: %s, Message: %s\n", rec.Level, rec.Source, rec.Message)

	case PacketIDDataOwi:
		rom, temp, err := DecodeOwiData(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  ROM: %s, Temperature: %.2f°C\n", rom, temp)

	case PacketIDCmdOwiSetRes, PacketIDResponseOwiGetRes:
		res, err := DecodeOwiResolution(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  Resolution: %s (%d)\n", formatResolution(res), res)

	case PacketIDDataEc:
		ec, err := DecodeEcData(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  EC: %.0f µS/cm\n", ec)

	case PacketIDDataPh:
		ph, err := DecodePhData(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  pH: %.3f\n", ph)

	case PacketIDCmdEcCompensation, PacketIDCmdPhCompensation:
		temp, err := DecodeCompensation(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  Temperature: %.2f°C\n", temp)

	case PacketIDResponseEcGetCalibFormat, PacketIDResponsePhGetCalibFormat:
		f, err := DecodeCalibrationFormat(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  Strings: %d, Bytes: %d\n", f.Strings, f.Bytes)

	case PacketIDCmdEcImportCalib, PacketIDCmdPhImportCalib,
		PacketIDResponseEcExportCalib, PacketIDResponsePhExportCalib:
		return fmt.Sprintf("  Calibration: %s\n", hex.EncodeToString(p.payload))

	case PacketIDCmdLightSet, PacketIDResponseLightGet,
		PacketIDCmdLightBlueSet, PacketIDResponseLightBlueGet,
		PacketIDCmdLightRedSet, PacketIDResponseLightRedGet,
		PacketIDCmdLightWhiteSet, PacketIDResponseLightWhiteGet:
		state, err := DecodeLightState(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  State: %s (%d)\n", formatOnOff(state), state)

	case PacketIDCmdFanSetSpeed, PacketIDResponseFanGetSpeed:
		idx, speed, err := DecodeFanSpeed(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  Fan: %d, Speed: %d\n", idx, speed)

	case PacketIDCmdFanGetSpeed:
		if len(p.payload) < 1 {
			return formatDecodeError(ErrPayloadTooShort)
		}
		return fmt.Sprintf("  Fan: %d\n", p.payload[0])

	case PacketIDAck:
		acked, err := DecodeAck(p)
		if err != nil {
			return formatDecodeError(err)
		}
		return fmt.Sprintf("  Acked: %s (%d)\n", FormatKind(acked), acked)

	default:
		if len(p.payload) == 0 {
			return "  (no payload)\n"
		}
		return fmt.Sprintf("  Payload: %s\n", hex.EncodeToString(p.payload))
	}
}

func formatDecodeError(err error) string {
	return fmt.Sprintf("  (decode error: %v)\n", err)
}

func formatOnOff(state uint8) string {
	if state == 0 {
		return "OFF"
	}
	return "ON"
}

func formatResolution(res uint8) string {
	switch res {
	case OwiResolution9Bit:
		return "9-bit"
	case OwiResolution10Bit:
		return "10-bit"
	case OwiResolution11Bit:
		return "11-bit"
	case OwiResolution12Bit:
		return "12-bit"
	default:
		return "UNKNOWN"
	}
}
