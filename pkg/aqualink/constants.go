// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package aqualink implements the framed serial protocol spoken by the
// hydroponics sensor controller.
//
// Every message is a packet of the form
//
//	[id, packet_length, payload_length, payload..., crc_lo, crc_hi]
//
// protected by a CRC-16/XMODEM over all bytes preceding the CRC. Packets are
// COBS-encoded on the wire and terminated by a single 0x00 byte. This package
// provides packet serialization, framing, payload encoding/decoding helpers
// and a human-readable formatter.
package aqualink

// Frame delimiter
const Terminator = 0x00

// Packet size limits
const (
	HeaderSize     = 3 // id, packet_length, payload_length
	CRCSize        = 2
	MinPacketSize  = HeaderSize + CRCSize
	MaxPacketSize  = 255
	MaxPayloadSize = MaxPacketSize - MinPacketSize
	RomSize        = 8

	// MinFrameSize is the shortest read (terminator included) worth decoding.
	MinFrameSize = 4
)

// PacketID selects the kind of a packet. Values follow the firmware
// enumeration and must not be reordered.
type PacketID uint8

// Logging
const (
	PacketIDLogging PacketID = 0
)

// One-wire temperature probes
const (
	PacketIDCmdOwiSetRes      PacketID = 1
	PacketIDCmdOwiGetRes      PacketID = 2
	PacketIDCmdOwiMeasure     PacketID = 3
	PacketIDDataOwi           PacketID = 4
	PacketIDResponseOwiGetRes PacketID = 5
)

// Electrical conductivity
const (
	PacketIDCmdEcMeasure             PacketID = 6
	PacketIDCmdEcGetCalibFormat      PacketID = 7
	PacketIDCmdEcImportCalib         PacketID = 8
	PacketIDCmdEcExportCalib         PacketID = 9
	PacketIDCmdEcClearCalib          PacketID = 10
	PacketIDCmdEcCalibDry            PacketID = 11
	PacketIDCmdEcCalibLow            PacketID = 12
	PacketIDCmdEcCalibHigh           PacketID = 13
	PacketIDCmdEcCompensation        PacketID = 14
	PacketIDDataEc                   PacketID = 15
	PacketIDResponseEcGetCalibFormat PacketID = 16
	PacketIDResponseEcExportCalib    PacketID = 17
)

// pH
const (
	PacketIDCmdPhMeasure             PacketID = 18
	PacketIDCmdPhGetCalibFormat      PacketID = 19
	PacketIDCmdPhImportCalib         PacketID = 20
	PacketIDCmdPhExportCalib         PacketID = 21
	PacketIDCmdPhClearCalib          PacketID = 22
	PacketIDCmdPhCalibLow            PacketID = 23
	PacketIDCmdPhCalibMid            PacketID = 24
	PacketIDCmdPhCalibHigh           PacketID = 25
	PacketIDCmdPhCompensation        PacketID = 26
	PacketIDDataPh                   PacketID = 27
	PacketIDResponsePhGetCalibFormat PacketID = 28
	PacketIDResponsePhExportCalib    PacketID = 29
)

// Grow lights
const (
	PacketIDCmdLightSet           PacketID = 30
	PacketIDCmdLightGet           PacketID = 31
	PacketIDResponseLightGet      PacketID = 32
	PacketIDCmdLightBlueSet       PacketID = 33
	PacketIDCmdLightBlueGet       PacketID = 34
	PacketIDResponseLightBlueGet  PacketID = 35
	PacketIDCmdLightRedSet        PacketID = 36
	PacketIDCmdLightRedGet        PacketID = 37
	PacketIDResponseLightRedGet   PacketID = 38
	PacketIDCmdLightWhiteSet      PacketID = 39
	PacketIDCmdLightWhiteGet      PacketID = 40
	PacketIDResponseLightWhiteGet PacketID = 41
)

// Fans
const (
	PacketIDCmdFanSetSpeed      PacketID = 42
	PacketIDCmdFanGetSpeed      PacketID = 43
	PacketIDResponseFanGetSpeed PacketID = 44
)

// Flow control
const (
	PacketIDReadyRequest         PacketID = 45
	PacketIDResponseReadyRequest PacketID = 46
	PacketIDAck                  PacketID = 47
)

// LogLevel is the severity carried in a logging packet.
type LogLevel uint8

const (
	LogLevelDebug   LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelWarning LogLevel = 4
	LogLevelError   LogLevel = 8
)

// OWI temperature resolutions as carried by CMD_OWI_SET_RES and
// RESPONSE_OWI_GET_RES. The firmware maps them to the DS18B20
// configuration register itself.
const (
	OwiResolution12Bit = 0
	OwiResolution11Bit = 1
	OwiResolution10Bit = 2
	OwiResolution9Bit  = 3
)
