// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Serialize converts a packet to its unframed byte form:
// header, payload, then the little-endian CRC over everything before it.
func Serialize(p *Packet) ([]byte, error) {
	if len(p.payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(p.payload), MaxPayloadSize)
	}

	data := make([]byte, 0, p.Length())
	data = append(data, byte(p.id), byte(p.Length()), byte(len(p.payload)))
	data = append(data, p.payload...)

	crc := CalculateCRC(data)
	return binary.LittleEndian.AppendUint16(data, crc), nil
}

// Deserialize parses an unframed packet, validating both length fields and the CRC.
func Deserialize(data []byte) (*Packet, error) {
	if len(data) < MinPacketSize {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", ErrFrameTooShort, len(data), MinPacketSize)
	}

	if int(data[1]) != len(data) {
		return nil, fmt.Errorf("%w: packet length field %d, got %d bytes", ErrLengthMismatch, data[1], len(data))
	}

	payloadLen := int(data[2])
	if MinPacketSize+payloadLen != len(data) {
		return nil, fmt.Errorf("%w: payload length field %d, got %d bytes", ErrLengthMismatch, payloadLen, len(data)-MinPacketSize)
	}

	crcOffset := len(data) - CRCSize
	received := binary.LittleEndian.Uint16(data[crcOffset:])
	calculated := CalculateCRC(data[:crcOffset])
	if received != calculated {
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrCRCMismatch, calculated, received)
	}

	p := &Packet{
		id:        PacketID(data[0]),
		crc:       received,
		timestamp: time.Now(),
	}
	if payloadLen > 0 {
		p.payload = append([]byte(nil), data[HeaderSize:crcOffset]...)
	}

	return p, nil
}

// EncodePacket serializes and frames a packet, ready for transmission.
func EncodePacket(p *Packet) ([]byte, error) {
	data, err := Serialize(p)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(data), nil
}

// DecodePacket decodes a received frame. A trailing terminator is tolerated.
func DecodePacket(frame []byte) (*Packet, error) {
	if n := len(frame); n > 0 && frame[n-1] == Terminator {
		frame = frame[:n-1]
	}

	data, err := DecodeFrame(frame)
	if err != nil {
		return nil, err
	}

	return Deserialize(data)
}
