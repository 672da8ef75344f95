// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import "time"

// Packet represents a decoded packet. Packets are immutable once built;
// the payload is only interpreted by the kind-specific decode helpers.
type Packet struct {
	id        PacketID
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// NewPacket creates a packet with the given id and payload. The payload is
// copied. The CRC is computed when the packet is serialized.
func NewPacket(id PacketID, payload []byte) *Packet {
	p := &Packet{
		id:        id,
		timestamp: time.Now(),
	}
	if len(payload) > 0 {
		p.payload = append([]byte(nil), payload...)
	}
	return p
}

// ID returns the packet kind
func (p *Packet) ID() PacketID {
	return p.id
}

// Payload returns the raw payload bytes
func (p *Packet) Payload() []byte {
	return p.payload
}

// Length returns the total serialized length (header + payload + CRC)
func (p *Packet) Length() int {
	return MinPacketSize + len(p.payload)
}

// CRC returns the checksum received on the wire, or zero for locally built packets
func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp returns when the packet was decoded (or built)
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
