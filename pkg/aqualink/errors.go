// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import "errors"

var (
	// ErrFrameTooShort is returned for buffers shorter than a bare header plus CRC.
	ErrFrameTooShort = errors.New("frame too short")
	// ErrLengthMismatch is returned when a length field disagrees with the buffer.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrCRCMismatch is returned when the received CRC does not match the data.
	ErrCRCMismatch = errors.New("CRC mismatch")
	// ErrInvalidFrame is returned for malformed COBS blocks.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrPayloadTooShort is returned by payload decoders.
	ErrPayloadTooShort = errors.New("payload too short")
	// ErrPayloadTooLarge is returned when a payload cannot fit in one packet.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrWrongKind is returned when a decoder is given a packet of another kind.
	ErrWrongKind = errors.New("wrong packet kind")
)
