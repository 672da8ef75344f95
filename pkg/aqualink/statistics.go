// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks link statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidPackets     uint64
	ReadTimeouts     uint64
	ShortFrames      uint64
	CRCErrors        uint64
	DecodeErrors     uint64
	MalformedPackets uint64
	LengthMismatches uint64
	UnknownKinds     uint64
	AnomalousValues  uint64

	// Rates (calculated)
	PacketRate float64 // packets/sec
	ErrorRate  float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordTimeout counts a read that ended without a terminated frame
func (s *Statistics) RecordTimeout() {
	s.ReadTimeouts++
	s.LastUpdateTime = time.Now()
}

// RecordShortFrame counts a terminated read too short to hold a packet
func (s *Statistics) RecordShortFrame() {
	s.ShortFrames++
	s.TotalFrames++
	s.LastUpdateTime = time.Now()
}

// RecordUnknownKind counts a valid packet of a kind the host does not accept
func (s *Statistics) RecordUnknownKind() {
	s.TotalFrames++
	s.UnknownKinds++
	s.MalformedPackets++
	s.LastUpdateTime = time.Now()
}

// Update updates statistics based on a decoded frame and its errors
func (s *Statistics) Update(packet *Packet, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		if errors.Is(decodeErr, ErrCRCMismatch) {
			s.CRCErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if len(validationErrors) == 0 {
		s.ValidPackets++
		return
	}

	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyLengthMismatch:
			s.LengthMismatches++
			s.MalformedPackets++
		case AnomalyUnknownKind:
			s.UnknownKinds++
			s.MalformedPackets++
		default:
			s.AnomalousValues++
		}
	}
}

// CalculateRates calculates packet and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.ValidPackets) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// ErrorCount returns the number of frames that failed decoding or validation
func (s *Statistics) ErrorCount() uint64 {
	return s.ShortFrames + s.CRCErrors + s.DecodeErrors + s.MalformedPackets + s.AnomalousValues
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Packets:   %8d (%.1f%%)\n", s.ValidPackets, percent(s.ValidPackets))
	result += fmt.Sprintf("Read Timeouts:   %8d\n", s.ReadTimeouts)

	if s.ShortFrames > 0 {
		result += fmt.Sprintf("Short Frames:    %8d (%.1f%%)\n", s.ShortFrames, percent(s.ShortFrames))
	}
	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, percent(s.CRCErrors))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, percent(s.DecodeErrors))
	}
	if s.MalformedPackets > 0 {
		result += fmt.Sprintf("Malformed Pkts:  %8d (%.1f%%)\n", s.MalformedPackets, percent(s.MalformedPackets))
		if s.LengthMismatches > 0 {
			result += fmt.Sprintf("  Length Mismatch:  %5d\n", s.LengthMismatches)
		}
		if s.UnknownKinds > 0 {
			result += fmt.Sprintf("  Unknown Kinds:    %5d\n", s.UnknownKinds)
		}
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, percent(s.AnomalousValues))
	}

	result += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", s.PacketRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
