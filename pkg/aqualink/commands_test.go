// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"bytes"
	"testing"
)

// ============================================================
// Command Builder Tests
// ============================================================

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name    string
		p       *Packet
		id      PacketID
		payload []byte
	}{
		{"ready request", NewReadyRequest(), PacketIDReadyRequest, nil},
		{"owi measure", NewOwiMeasure(), PacketIDCmdOwiMeasure, nil},
		{"owi set resolution", NewOwiSetResolution(OwiResolution12Bit), PacketIDCmdOwiSetRes, []byte{0x00}},
		{"owi get resolution", NewOwiGetResolution(), PacketIDCmdOwiGetRes, nil},
		{"ec measure", NewEcMeasure(), PacketIDCmdEcMeasure, nil},
		{"ph measure", NewPhMeasure(), PacketIDCmdPhMeasure, nil},
		{"ec compensation", NewEcCompensation(21.5), PacketIDCmdEcCompensation, []byte{0x66, 0x08, 0x00, 0x00}},
		{"ph compensation", NewPhCompensation(25), PacketIDCmdPhCompensation, []byte{0xC4, 0x09, 0x00, 0x00}},
		{"ec calib dry", NewCalibrationCommand(PacketIDCmdEcCalibDry), PacketIDCmdEcCalibDry, nil},
		{"ph calib mid", NewCalibrationCommand(PacketIDCmdPhCalibMid), PacketIDCmdPhCalibMid, nil},
		{"ec import", NewEcImportCalibration([]byte{1, 2, 3}), PacketIDCmdEcImportCalib, []byte{1, 2, 3}},
		{"ph import", NewPhImportCalibration([]byte{4}), PacketIDCmdPhImportCalib, []byte{4}},
		{"light set", NewLightSet(PacketIDCmdLightSet, 1), PacketIDCmdLightSet, []byte{1}},
		{"light blue get", NewLightGet(PacketIDCmdLightBlueGet), PacketIDCmdLightBlueGet, nil},
		{"fan set", NewFanSetSpeed(1, 0x0384), PacketIDCmdFanSetSpeed, []byte{0x01, 0x84, 0x03}},
		{"fan get", NewFanGetSpeed(2), PacketIDCmdFanGetSpeed, []byte{0x02}},
		{"ack", NewAck(PacketIDCmdFanSetSpeed), PacketIDAck, []byte{42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.ID() != tt.id {
				t.Errorf("ID = %d, want %d", tt.p.ID(), tt.id)
			}
			if !bytes.Equal(tt.p.Payload(), tt.payload) {
				t.Errorf("Payload = % X, want % X", tt.p.Payload(), tt.payload)
			}
			if tt.p.Length() != MinPacketSize+len(tt.payload) {
				t.Errorf("Length = %d, want %d", tt.p.Length(), MinPacketSize+len(tt.payload))
			}
		})
	}
}

func TestCommandBuilders_Serializable(t *testing.T) {
	commands := []*Packet{
		NewReadyRequest(),
		NewOwiMeasure(),
		NewEcMeasure(),
		NewPhMeasure(),
		NewEcCompensation(18.75),
		NewPhCompensation(18.75),
		NewLightSet(PacketIDCmdLightWhiteSet, 0),
		NewFanSetSpeed(0, 0xFFFF),
	}

	for _, cmd := range commands {
		frame, err := EncodePacket(cmd)
		if err != nil {
			t.Errorf("%s: EncodePacket failed: %v", FormatKind(cmd.ID()), err)
			continue
		}
		if len(ValidatePacket(cmd)) != 0 {
			t.Errorf("%s: builder output fails validation", FormatKind(cmd.ID()))
		}
		if frame[len(frame)-1] != Terminator {
			t.Errorf("%s: frame not terminated", FormatKind(cmd.ID()))
		}
	}
}

func TestEncodeCentiDegrees_Truncates(t *testing.T) {
	p := NewEcCompensation(20.129)
	temp, err := DecodeCompensation(p)
	if err != nil {
		t.Fatalf("DecodeCompensation failed: %v", err)
	}
	if temp != 20.12 {
		t.Errorf("temperature = %v, want 20.12", temp)
	}
}
